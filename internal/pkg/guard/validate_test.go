package guard

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStructureCheck pushes a request through a fiber handler that invokes
// validateStructure, capturing its verdict.
func runStructureCheck(t *testing.T, g *Guard, contentType string, body []byte, headers map[string]string) *Rejection {
	t.Helper()

	var rej *Rejection
	app := fiber.New()
	app.Post("/t", func(c *fiber.Ctx) error {
		rej = g.validateStructure(c, c.BodyRaw())
		return nil
	})

	req := httptest.NewRequest(fiber.MethodPost, "/t", bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	_, err := app.Test(req)
	require.NoError(t, err)
	return rej
}

func TestValidateStructureAcceptsWellFormedJSON(t *testing.T) {
	g := &Guard{cfg: testConfig()}
	rej := runStructureCheck(t, g, "application/json",
		[]byte(`{"object":"page","entry":[{"id":"1","changes":[{"field":"feed"}]}]}`), nil)
	assert.Nil(t, rej)
}

func TestValidateStructureAcceptsFormEncoded(t *testing.T) {
	g := &Guard{cfg: testConfig()}
	rej := runStructureCheck(t, g, "application/x-www-form-urlencoded",
		[]byte(`hub.mode=subscribe&hub.challenge=abc`), nil)
	assert.Nil(t, rej)
}

func TestValidateStructureRejections(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPayloadBytes = 64
	cfg.MaxJSONDepth = 4
	g := &Guard{cfg: cfg}

	tests := []struct {
		name        string
		contentType string
		body        []byte
		headers     map[string]string
		code        string
	}{
		{
			name:        "empty body",
			contentType: "application/json",
			body:        nil,
			code:        "empty_payload",
		},
		{
			name:        "oversized body",
			contentType: "application/json",
			body:        []byte(`{"pad":"` + strings.Repeat("x", 100) + `"}`),
			code:        "payload_too_large",
		},
		{
			name:        "wrong content type",
			contentType: "text/plain",
			body:        []byte(`hello`),
			code:        "unsupported_content_type",
		},
		{
			name:        "nesting bomb",
			contentType: "application/json",
			body:        []byte(strings.Repeat("[", 10) + strings.Repeat("]", 10)),
			code:        "payload_too_deep",
		},
		{
			name:        "broken json",
			contentType: "application/json",
			body:        []byte(`{"object":`),
			code:        "invalid_json",
		},
		{
			name:        "script tag in body",
			contentType: "application/json",
			body:        []byte(`{"text":"<script>alert(1)</script>"}`),
			code:        "suspicious_content",
		},
		{
			name:        "injection in header",
			contentType: "application/json",
			body:        []byte(`{"object":"page"}`),
			headers:     map[string]string{"X-Custom": "javascript:alert(1)"},
			code:        "suspicious_content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rej := runStructureCheck(t, g, tt.contentType, tt.body, tt.headers)
			require.NotNil(t, rej)
			assert.Equal(t, fiber.StatusUnprocessableEntity, rej.Status)
			assert.Equal(t, tt.code, rej.Code)
		})
	}
}

func TestValidateStructureContentTypeParameters(t *testing.T) {
	g := &Guard{cfg: testConfig()}
	rej := runStructureCheck(t, g, "application/json; charset=utf-8", []byte(`{"a":1}`), nil)
	assert.Nil(t, rej)
}

func TestJSONDepth(t *testing.T) {
	assert.Equal(t, 0, jsonDepth([]byte(`"flat string"`), 10))
	assert.Equal(t, 1, jsonDepth([]byte(`{"a":1}`), 10))
	assert.Equal(t, 3, jsonDepth([]byte(`{"a":[{"b":1}]}`), 10))

	// Brackets inside strings do not count as nesting.
	assert.Equal(t, 1, jsonDepth([]byte(`{"a":"[[[[{{{{"}`), 10))
	assert.Equal(t, 1, jsonDepth([]byte(`{"a":"quote \" then [["}`), 10))

	// The scan stops as soon as the limit is exceeded.
	bomb := []byte(strings.Repeat("[", 1000))
	assert.Equal(t, 11, jsonDepth(bomb, 10))
}

func TestRedactHeaders(t *testing.T) {
	app := fiber.New()
	var redacted map[string]string
	app.Post("/t", func(c *fiber.Ctx) error {
		redacted = RedactHeaders(c)
		return nil
	})

	req := httptest.NewRequest(fiber.MethodPost, "/t", strings.NewReader("{}"))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("X-Verify-Token", "supersecret")
	req.Header.Set("X-Request-ID", "req-1")
	_, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, "[REDACTED]", redacted["X-Hub-Signature-256"])
	assert.Equal(t, "[REDACTED]", redacted["Authorization"])
	assert.Equal(t, "[REDACTED]", redacted["X-Verify-Token"])
	assert.Equal(t, "req-1", redacted["X-Request-Id"])
}
