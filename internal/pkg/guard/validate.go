package guard

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var allowedContentTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
}

// Patterns that have no business inside webhook payloads or header values.
// Matching is case-insensitive over both headers and body.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[\s>]`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)on(?:error|load|click|mouseover)\s*=`),
	regexp.MustCompile(`(?i)<iframe[\s>]`),
	regexp.MustCompile(`(?i)data:text/html`),
}

// Headers whose values are never logged verbatim.
var sensitiveHeaders = map[string]struct{}{
	"authorization":                {},
	"cookie":                       {},
	"set-cookie":                   {},
	"x-hub-signature-256":          {},
	"x-twitter-webhooks-signature": {},
	"x-li-signature":               {},
	"x-api-key":                    {},
}

const redactionMarker = "[REDACTED]"

// RedactHeaders returns a copy of the request headers safe for logging:
// signatures, credentials and cookies are replaced with a marker.
func RedactHeaders(c *fiber.Ctx) map[string]string {
	out := map[string]string{}
	for key, values := range c.GetReqHeaders() {
		lower := strings.ToLower(key)
		if _, sensitive := sensitiveHeaders[lower]; sensitive ||
			strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
			out[key] = redactionMarker
			continue
		}
		out[key] = strings.Join(values, ", ")
	}
	return out
}

// validateStructure enforces content type, payload ceiling, nesting depth
// and injection-pattern checks. Violations are 422s: the request was
// authentic but its content is unacceptable.
func (g *Guard) validateStructure(c *fiber.Ctx, body []byte) *Rejection {
	if len(body) == 0 {
		return reject(fiber.StatusUnprocessableEntity, "empty_payload",
			"request body is empty", ViolationMalformedPayload)
	}
	if len(body) > g.cfg.MaxPayloadBytes {
		return reject(fiber.StatusUnprocessableEntity, "payload_too_large",
			fmt.Sprintf("payload exceeds %d bytes", g.cfg.MaxPayloadBytes), ViolationMalformedPayload)
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(c.Get(fiber.HeaderContentType), ";")[0]))
	allowed := false
	for _, ct := range allowedContentTypes {
		if contentType == ct {
			allowed = true
			break
		}
	}
	if !allowed {
		return reject(fiber.StatusUnprocessableEntity, "unsupported_content_type",
			fmt.Sprintf("content type %q not accepted", contentType), ViolationMalformedPayload)
	}

	if contentType == "application/json" {
		if depth := jsonDepth(body, g.cfg.MaxJSONDepth); depth > g.cfg.MaxJSONDepth {
			return reject(fiber.StatusUnprocessableEntity, "payload_too_deep",
				fmt.Sprintf("JSON nesting exceeds depth %d", g.cfg.MaxJSONDepth), ViolationMalformedPayload)
		}
		if !json.Valid(body) {
			return reject(fiber.StatusUnprocessableEntity, "invalid_json",
				"request body is not valid JSON", ViolationMalformedPayload)
		}
	}

	if pattern := findInjection(c, body); pattern != "" {
		return reject(fiber.StatusUnprocessableEntity, "suspicious_content",
			"payload contains disallowed content", ViolationInjection)
	}

	return nil
}

// jsonDepth measures nesting by scanning brackets and braces outside of
// strings. It stops as soon as maxDepth is exceeded so a deeply nested
// "JSON bomb" costs one linear pass, never recursion.
func jsonDepth(body []byte, maxDepth int) int {
	depth, peak := 0, 0
	inString := false
	escaped := false
	for _, b := range body {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > peak {
				peak = depth
			}
			if peak > maxDepth {
				return peak
			}
		case '}', ']':
			depth--
		}
	}
	return peak
}

func findInjection(c *fiber.Ctx, body []byte) string {
	for _, re := range injectionPatterns {
		if re.Match(body) {
			return re.String()
		}
	}
	for _, values := range c.GetReqHeaders() {
		for _, v := range values {
			for _, re := range injectionPatterns {
				if re.MatchString(v) {
					return re.String()
				}
			}
		}
	}
	return ""
}
