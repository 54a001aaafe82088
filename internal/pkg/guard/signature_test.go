package guard

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func metaSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func twitterSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func linkedInSignature(body []byte, timestamp, nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + nonce + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyMetaSignature(t *testing.T) {
	body := []byte(`{"object":"page","entry":[{"id":"42"}]}`)
	secret := "meta-secret"

	assert.True(t, VerifyMetaSignature(body, metaSignature(body, secret), secret))

	// Hex digits are accepted regardless of case.
	upper := "sha256=" + strings.ToUpper(strings.TrimPrefix(metaSignature(body, secret), "sha256="))
	assert.True(t, VerifyMetaSignature(body, upper, secret))

	assert.False(t, VerifyMetaSignature(body, metaSignature(body, "other-secret"), secret))
	assert.False(t, VerifyMetaSignature([]byte("tampered"), metaSignature(body, secret), secret))
	assert.False(t, VerifyMetaSignature(body, strings.TrimPrefix(metaSignature(body, secret), "sha256="), secret))
	assert.False(t, VerifyMetaSignature(body, "sha256=not-hex", secret))
	assert.False(t, VerifyMetaSignature(body, "", secret))
	assert.False(t, VerifyMetaSignature(body, metaSignature(body, ""), ""))
}

func TestVerifyTwitterSignature(t *testing.T) {
	body := []byte(`{"tweet_create_events":[{"id_str":"99"}]}`)
	secret := "consumer-secret"
	sig := twitterSignature(body, secret)

	assert.True(t, VerifyTwitterSignature(body, sig, secret))
	assert.True(t, VerifyTwitterSignature(body, "sha256="+sig, secret))
	assert.True(t, VerifyTwitterSignature(body, "  "+sig+"  ", secret))

	assert.False(t, VerifyTwitterSignature([]byte("tampered"), sig, secret))
	assert.False(t, VerifyTwitterSignature(body, sig, "other-secret"))
	assert.False(t, VerifyTwitterSignature(body, "%%%not-base64%%%", secret))
	assert.False(t, VerifyTwitterSignature(body, "", secret))
	assert.False(t, VerifyTwitterSignature(body, sig, ""))
}

func TestVerifyLinkedInSignature(t *testing.T) {
	body := []byte(`{"eventType":"SHARE_LIFECYCLE","eventId":"abc"}`)
	secret := "li-secret"
	timestamp := "1756700000000"
	nonce := "nonce-1"
	sig := linkedInSignature(body, timestamp, nonce, secret)

	assert.True(t, VerifyLinkedInSignature(body, sig, timestamp, nonce, secret))

	// The composite binds timestamp and nonce: changing either breaks it.
	assert.False(t, VerifyLinkedInSignature(body, sig, "1756700000001", nonce, secret))
	assert.False(t, VerifyLinkedInSignature(body, sig, timestamp, "nonce-2", secret))
	assert.False(t, VerifyLinkedInSignature([]byte("tampered"), sig, timestamp, nonce, secret))
	assert.False(t, VerifyLinkedInSignature(body, sig, timestamp, nonce, "other-secret"))
	assert.False(t, VerifyLinkedInSignature(body, "", timestamp, nonce, secret))
}

func TestTwitterCRCResponse(t *testing.T) {
	secret := "consumer-secret"
	token := "crc-token-xyz"

	resp := TwitterCRCResponse(token, secret)
	assert.True(t, strings.HasPrefix(resp, "sha256="))

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	assert.Equal(t, "sha256="+base64.StdEncoding.EncodeToString(mac.Sum(nil)), resp)

	assert.NotEqual(t, resp, TwitterCRCResponse(token, "other-secret"))
}

func TestLinkedInChallengeResponse(t *testing.T) {
	secret := "li-secret"
	code := "challenge-123"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(code))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), LinkedInChallengeResponse(code, secret))

	assert.NotEqual(t, LinkedInChallengeResponse(code, secret), LinkedInChallengeResponse(code, "other-secret"))
}

func TestSignatureHeaderName(t *testing.T) {
	assert.Equal(t, HeaderMetaSignature, SignatureHeaderName("facebook"))
	assert.Equal(t, HeaderMetaSignature, SignatureHeaderName("instagram"))
	assert.Equal(t, HeaderTwitterSignature, SignatureHeaderName("twitter"))
	assert.Equal(t, HeaderLinkedInSig, SignatureHeaderName("linkedin"))
}
