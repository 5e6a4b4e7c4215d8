// Package crypto holds the signing primitives shared by outbound
// integrations, grounded on infrastructure/crypto/envelope.go's key
// derivation idiom (HMAC-SHA256 over a secret) — here applied to signing
// webhook payload bytes rather than deriving an encryption key.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SignWebhookPayload computes the hex-encoded HMAC-SHA256 of body keyed
// by secret, delivered as the X-Signature header on every webhook POST
// (spec.md §4.6).
func SignWebhookPayload(secret []byte, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature reports whether signature matches the expected
// HMAC-SHA256 of body under secret, using a constant-time comparison.
func VerifyWebhookSignature(secret []byte, body []byte, signature string) bool {
	expected := SignWebhookPayload(secret, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
