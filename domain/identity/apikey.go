package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const apiKeySecretBytes = 32
const apiKeySaltBytes = 16

// GeneratedAPIKey is the plaintext secret issued once at tenant creation
// or key regeneration time, alongside the salted hash persisted on the
// Tenant.
type GeneratedAPIKey struct {
	Plaintext string
	Salt      []byte
	Hash      []byte
}

// GenerateAPIKey produces a new random API key and its salted hash.
// The plaintext is returned exactly once; only Salt/Hash are persisted
// (spec.md §3 ApiKey).
func GenerateAPIKey() (GeneratedAPIKey, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return GeneratedAPIKey{}, fmt.Errorf("generate api key secret: %w", err)
	}
	salt := make([]byte, apiKeySaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return GeneratedAPIKey{}, fmt.Errorf("generate api key salt: %w", err)
	}

	plaintext := base64.RawURLEncoding.EncodeToString(secret)
	hash := hashAPIKey(salt, plaintext)

	return GeneratedAPIKey{
		Plaintext: plaintext,
		Salt:      salt,
		Hash:      hash,
	}, nil
}

func hashAPIKey(salt []byte, plaintext string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(plaintext))
	return h.Sum(nil)
}

// VerifyAPIKey reports whether candidate matches the tenant's stored
// salted hash, using a constant-time comparison over a fixed-length
// digest (grounded on infrastructure/middleware/headergate.go's
// shared-secret comparison idiom, applied here to a per-tenant salt).
func VerifyAPIKey(t *Tenant, candidate string) bool {
	if t == nil || len(t.APIKeySalt) == 0 || len(t.APIKeyHash) == 0 {
		return false
	}
	got := hashAPIKey(t.APIKeySalt, candidate)
	return subtle.ConstantTimeCompare(got, t.APIKeyHash) == 1
}
