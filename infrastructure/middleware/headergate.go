package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/nftbarter/discovery-engine/infrastructure/httputil"
)

// AdminKeyMiddleware gates admin-only endpoints behind a single shared
// admin key, presented as "Authorization: Bearer <adminKey>". Comparison
// is constant-time over a fixed-length digest so neither the length nor
// the content of the presented key leaks through timing (spec.md §4.7,
// grounded on the teacher's shared-secret header gate).
func AdminKeyMiddleware(adminKey string) func(http.Handler) http.Handler {
	expected := sha256.Sum256([]byte(adminKey))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := bearerToken(r.Header.Get("Authorization"))
			if presented == "" {
				httputil.WriteErrorResponse(w, r, http.StatusUnauthorized, "AUTH_1001", "missing admin key", nil)
				return
			}

			got := sha256.Sum256([]byte(presented))
			if subtle.ConstantTimeCompare(got[:], expected[:]) != 1 {
				httputil.WriteErrorResponse(w, r, http.StatusForbidden, "AUTHZ_2001", "invalid admin key", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
