// Package auth guards operator-facing endpoints with a shared bearer secret.
// Public resolution endpoints never pass through this; only the DNS backend
// surface does.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	dErrors "hvn/pkg/domain-errors"
	"hvn/pkg/platform/httputil"
)

// Bearer rejects requests whose Authorization header does not carry the
// configured secret. An empty secret disables the guard, which is only
// acceptable for local development.
func Bearer(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadSignature, "missing or invalid bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
