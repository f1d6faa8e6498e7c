// Package requesttime pins a single "now" per HTTP request. Lifecycle math
// (expiry, grace, authorization windows) all reads the same instant, so a
// request can never observe a name as both expired and active.
package requesttime

import (
	"net/http"
	"time"

	"hvn/pkg/requestcontext"
)

// Middleware captures the wall clock at the start of the request and stores
// it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
