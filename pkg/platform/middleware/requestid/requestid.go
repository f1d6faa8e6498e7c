// Package requestid assigns each request a correlation ID, honoring one
// supplied by the caller so IDs survive proxies and retries.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"hvn/pkg/requestcontext"
)

const Header = "X-Request-Id"

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
