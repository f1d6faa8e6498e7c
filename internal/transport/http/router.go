// Package httptransport assembles the public router: middleware chain,
// registrar endpoints, the guarded DNS surface, health, and metrics.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dnshandler "hvn/internal/dns/handler"
	namehandler "hvn/internal/name/handler"
	"hvn/pkg/platform/httputil"
	"hvn/pkg/platform/middleware/auth"
	"hvn/pkg/platform/middleware/requestid"
	"hvn/pkg/platform/middleware/requesttime"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps are the router's wired components.
type Deps struct {
	Names     *namehandler.Handler
	DNS       *dnshandler.Handler
	DNSSecret string
	Registry  *prometheus.Registry
	Health    []HealthChecker
}

// NewRouter builds the full HTTP surface.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth(d.Health))
	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	d.Names.Register(r)

	r.Group(func(gr chi.Router) {
		gr.Use(auth.Bearer(d.DNSSecret))
		d.DNS.Register(gr)
	})

	return r
}

func handleHealth(checks []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
