// Package handler exposes the resolver to the DNS gateway. The route is
// mounted behind the shared-secret bearer guard; nothing here is public.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hvn/internal/dns"
	dErrors "hvn/pkg/domain-errors"
	"hvn/pkg/platform/httputil"
)

// Resolver defines the resolution operation the HTTP layer depends on.
type Resolver interface {
	Resolve(ctx context.Context, tld, label string) *dns.Resolution
}

type Handler struct {
	resolver Resolver
	logger   *slog.Logger
}

func New(resolver Resolver, logger *slog.Logger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

// Register mounts the resolver endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/dns/resolve", h.HandleResolve)
}

// HandleResolve handles GET /dns/resolve?label=&tld=.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	label, tld := q.Get("label"), q.Get("tld")
	if label == "" || tld == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "label and tld query parameters are required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.resolver.Resolve(r.Context(), tld, label))
}
