// Package handler is the HTTP surface of the registrar. It decodes and
// validates wire requests, delegates to the service, and maps coded errors to
// status classes; no lifecycle or authorization logic lives here.
package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hvn/internal/name/models"
	"hvn/internal/name/service"
	dErrors "hvn/pkg/domain-errors"
	"hvn/pkg/platform/httputil"
	"hvn/pkg/requestcontext"
)

// Service defines the registrar operations the HTTP layer depends on.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.NameRecord, error)
	Renew(ctx context.Context, in service.RenewInput) (*models.NameRecord, error)
	Update(ctx context.Context, in service.UpdateInput) (*models.NameRecord, error)
	Available(ctx context.Context, tld, label string) (service.AvailabilityResult, error)
	Info(ctx context.Context, tld, label string) (*models.NameRecord, models.NameStatus, error)
	Reverse(ctx context.Context, holder string) (*models.NameRecord, error)
	Quote(ctx context.Context, tld, label string, years int, forDisplay bool) (*big.Int, error)
	Tlds(ctx context.Context) []models.TldConfig
}

// Handler wires registrar endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registrar handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts registrar endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/names/register", h.HandleRegister)
	r.Post("/names/renew", h.HandleRenew)
	r.Post("/names/update", h.HandleUpdate)
	r.Get("/names/available/{label}", h.HandleAvailable)
	r.Get("/names/price/{label}", h.HandlePrice)
	r.Get("/names/reverse/{address}", h.HandleReverse)
	r.Get("/names/{label}", h.HandleInfo)
	r.Get("/tlds", h.HandleTlds)
}

// HandleRegister handles POST /names/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Register(ctx, req.Input())
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestID,
			"label", req.Label,
			"tld", req.TLD,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration accepted",
		"request_id", requestID,
		"label", rec.Label,
		"tld", req.TLD,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec, req.TLD, requestcontext.Now(ctx)))
}

// HandleRenew handles POST /names/renew.
func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RenewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Renew(ctx, req.Input())
	if err != nil {
		h.logger.WarnContext(ctx, "renewal rejected",
			"request_id", requestID,
			"label", req.Label,
			"tld", req.TLD,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, req.TLD, requestcontext.Now(ctx)))
}

// HandleUpdate handles POST /names/update.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Update(ctx, req.Input())
	if err != nil {
		h.logger.WarnContext(ctx, "profile update rejected",
			"request_id", requestID,
			"label", req.Label,
			"tld", req.TLD,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, req.TLD, requestcontext.Now(ctx)))
}

// HandleAvailable handles GET /names/available/{label}?tld=.
func (h *Handler) HandleAvailable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tld := r.URL.Query().Get("tld")
	if tld == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "tld query parameter is required"))
		return
	}

	res, err := h.service.Available(ctx, tld, chi.URLParam(r, "label"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AvailabilityResponse{
		Available: res.Available,
		Status:    string(res.Status),
		Reason:    res.Reason,
	})
}

// HandlePrice handles GET /names/price/{label}?tld=&years=&display=.
func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	tld := q.Get("tld")
	if tld == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "tld query parameter is required"))
		return
	}
	years, err := parseYears(q.Get("years"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	forDisplay := q.Get("display") == "true"

	price, err := h.service.Quote(ctx, tld, chi.URLParam(r, "label"), years, forDisplay)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PriceResponse{
		Price: price.String(),
		Free:  price.Sign() == 0,
		Years: years,
	})
}

// HandleInfo handles GET /names/{label}?tld=.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tld := r.URL.Query().Get("tld")
	if tld == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "tld query parameter is required"))
		return
	}

	rec, status, err := h.service.Info(ctx, tld, chi.URLParam(r, "label"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := FromRecord(rec, tld, requestcontext.Now(ctx))
	resp.Status = string(status)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleReverse handles GET /names/reverse/{address}.
func (h *Handler) HandleReverse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.service.Reverse(ctx, chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec, "", requestcontext.Now(ctx)))
}

// HandleTlds handles GET /tlds.
func (h *Handler) HandleTlds(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, TldsResponse{Tlds: h.service.Tlds(r.Context())})
}
