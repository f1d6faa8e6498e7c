// Package service implements the registrar use-cases: the write path
// (Register, Renew, Update) and the read path (Available, Info, Reverse).
//
// The service is stateless; concurrency correctness rests entirely on the
// store's atomic batches. Every mutation follows the same shape: validate,
// gate on namespace policy, verify the signed authorization, then submit the
// nonce consumption and the record mutation as one batch and translate the
// store's verdict.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"hvn/internal/audit"
	"hvn/internal/chain"
	"hvn/internal/name/authz"
	"hvn/internal/name/label"
	namemetrics "hvn/internal/name/metrics"
	"hvn/internal/name/models"
	"hvn/internal/name/pricing"
	"hvn/internal/name/store"
	dErrors "hvn/pkg/domain-errors"
	"hvn/pkg/platform/sentinel"
	"hvn/pkg/requestcontext"
)

const (
	minNonceLength = 8
	maxNonceLength = 128

	// yearTerm is the registration term unit.
	yearTerm = 365 * 24 * time.Hour

	defaultGracePeriod = 30 * 24 * time.Hour
)

// Catalog is the namespace policy the service was booted with: authoritative
// configs for off-chain TLDs plus the names of on-chain TLDs whose policy is
// read from the contract.
type Catalog struct {
	Offchain map[string]models.TldConfig
	Onchain  []string
}

// Service orchestrates the registrar.
type Service struct {
	store   store.Store
	catalog Catalog
	chain   chain.Reader
	audit   audit.Publisher
	metrics *namemetrics.Metrics
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithChainReader(r chain.Reader) Option {
	return func(s *Service) { s.chain = r }
}

func WithAudit(p audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithMetrics(m *namemetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(st store.Store, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		store:   st,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput carries a signed registration request.
type RegisterInput struct {
	Label      string
	TLD        string
	Holder     string
	ProfileCID string
	Signature  string
	Nonce      string
	Timestamp  int64 // unix seconds the message was issued at
	Years      int   // 0 means 1
}

// RenewInput carries a signed renewal, bound to the current on-record holder.
type RenewInput struct {
	Label     string
	TLD       string
	Signature string
	Nonce     string
	Timestamp int64
	Years     int
}

// UpdateInput carries a signed profile pointer update.
type UpdateInput struct {
	Label      string
	TLD        string
	ProfileCID string
	Signature  string
	Nonce      string
	Timestamp  int64
}

// Register creates a brand-new binding. The store insert is the race
// checkpoint: a concurrent winner surfaces as AlreadyTaken, a reused nonce as
// ReplayDetected, and in both cases no state changed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.NameRecord, error) {
	start := time.Now()
	rec, err := s.register(ctx, in)
	s.metrics.ObserveMutation("register", outcome(err), time.Since(start))
	return rec, err
}

func (s *Service) register(ctx context.Context, in RegisterInput) (*models.NameRecord, error) {
	res := label.CheckRegistrable(in.Label)
	if !res.Valid {
		return nil, labelError(res.Reason)
	}
	cfg, err := s.offchainConfig(in.TLD)
	if err != nil {
		return nil, err
	}
	if !cfg.RegistrationsOpen {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registrations are closed for this namespace")
	}
	if !common.IsHexAddress(in.Holder) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "holder must be a hex address")
	}
	if err := checkNonce(in.Nonce); err != nil {
		return nil, err
	}
	years := in.Years
	if years == 0 {
		years = 1
	}
	if years < 1 || (cfg.MaxDuration > 0 && years > cfg.MaxDuration) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration duration outside namespace bounds")
	}
	// Authoritative price re-check; ForDisplay is never honored here. Payment
	// settlement for priced labels happens upstream of this call.
	price, err := pricing.Quote(cfg, res.Normalized, years, false)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidLabel, "label not registrable in this namespace")
	}

	now := requestcontext.Now(ctx)
	issued := time.Unix(in.Timestamp, 0)
	msg := authz.Message{
		Action:     authz.ActionRegister,
		TLD:        cfg.Name,
		Label:      res.Normalized,
		Signer:     in.Holder,
		Nonce:      in.Nonce,
		IssuedAt:   issued,
		ExpiresAt:  issued.Add(authz.ValidityWindow),
		ProfileCID: in.ProfileCID,
	}
	if err := authz.Verify(msg, in.Signature, now); err != nil {
		return nil, err
	}

	expires := now.Add(time.Duration(years) * yearTerm)
	rec := models.NameRecord{
		Label:        res.Normalized,
		LabelDisplay: displayForm(in.Label, res.Normalized),
		Holder:       normalizeAddress(in.Holder),
		RegisteredAt: now,
		ExpiresAt:    expires,
		GraceEndsAt:  expires.Add(gracePeriod(cfg)),
		ProfileCID:   in.ProfileCID,
	}
	err = s.store.Register(ctx, rec, nonceRecord(in.Nonce, rec.Holder, now))
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return nil, dErrors.New(dErrors.CodeAlreadyTaken, "label is already registered")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return nil, dErrors.New(dErrors.CodeReplayDetected, "authorization nonce already consumed")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registration failed")
	}

	s.logger.InfoContext(ctx, "name registered",
		"label", rec.Label,
		"tld", cfg.Name,
		"holder", rec.Holder,
		"years", years,
		"price", price,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.ActionNameRegistered, cfg.Name, rec)
	s.purgeNonces(ctx, now)
	return &rec, nil
}

// Renew extends an existing binding. Renewal is allowed through the grace
// period and only by the current on-record holder; the new expiry extends
// from the old one when renewing early and from now when renewing in grace.
func (s *Service) Renew(ctx context.Context, in RenewInput) (*models.NameRecord, error) {
	start := time.Now()
	rec, err := s.renew(ctx, in)
	s.metrics.ObserveMutation("renew", outcome(err), time.Since(start))
	return rec, err
}

func (s *Service) renew(ctx context.Context, in RenewInput) (*models.NameRecord, error) {
	res := label.Validate(in.Label)
	if !res.Valid {
		return nil, labelError(res.Reason)
	}
	cfg, err := s.offchainConfig(in.TLD)
	if err != nil {
		return nil, err
	}
	if err := checkNonce(in.Nonce); err != nil {
		return nil, err
	}
	years := in.Years
	if years == 0 {
		years = 1
	}
	if cfg.MaxDuration > 0 && years > cfg.MaxDuration {
		return nil, dErrors.New(dErrors.CodeBadRequest, "renewal duration exceeds namespace maximum")
	}

	now := requestcontext.Now(ctx)
	rec, err := s.store.Find(ctx, res.Normalized)
	if err != nil || !rec.Live(now) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no renewable record for label")
	}

	issued := time.Unix(in.Timestamp, 0)
	msg := authz.Message{
		Action:    authz.ActionRenew,
		TLD:       cfg.Name,
		Label:     res.Normalized,
		Signer:    rec.Holder,
		Nonce:     in.Nonce,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(authz.ValidityWindow),
	}
	if err := authz.Verify(msg, in.Signature, now); err != nil {
		return nil, err
	}

	base := rec.ExpiresAt
	if now.After(base) {
		base = now
	}
	newExpiry := base.Add(time.Duration(years) * yearTerm)
	newGrace := newExpiry.Add(gracePeriod(cfg))

	err = s.store.Renew(ctx, rec.Label, rec.Holder, newExpiry, newGrace, now, nonceRecord(in.Nonce, rec.Holder, now))
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return nil, dErrors.New(dErrors.CodeReplayDetected, "authorization nonce already consumed")
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "no renewable record for label")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "renewal failed")
	}

	renewed := *rec
	renewed.ExpiresAt = newExpiry
	renewed.GraceEndsAt = newGrace
	s.logger.InfoContext(ctx, "name renewed",
		"label", rec.Label,
		"tld", cfg.Name,
		"expires_at", newExpiry,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.ActionNameRenewed, cfg.Name, renewed)
	s.purgeNonces(ctx, now)
	return &renewed, nil
}

// Update replaces the profile pointer. Edits stop at expiry: a record in
// grace can be renewed but not updated.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*models.NameRecord, error) {
	start := time.Now()
	rec, err := s.update(ctx, in)
	s.metrics.ObserveMutation("update", outcome(err), time.Since(start))
	return rec, err
}

func (s *Service) update(ctx context.Context, in UpdateInput) (*models.NameRecord, error) {
	res := label.Validate(in.Label)
	if !res.Valid {
		return nil, labelError(res.Reason)
	}
	cfg, err := s.offchainConfig(in.TLD)
	if err != nil {
		return nil, err
	}
	if err := checkNonce(in.Nonce); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	rec, err := s.store.Find(ctx, res.Normalized)
	if err != nil || !rec.Live(now) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no record for label")
	}
	if now.After(rec.ExpiresAt) {
		return nil, dErrors.New(dErrors.CodeExpired, "record expired; renew before editing the profile")
	}

	issued := time.Unix(in.Timestamp, 0)
	msg := authz.Message{
		Action:     authz.ActionUpdate,
		TLD:        cfg.Name,
		Label:      res.Normalized,
		Signer:     rec.Holder,
		Nonce:      in.Nonce,
		IssuedAt:   issued,
		ExpiresAt:  issued.Add(authz.ValidityWindow),
		ProfileCID: in.ProfileCID,
	}
	if err := authz.Verify(msg, in.Signature, now); err != nil {
		return nil, err
	}

	err = s.store.UpdateProfile(ctx, rec.Label, rec.Holder, in.ProfileCID, now, nonceRecord(in.Nonce, rec.Holder, now))
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return nil, dErrors.New(dErrors.CodeReplayDetected, "authorization nonce already consumed")
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeExpired, "record expired; renew before editing the profile")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "profile update failed")
	}

	updated := *rec
	updated.ProfileCID = in.ProfileCID
	s.logger.InfoContext(ctx, "profile updated",
		"label", rec.Label,
		"tld", cfg.Name,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitAudit(ctx, audit.ActionProfileUpdated, cfg.Name, updated)
	return &updated, nil
}

func (s *Service) offchainConfig(tld string) (models.TldConfig, error) {
	cfg, ok := s.catalog.Offchain[tld]
	if ok {
		return cfg, nil
	}
	for _, name := range s.catalog.Onchain {
		if name == tld {
			return models.TldConfig{}, dErrors.New(dErrors.CodeBadRequest,
				"namespace is contract-backed; register through your wallet")
		}
	}
	return models.TldConfig{}, dErrors.New(dErrors.CodeBadRequest, "unknown namespace")
}

func gracePeriod(cfg models.TldConfig) time.Duration {
	if cfg.GracePeriod > 0 {
		return cfg.GracePeriod
	}
	return defaultGracePeriod
}

func checkNonce(nonce string) error {
	if len(nonce) < minNonceLength || len(nonce) > maxNonceLength {
		return dErrors.New(dErrors.CodeBadRequest, "nonce must be 8 to 128 characters")
	}
	return nil
}

func nonceRecord(nonce, signer string, now time.Time) models.NonceRecord {
	return models.NonceRecord{
		Nonce:     nonce,
		Signer:    signer,
		UsedAt:    now,
		ExpiresAt: now.Add(authz.ValidityWindow),
	}
}

func labelError(reason label.Reason) error {
	if reason == label.ReasonReserved {
		return dErrors.New(dErrors.CodeReserved, "label is reserved")
	}
	return dErrors.New(dErrors.CodeInvalidLabel, string(reason))
}

func normalizeAddress(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// displayForm preserves the caller's casing when it normalizes to the stored
// label, and falls back to the normalized form otherwise.
func displayForm(raw, normalized string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && label.Normalize(trimmed) == normalized {
		return trimmed
	}
	return normalized
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, tld string, rec models.NameRecord) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		ID:        uuid.NewString(),
		Action:    action,
		TLD:       tld,
		Label:     rec.Label,
		Holder:    rec.Holder,
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

// purgeNonces opportunistically trims the expired tail of the nonce ledger.
// Failures are logged and swallowed; durability of the just-committed batch
// never depends on this.
func (s *Service) purgeNonces(ctx context.Context, now time.Time) {
	purged, err := s.store.PurgeExpiredNonces(ctx, now)
	if err != nil {
		s.logger.WarnContext(ctx, "nonce purge failed", "error", err)
		return
	}
	s.metrics.AddNoncesPurged(purged)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}

// Quote prices a prospective registration. Off-chain namespaces are priced
// locally; contract-backed namespaces relay the contract's quote so the two
// engines can never drift from the caller's point of view.
func (s *Service) Quote(ctx context.Context, tld, lbl string, years int, forDisplay bool) (*big.Int, error) {
	if years == 0 {
		years = 1
	}
	if cfg, ok := s.catalog.Offchain[tld]; ok {
		p, err := pricing.Quote(cfg, label.Normalize(lbl), years, forDisplay)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidLabel, "label not priceable in this namespace")
		}
		return big.NewInt(p), nil
	}
	if !s.isOnchain(tld) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown namespace")
	}
	if s.chain == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "namespace backend unavailable")
	}
	p, err := s.chain.Price(ctx, tld, label.Normalize(lbl), years)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "namespace backend unavailable")
	}
	return p, nil
}

func (s *Service) isOnchain(tld string) bool {
	for _, name := range s.catalog.Onchain {
		if name == tld {
			return true
		}
	}
	return false
}
