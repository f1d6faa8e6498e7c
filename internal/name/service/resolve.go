package service

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"hvn/internal/name/label"
	"hvn/internal/name/models"
	dErrors "hvn/pkg/domain-errors"
	"hvn/pkg/requestcontext"
)

// AvailabilityResult is the resolver's verdict for one label in one
// namespace.
type AvailabilityResult struct {
	Available bool
	Status    models.Availability
	Reason    string
}

// Available resolves whether a label can currently be registered. The
// resolver never guesses: when a contract-backed namespace cannot be reached
// the answer is unavailable, not available.
func (s *Service) Available(ctx context.Context, tld, lbl string) (AvailabilityResult, error) {
	res, err := s.available(ctx, tld, lbl)
	if err == nil {
		s.metrics.ObserveAvailability(string(res.Status))
	}
	return res, err
}

func (s *Service) available(ctx context.Context, tld, lbl string) (AvailabilityResult, error) {
	v := label.Validate(lbl)
	if !v.Valid {
		return AvailabilityResult{Status: models.AvailabilityUnavailable, Reason: string(v.Reason)}, nil
	}

	if cfg, ok := s.catalog.Offchain[tld]; ok {
		return s.availableOffchain(ctx, cfg, v.Normalized), nil
	}
	if s.isOnchain(tld) {
		return s.availableOnchain(ctx, tld, v.Normalized), nil
	}
	return AvailabilityResult{}, dErrors.New(dErrors.CodeBadRequest, "unknown namespace")
}

func (s *Service) availableOffchain(ctx context.Context, cfg models.TldConfig, lbl string) AvailabilityResult {
	if label.Reserved(lbl) {
		return AvailabilityResult{Status: models.AvailabilityReserved, Reason: string(label.ReasonReserved)}
	}
	now := requestcontext.Now(ctx)
	rec, err := s.store.Find(ctx, lbl)
	if err != nil || rec == nil {
		return AvailabilityResult{Available: true, Status: models.AvailabilityAvailable}
	}
	switch rec.Status(now) {
	case models.NameStatusActive:
		return AvailabilityResult{Status: models.AvailabilityTaken}
	case models.NameStatusExpired:
		return AvailabilityResult{Status: models.AvailabilityExpiredGrace}
	default:
		return AvailabilityResult{Available: true, Status: models.AvailabilityAvailable}
	}
}

// availableOnchain asks the contract for both the availability and the
// reservation bit concurrently. Any transport failure collapses to
// unavailable.
func (s *Service) availableOnchain(ctx context.Context, tld, lbl string) AvailabilityResult {
	if s.chain == nil {
		return AvailabilityResult{Status: models.AvailabilityUnavailable, Reason: "backend_unavailable"}
	}
	var free, reserved bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		free, err = s.chain.Available(gctx, tld, lbl)
		return err
	})
	g.Go(func() error {
		var err error
		reserved, err = s.chain.IsReserved(gctx, tld, lbl)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "availability lookup failed", "tld", tld, "error", err)
		return AvailabilityResult{Status: models.AvailabilityUnavailable, Reason: "backend_unavailable"}
	}
	switch {
	case reserved:
		return AvailabilityResult{Status: models.AvailabilityReserved, Reason: string(label.ReasonReserved)}
	case free:
		return AvailabilityResult{Available: true, Status: models.AvailabilityAvailable}
	default:
		return AvailabilityResult{Status: models.AvailabilityTaken}
	}
}

// Info returns the live record for a label together with its lifecycle
// status. Records past their grace window resolve the same as names never
// registered.
func (s *Service) Info(ctx context.Context, tld, lbl string) (*models.NameRecord, models.NameStatus, error) {
	v := label.Validate(lbl)
	if !v.Valid {
		return nil, "", labelError(v.Reason)
	}
	if _, ok := s.catalog.Offchain[tld]; !ok {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "unknown namespace")
	}
	now := requestcontext.Now(ctx)
	rec, err := s.store.Find(ctx, v.Normalized)
	if err != nil || rec == nil {
		return nil, "", dErrors.New(dErrors.CodeNotFound, "name not registered")
	}
	status := rec.Status(now)
	if status == models.NameStatusUnregistered {
		return nil, "", dErrors.New(dErrors.CodeNotFound, "name not registered")
	}
	return rec, status, nil
}

// Reverse resolves a holder address to its primary name, the most recently
// registered record still live for that address.
func (s *Service) Reverse(ctx context.Context, holder string) (*models.NameRecord, error) {
	if !common.IsHexAddress(holder) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "holder must be a hex address")
	}
	now := requestcontext.Now(ctx)
	rec, err := s.store.FindByHolder(ctx, normalizeAddress(holder), now)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no live name for holder")
	}
	return rec, nil
}

// Tlds returns the namespace catalog: off-chain configs as booted, on-chain
// configs read live from the contract. A namespace whose contract read fails
// is listed with its backend only, so the catalog never hides a TLD because
// the chain hiccuped.
func (s *Service) Tlds(ctx context.Context) []models.TldConfig {
	out := make([]models.TldConfig, 0, len(s.catalog.Offchain)+len(s.catalog.Onchain))
	for _, cfg := range s.catalog.Offchain {
		out = append(out, cfg)
	}
	for _, name := range s.catalog.Onchain {
		cfg := models.TldConfig{Name: name, Backend: models.BackendOnchain}
		if s.chain != nil {
			if live, err := s.chain.GetTldConfig(ctx, name); err == nil {
				cfg = live
				cfg.Name = name
			} else {
				s.logger.WarnContext(ctx, "tld config read failed", "tld", name, "error", err)
			}
		}
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
