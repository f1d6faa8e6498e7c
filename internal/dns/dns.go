// Package dns translates registry state into TTL-annotated resolution
// records for the DNS gateway. The resolver never writes: expiry is computed
// lazily from timestamps, and released records are deleted only by the next
// successful registration.
package dns

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hvn/internal/name/label"
	"hvn/internal/name/models"
	"hvn/internal/name/store"
	"hvn/pkg/requestcontext"
)

// Status is the resolution outcome for one name.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpired      Status = "expired"
	StatusReserved     Status = "reserved"
	StatusUnregistered Status = "unregistered"
)

// RecordSet holds the synthesized records for an active name.
type RecordSet struct {
	A    []string `json:"a,omitempty"`
	AAAA []string `json:"aaaa,omitempty"`
	TXT  []string `json:"txt,omitempty"`
}

// Resolution is the gateway-facing answer. TTL carries the positive TTL for
// active names and the negative TTL for everything else, so downstream
// caches hold non-existence briefly and existence longer.
type Resolution struct {
	Name      string     `json:"name"`
	Status    Status     `json:"status"`
	Records   *RecordSet `json:"records,omitempty"`
	TTL       int64      `json:"ttl"` // seconds
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Config is the resolver's zone policy.
type Config struct {
	TTLPositive time.Duration
	TTLNegative time.Duration
	// GatewayIPs become the A records of every active name; the gateway
	// terminates traffic and routes by Host header.
	GatewayIPs []string
}

// Cache is a read-through resolution cache. Implementations may drop entries
// at will; the resolver treats every miss as a store read.
type Cache interface {
	Get(ctx context.Context, key string) (*Resolution, bool)
	Set(ctx context.Context, key string, res *Resolution, ttl time.Duration)
}

// Resolver serves resolutions for the off-chain namespaces.
type Resolver struct {
	store   store.Store
	tlds    map[string]models.TldConfig
	cfg     Config
	cache   Cache
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures the Resolver.
type Option func(*Resolver)

func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func NewResolver(st store.Store, tlds map[string]models.TldConfig, cfg Config, opts ...Option) *Resolver {
	if cfg.TTLPositive == 0 {
		cfg.TTLPositive = 5 * time.Minute
	}
	if cfg.TTLNegative == 0 {
		cfg.TTLNegative = time.Minute
	}
	r := &Resolver{
		store:  st,
		tlds:   tlds,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve answers one name. Invalid and reserved labels short-circuit before
// any store read.
func (r *Resolver) Resolve(ctx context.Context, tld, rawLabel string) *Resolution {
	res := r.resolve(ctx, tld, rawLabel)
	r.metrics.ObserveResolution(string(res.Status))
	return res
}

func (r *Resolver) resolve(ctx context.Context, tld, rawLabel string) *Resolution {
	v := label.Validate(rawLabel)
	name := v.Normalized + "." + tld
	if !v.Valid {
		return r.negative(name, StatusUnregistered, nil)
	}
	if label.Reserved(v.Normalized) {
		return r.negative(name, StatusReserved, nil)
	}
	if _, ok := r.tlds[tld]; !ok {
		return r.negative(name, StatusUnregistered, nil)
	}

	key := tld + "/" + v.Normalized
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, key); ok {
			r.metrics.ObserveCache(true)
			return cached
		}
		r.metrics.ObserveCache(false)
	}

	res := r.lookup(ctx, name, v.Normalized)
	if r.cache != nil {
		ttl := r.cfg.TTLNegative
		if res.Status == StatusActive {
			ttl = r.cfg.TTLPositive
		}
		r.cache.Set(ctx, key, res, ttl)
	}
	return res
}

func (r *Resolver) lookup(ctx context.Context, name, normalized string) *Resolution {
	now := requestcontext.Now(ctx)
	rec, err := r.store.Find(ctx, normalized)
	if err != nil || rec == nil {
		return r.negative(name, StatusUnregistered, nil)
	}
	switch rec.Status(now) {
	case models.NameStatusActive:
		return &Resolution{
			Name:      name,
			Status:    StatusActive,
			Records:   r.records(rec),
			TTL:       int64(r.cfg.TTLPositive.Seconds()),
			ExpiresAt: &rec.ExpiresAt,
		}
	case models.NameStatusExpired:
		return r.negative(name, StatusExpired, &rec.ExpiresAt)
	default:
		return r.negative(name, StatusUnregistered, nil)
	}
}

func (r *Resolver) negative(name string, status Status, expiresAt *time.Time) *Resolution {
	return &Resolution{
		Name:      name,
		Status:    status,
		TTL:       int64(r.cfg.TTLNegative.Seconds()),
		ExpiresAt: expiresAt,
	}
}

func (r *Resolver) records(rec *models.NameRecord) *RecordSet {
	return &RecordSet{
		A:   r.cfg.GatewayIPs,
		TXT: []string{fmt.Sprintf("pkp=%s;cid=%s;v=1", rec.Holder, rec.ProfileCID)},
	}
}
