// Package models defines the registrar's persistent and wire-facing types.
package models

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// TldBackend says where a namespace's policy and holder state live.
type TldBackend string

const (
	// BackendOffchain: this service is the authoritative registrar.
	BackendOffchain TldBackend = "offchain"
	// BackendOnchain: an external contract is authoritative; we only read.
	BackendOnchain TldBackend = "onchain"
)

// TldConfig is the per-namespace policy. For off-chain namespaces it is loaded
// from service configuration; for on-chain namespaces it is read from the
// registrar contract and relayed as-is.
type TldConfig struct {
	Name                 string     `json:"name" yaml:"name"`
	ParentName           string     `json:"parentName" yaml:"parent_name"`
	Backend              TldBackend `json:"backend" yaml:"backend"`
	PricePerYear         int64      `json:"pricePerYear" yaml:"price_per_year"` // smallest currency unit
	MinLabelLength       int        `json:"minLabelLength" yaml:"min_label_length"`
	MaxDuration          int        `json:"maxDuration" yaml:"max_duration"` // years
	RegistrationsOpen    bool       `json:"registrationsOpen" yaml:"registrations_open"`
	LengthPricingEnabled bool       `json:"lengthPricingEnabled" yaml:"length_pricing_enabled"`
	// LengthMult[i] multiplies PricePerYear for labels of length i+1, i in 0..3.
	// Labels of length >= 5 use the base price.
	LengthMult [4]int64 `json:"lengthMult" yaml:"length_mult"`
	// FreeOverFive marks an off-chain namespace where labels of 5+ characters
	// cost nothing regardless of PricePerYear.
	FreeOverFive bool `json:"freeOverFive" yaml:"free_over_five"`
	// GracePeriod is the exclusive post-expiry renewal window.
	GracePeriod time.Duration `json:"gracePeriod" yaml:"-"`
}

// UnmarshalYAML decodes the config-file form of a namespace policy, where
// grace_period is a duration string like "720h".
func (c *TldConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name                 string   `yaml:"name"`
		ParentName           string   `yaml:"parent_name"`
		PricePerYear         int64    `yaml:"price_per_year"`
		MinLabelLength       int      `yaml:"min_label_length"`
		MaxDuration          int      `yaml:"max_duration"`
		RegistrationsOpen    bool     `yaml:"registrations_open"`
		LengthPricingEnabled bool     `yaml:"length_pricing_enabled"`
		LengthMult           [4]int64 `yaml:"length_mult"`
		FreeOverFive         bool     `yaml:"free_over_five"`
		GracePeriod          string   `yaml:"grace_period"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = TldConfig{
		Name:                 raw.Name,
		ParentName:           raw.ParentName,
		Backend:              BackendOffchain,
		PricePerYear:         raw.PricePerYear,
		MinLabelLength:       raw.MinLabelLength,
		MaxDuration:          raw.MaxDuration,
		RegistrationsOpen:    raw.RegistrationsOpen,
		LengthPricingEnabled: raw.LengthPricingEnabled,
		LengthMult:           raw.LengthMult,
		FreeOverFive:         raw.FreeOverFive,
	}
	if raw.GracePeriod != "" {
		d, err := time.ParseDuration(raw.GracePeriod)
		if err != nil {
			return fmt.Errorf("grace_period: %w", err)
		}
		c.GracePeriod = d
	}
	return nil
}

// NameRecord is one label -> holder binding in the off-chain registry.
// At most one live record exists per normalized label, where live means
// now <= GraceEndsAt. Fully expired rows are deleted only as part of the next
// successful registration for the same label, never by a background sweep.
type NameRecord struct {
	Label        string    // normalized lowercase, unique while live
	LabelDisplay string    // original casing, cosmetic only
	Holder       string    // 0x address of the owning key
	RegisteredAt time.Time
	ExpiresAt    time.Time
	GraceEndsAt  time.Time
	ProfileCID   string // optional pointer to an off-chain profile blob
}

// Status derives the lifecycle state at the given instant.
func (r *NameRecord) Status(now time.Time) NameStatus {
	switch {
	case r == nil || now.After(r.GraceEndsAt):
		return NameStatusUnregistered
	case now.After(r.ExpiresAt):
		return NameStatusExpired
	default:
		return NameStatusActive
	}
}

// Live reports whether the record still blocks new registrations.
func (r *NameRecord) Live(now time.Time) bool {
	return r != nil && !now.After(r.GraceEndsAt)
}

// NameStatus is the lifecycle state of a registered label.
type NameStatus string

const (
	NameStatusActive       NameStatus = "active"
	NameStatusExpired      NameStatus = "expired" // in grace: only the holder may renew
	NameStatusUnregistered NameStatus = "unregistered"
)

// NonceRecord marks a client-supplied authorization nonce as consumed.
// A nonce may be consumed exactly once, globally; the insert commits in the
// same batch as the mutation it authorizes.
type NonceRecord struct {
	Nonce     string
	Signer    string
	UsedAt    time.Time
	ExpiresAt time.Time
}

// Availability classifies a (tld, label) pair for registration purposes.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityTaken     Availability = "taken"
	AvailabilityReserved  Availability = "reserved"
	// AvailabilityExpiredGrace is taken for new-registration purposes but
	// reported distinctly for diagnostics.
	AvailabilityExpiredGrace Availability = "expired_grace"
	// AvailabilityUnavailable is the fail-closed answer when an on-chain read
	// fails; it never means "free to register".
	AvailabilityUnavailable Availability = "unavailable"
)
