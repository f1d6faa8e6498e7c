// Package pricing computes registration prices. It is a pure function of
// primitive inputs so the authoritative server-side check and the client
// preview share one bit-identical implementation. All arithmetic is integer,
// in the currency's smallest unit; no floating point anywhere.
package pricing

import (
	"fmt"

	"hvn/internal/name/models"
)

// Quote computes the price for registering or renewing a label.
//
// forDisplay relaxes the per-TLD MinLabelLength gate so a UI can preview the
// price of a label that is not yet registrable. It must never be set on the
// authoritative server-side check; internal/name/service always passes false.
func Quote(cfg models.TldConfig, lbl string, years int, forDisplay bool) (int64, error) {
	if years < 1 {
		return 0, fmt.Errorf("duration must be at least 1 year, got %d", years)
	}
	if cfg.MaxDuration > 0 && years > cfg.MaxDuration {
		return 0, fmt.Errorf("duration %d exceeds maximum of %d years", years, cfg.MaxDuration)
	}
	n := len(lbl)
	if n == 0 {
		return 0, fmt.Errorf("label is empty")
	}
	if !forDisplay && cfg.MinLabelLength > 0 && n < cfg.MinLabelLength {
		return 0, fmt.Errorf("label length %d below namespace minimum %d", n, cfg.MinLabelLength)
	}

	if cfg.Backend == models.BackendOffchain && cfg.FreeOverFive && n >= 5 {
		return 0, nil
	}

	return cfg.PricePerYear * multiplier(cfg, n) * int64(years), nil
}

// multiplier is the length-tier factor: LengthMult[len-1] for 1..4 character
// labels when length pricing is enabled, otherwise 1.
func multiplier(cfg models.TldConfig, n int) int64 {
	if !cfg.LengthPricingEnabled || n >= 5 {
		return 1
	}
	m := cfg.LengthMult[n-1]
	if m <= 0 {
		return 1
	}
	return m
}
