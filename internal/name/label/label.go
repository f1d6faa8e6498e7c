// Package label is the single implementation of label syntax validation.
// Every component that decides label acceptance (registrar, DNS resolver,
// client facade) imports this package; divergent copies are a correctness bug.
package label

import (
	"regexp"
	"strings"
)

// System-wide display-length bounds. MinLength is independent of any per-TLD
// pricing minimum, which only gates whether a price applies.
const (
	MinLength = 4
	MaxLength = 63
)

// Reason is the specific rejection cause for an invalid label.
type Reason string

const (
	ReasonEmpty        Reason = "empty"
	ReasonTooShort     Reason = "too_short"
	ReasonTooLong      Reason = "too_long"
	ReasonInvalidChars Reason = "invalid_chars"
	ReasonReserved     Reason = "reserved"
)

// labelPattern requires alphanumeric first and last characters with only
// [a-z0-9-] in between. Evaluated after normalization.
var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Result is the outcome of validating a candidate label.
type Result struct {
	Valid      bool
	Normalized string
	Reason     Reason
}

// Normalize lowercases and trims a raw candidate label.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Validate normalizes and syntax-checks a raw label. Reservation is a
// separate concern; see Reserved.
func Validate(raw string) Result {
	normalized := Normalize(raw)
	switch {
	case normalized == "":
		return Result{Reason: ReasonEmpty}
	case len(normalized) < MinLength:
		return Result{Normalized: normalized, Reason: ReasonTooShort}
	case len(normalized) > MaxLength:
		return Result{Normalized: normalized, Reason: ReasonTooLong}
	case strings.HasPrefix(normalized, "-"), strings.HasSuffix(normalized, "-"):
		return Result{Normalized: normalized, Reason: ReasonInvalidChars}
	case !labelPattern.MatchString(normalized):
		return Result{Normalized: normalized, Reason: ReasonInvalidChars}
	}
	return Result{Valid: true, Normalized: normalized}
}
