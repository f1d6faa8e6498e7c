package handler

import (
	"strconv"
	"strings"

	"hvn/internal/name/service"
	dErrors "hvn/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /names/register.
type RegisterRequest struct {
	Label      string `json:"label"`
	TLD        string `json:"tld"`
	Holder     string `json:"holder"`
	ProfileCID string `json:"profileCid"`
	Signature  string `json:"signature"`
	Nonce      string `json:"nonce"`
	Timestamp  int64  `json:"timestamp"`
	Years      int    `json:"years"`
}

// Validate normalizes and checks the request shape. Label syntax, signature,
// and policy checks belong to the service.
func (r *RegisterRequest) Validate() error {
	r.Label = strings.TrimSpace(r.Label)
	r.TLD = strings.TrimSpace(r.TLD)
	r.Holder = strings.TrimSpace(r.Holder)
	r.ProfileCID = strings.TrimSpace(r.ProfileCID)
	if r.Label == "" {
		return dErrors.New(dErrors.CodeBadRequest, "label is required")
	}
	if r.TLD == "" {
		return dErrors.New(dErrors.CodeBadRequest, "tld is required")
	}
	if r.Holder == "" {
		return dErrors.New(dErrors.CodeBadRequest, "holder is required")
	}
	if r.Signature == "" {
		return dErrors.New(dErrors.CodeBadRequest, "signature is required")
	}
	if r.Nonce == "" {
		return dErrors.New(dErrors.CodeBadRequest, "nonce is required")
	}
	if r.Timestamp <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "timestamp is required")
	}
	if r.Years < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "years must not be negative")
	}
	if len(r.ProfileCID) > 256 {
		return dErrors.New(dErrors.CodeBadRequest, "profileCid must be at most 256 characters")
	}
	return nil
}

// Input converts the wire request to the service input.
func (r *RegisterRequest) Input() service.RegisterInput {
	return service.RegisterInput{
		Label:      r.Label,
		TLD:        r.TLD,
		Holder:     r.Holder,
		ProfileCID: r.ProfileCID,
		Signature:  r.Signature,
		Nonce:      r.Nonce,
		Timestamp:  r.Timestamp,
		Years:      r.Years,
	}
}

// RenewRequest is the HTTP request body for POST /names/renew.
type RenewRequest struct {
	Label     string `json:"label"`
	TLD       string `json:"tld"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
	Years     int    `json:"years"`
}

func (r *RenewRequest) Validate() error {
	r.Label = strings.TrimSpace(r.Label)
	r.TLD = strings.TrimSpace(r.TLD)
	if r.Label == "" {
		return dErrors.New(dErrors.CodeBadRequest, "label is required")
	}
	if r.TLD == "" {
		return dErrors.New(dErrors.CodeBadRequest, "tld is required")
	}
	if r.Signature == "" {
		return dErrors.New(dErrors.CodeBadRequest, "signature is required")
	}
	if r.Nonce == "" {
		return dErrors.New(dErrors.CodeBadRequest, "nonce is required")
	}
	if r.Timestamp <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "timestamp is required")
	}
	if r.Years < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "years must not be negative")
	}
	return nil
}

func (r *RenewRequest) Input() service.RenewInput {
	return service.RenewInput{
		Label:     r.Label,
		TLD:       r.TLD,
		Signature: r.Signature,
		Nonce:     r.Nonce,
		Timestamp: r.Timestamp,
		Years:     r.Years,
	}
}

// UpdateRequest is the HTTP request body for POST /names/update.
type UpdateRequest struct {
	Label      string `json:"label"`
	TLD        string `json:"tld"`
	ProfileCID string `json:"profileCid"`
	Signature  string `json:"signature"`
	Nonce      string `json:"nonce"`
	Timestamp  int64  `json:"timestamp"`
}

func (r *UpdateRequest) Validate() error {
	r.Label = strings.TrimSpace(r.Label)
	r.TLD = strings.TrimSpace(r.TLD)
	r.ProfileCID = strings.TrimSpace(r.ProfileCID)
	if r.Label == "" {
		return dErrors.New(dErrors.CodeBadRequest, "label is required")
	}
	if r.TLD == "" {
		return dErrors.New(dErrors.CodeBadRequest, "tld is required")
	}
	if r.Signature == "" {
		return dErrors.New(dErrors.CodeBadRequest, "signature is required")
	}
	if r.Nonce == "" {
		return dErrors.New(dErrors.CodeBadRequest, "nonce is required")
	}
	if r.Timestamp <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "timestamp is required")
	}
	if len(r.ProfileCID) > 256 {
		return dErrors.New(dErrors.CodeBadRequest, "profileCid must be at most 256 characters")
	}
	return nil
}

func (r *UpdateRequest) Input() service.UpdateInput {
	return service.UpdateInput{
		Label:      r.Label,
		TLD:        r.TLD,
		ProfileCID: r.ProfileCID,
		Signature:  r.Signature,
		Nonce:      r.Nonce,
		Timestamp:  r.Timestamp,
	}
}

func parseYears(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	years, err := strconv.Atoi(raw)
	if err != nil || years < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "years must be a positive integer")
	}
	return years, nil
}
