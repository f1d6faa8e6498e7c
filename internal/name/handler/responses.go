package handler

import (
	"time"

	"hvn/internal/name/models"
)

// NameResponse is the wire form of a name record.
type NameResponse struct {
	Label        string    `json:"label"`
	LabelDisplay string    `json:"labelDisplay"`
	Name         string    `json:"name,omitempty"` // label.tld when the tld is known
	Holder       string    `json:"holder"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registeredAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	GraceEndsAt  time.Time `json:"graceEndsAt"`
	ProfileCID   string    `json:"profileCid,omitempty"`
}

// FromRecord converts a record to its wire form, deriving the lifecycle
// status at now.
func FromRecord(rec *models.NameRecord, tld string, now time.Time) NameResponse {
	resp := NameResponse{
		Label:        rec.Label,
		LabelDisplay: rec.LabelDisplay,
		Holder:       rec.Holder,
		Status:       string(rec.Status(now)),
		RegisteredAt: rec.RegisteredAt,
		ExpiresAt:    rec.ExpiresAt,
		GraceEndsAt:  rec.GraceEndsAt,
		ProfileCID:   rec.ProfileCID,
	}
	if tld != "" {
		resp.Name = rec.Label + "." + tld
	}
	return resp
}

// AvailabilityResponse answers GET /names/available/{label}.
type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// PriceResponse answers GET /names/price/{label}.
type PriceResponse struct {
	Price string `json:"price"` // integer in the smallest currency unit
	Free  bool   `json:"free"`
	Years int    `json:"years"`
}

// TldsResponse answers GET /tlds.
type TldsResponse struct {
	Tlds []models.TldConfig `json:"tlds"`
}
