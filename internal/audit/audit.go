// Package audit captures structured events for every registrar mutation.
// Events are best-effort operational telemetry: a publish failure is logged
// and never fails the mutation that produced it.
package audit

import (
	"context"
	"time"
)

// Action identifies the mutation an event records.
type Action string

const (
	ActionNameRegistered Action = "name_registered"
	ActionNameRenewed    Action = "name_renewed"
	ActionProfileUpdated Action = "profile_updated"
)

// Event is one registrar mutation, keyed for downstream consumers.
type Event struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	TLD       string    `json:"tld"`
	Label     string    `json:"label"`
	Holder    string    `json:"holder"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the sink for audit events. Implementations: Kafka (production),
// Memory (tests), and the buffering Worker that wraps either.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}
