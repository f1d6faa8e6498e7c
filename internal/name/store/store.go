// Package store persists name records and the consumed-nonce ledger.
//
// Stores are pure I/O: lifecycle math and policy live in the service layer.
// Each mutation accepts the nonce record guarding it and commits both (or
// neither) in a single atomic batch: under concurrent requests for the same
// label or nonce exactly one caller wins and the rest observe a sentinel
// error. Stores report facts via pkg/platform/sentinel; services translate.
package store

import (
	"context"
	"time"

	"hvn/internal/name/models"
)

// Store is the durable registry + nonce ledger.
type Store interface {
	// Find returns the record for a normalized label regardless of lifecycle
	// state (expiry is computed lazily by callers). sentinel.ErrNotFound if
	// no row exists.
	Find(ctx context.Context, label string) (*models.NameRecord, error)

	// FindByHolder returns the most recently registered record for holder
	// that is still live at now. sentinel.ErrNotFound otherwise.
	FindByHolder(ctx context.Context, holder string, now time.Time) (*models.NameRecord, error)

	// Register atomically consumes the nonce and inserts rec, deleting any
	// fully-expired prior row for the same label in the same batch. The
	// insert itself is the race checkpoint: a surviving live row surfaces as
	// sentinel.ErrConflict, a reused nonce as sentinel.ErrAlreadyUsed, and in
	// either case nothing is committed. rec.RegisteredAt is the batch's "now".
	Register(ctx context.Context, rec models.NameRecord, nonce models.NonceRecord) error

	// Renew atomically consumes the nonce and moves the expiry window of the
	// record for (label, holder), provided the record is still within grace
	// at now. sentinel.ErrNotFound if no such row qualifies.
	Renew(ctx context.Context, label, holder string, expiresAt, graceEndsAt, now time.Time, nonce models.NonceRecord) error

	// UpdateProfile atomically consumes the nonce and replaces the profile
	// pointer of the record for (label, holder), provided the record is not
	// yet expired at now. sentinel.ErrNotFound if no such row qualifies.
	UpdateProfile(ctx context.Context, label, holder, profileCID string, now time.Time, nonce models.NonceRecord) error

	// PurgeExpiredNonces deletes ledger rows whose expiry has passed. Rows
	// are only ever deleted after the mutation they guarded is durable, which
	// holds trivially because consumption and mutation commit together.
	PurgeExpiredNonces(ctx context.Context, now time.Time) (int64, error)
}
