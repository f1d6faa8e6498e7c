package store

import (
	"context"
	"sync"
	"time"

	"hvn/internal/name/models"
	"hvn/pkg/platform/sentinel"
)

// MemoryStore is the in-process Store used by unit tests and local
// development. A single mutex stands in for the database's transactional
// batch: every mutation validates and applies under one critical section.
type MemoryStore struct {
	mu     sync.RWMutex
	names  map[string]models.NameRecord  // keyed by normalized label
	nonces map[string]models.NonceRecord // keyed by nonce
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		names:  make(map[string]models.NameRecord),
		nonces: make(map[string]models.NonceRecord),
	}
}

func (s *MemoryStore) Find(ctx context.Context, label string) (*models.NameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.names[label]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := rec
	return &out, nil
}

func (s *MemoryStore) FindByHolder(ctx context.Context, holder string, now time.Time) (*models.NameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.NameRecord
	for _, rec := range s.names {
		if rec.Holder != holder || now.After(rec.GraceEndsAt) {
			continue
		}
		if best == nil || rec.RegisteredAt.After(best.RegisteredAt) {
			r := rec
			best = &r
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return best, nil
}

func (s *MemoryStore) Register(ctx context.Context, rec models.NameRecord, nonce models.NonceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate both constraints before touching state so a failure leaves the
	// store byte-for-byte unchanged.
	if _, used := s.nonces[nonce.Nonce]; used {
		return sentinel.ErrAlreadyUsed
	}
	if prior, ok := s.names[rec.Label]; ok && !rec.RegisteredAt.After(prior.GraceEndsAt) {
		return sentinel.ErrConflict
	}

	delete(s.names, rec.Label) // fully-expired prior row, if any
	s.names[rec.Label] = rec
	s.nonces[nonce.Nonce] = nonce
	return nil
}

func (s *MemoryStore) Renew(ctx context.Context, label, holder string, expiresAt, graceEndsAt, now time.Time, nonce models.NonceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, used := s.nonces[nonce.Nonce]; used {
		return sentinel.ErrAlreadyUsed
	}
	rec, ok := s.names[label]
	if !ok || rec.Holder != holder || now.After(rec.GraceEndsAt) {
		return sentinel.ErrNotFound
	}

	rec.ExpiresAt = expiresAt
	rec.GraceEndsAt = graceEndsAt
	s.names[label] = rec
	s.nonces[nonce.Nonce] = nonce
	return nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, label, holder, profileCID string, now time.Time, nonce models.NonceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, used := s.nonces[nonce.Nonce]; used {
		return sentinel.ErrAlreadyUsed
	}
	rec, ok := s.names[label]
	if !ok || rec.Holder != holder || now.After(rec.ExpiresAt) {
		return sentinel.ErrNotFound
	}

	rec.ProfileCID = profileCID
	s.names[label] = rec
	s.nonces[nonce.Nonce] = nonce
	return nil
}

func (s *MemoryStore) PurgeExpiredNonces(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for n, rec := range s.nonces {
		if now.After(rec.ExpiresAt) {
			delete(s.nonces, n)
			purged++
		}
	}
	return purged, nil
}
