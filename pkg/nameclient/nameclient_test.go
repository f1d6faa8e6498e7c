package nameclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hvn/internal/name/models"
)

type fakeBackend struct {
	mu        sync.Mutex
	available map[string]bool
	reasons   map[string]string
	delays    map[string]time.Duration

	availCalls  atomic.Int64
	configCalls atomic.Int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		available: map[string]bool{},
		reasons:   map[string]string{},
		delays:    map[string]time.Duration{},
	}
}

func (f *fakeBackend) Available(ctx context.Context, tld, lbl string) (bool, string, error) {
	f.availCalls.Add(1)
	f.mu.Lock()
	delay := f.delays[lbl]
	ok := f.available[lbl]
	reason := f.reasons[lbl]
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return ok, reason, nil
}

func (f *fakeBackend) TldConfig(ctx context.Context, tld string) (models.TldConfig, error) {
	f.configCalls.Add(1)
	return models.TldConfig{
		Name:                 tld,
		Backend:              models.BackendOffchain,
		PricePerYear:         20_000_000,
		MinLabelLength:       4,
		MaxDuration:          5,
		RegistrationsOpen:    true,
		LengthPricingEnabled: true,
		LengthMult:           [4]int64{16, 8, 4, 2},
		FreeOverFive:         true,
	}, nil
}

// recorder collects every state transition.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return State{}
	}
	return r.states[len(r.states)-1]
}

func (r *recorder) saw(status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s.Status == status {
			return true
		}
	}
	return false
}

func newTestClient(backend Backend, rec *recorder) *Client {
	return New(backend, rec.record, WithDebounce(10*time.Millisecond))
}

func settle(t *testing.T, rec *recorder, want Status) State {
	t.Helper()
	require.Eventually(t, func() bool {
		return rec.last().Status == want
	}, time.Second, 5*time.Millisecond)
	return rec.last()
}

func TestLocalVerdictsSkipBackend(t *testing.T) {
	backend := newFakeBackend()
	rec := &recorder{}
	c := newTestClient(backend, rec)
	c.SetTLD("heaven")

	c.SetName("abc")
	require.Equal(t, StatusTooShort, c.State().Status)

	c.SetName("admin")
	require.Equal(t, StatusReserved, c.State().Status)

	c.SetName("no_caps!")
	require.Equal(t, StatusInvalid, c.State().Status)
	require.Equal(t, "invalid_chars", c.State().Reason)

	c.SetName("")
	require.Equal(t, StatusIdle, c.State().Status)

	// None of these may have produced a lookup, even after the debounce
	// window has long passed.
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, backend.availCalls.Load())
}

func TestAvailableNameBecomesValidWithPrice(t *testing.T) {
	backend := newFakeBackend()
	backend.available["luna"] = true
	rec := &recorder{}
	c := newTestClient(backend, rec)

	c.SetTLD("heaven")
	c.SetName("Luna")
	require.Equal(t, StatusChecking, c.State().Status)

	got := settle(t, rec, StatusValid)
	require.Equal(t, int64(40_000_000), got.Price) // 4 chars, x2 tier
	require.False(t, got.Free)
	require.True(t, rec.saw(StatusChecking))
}

func TestFreeTierPreview(t *testing.T) {
	backend := newFakeBackend()
	backend.available["sakura"] = true
	rec := &recorder{}
	c := newTestClient(backend, rec)

	c.SetTLD("heaven")
	c.SetName("sakura")

	got := settle(t, rec, StatusValid)
	require.Zero(t, got.Price)
	require.True(t, got.Free)
}

func TestTakenAndServerReserved(t *testing.T) {
	backend := newFakeBackend()
	backend.available["luna"] = false
	backend.available["mars"] = false
	backend.reasons["mars"] = "reserved"
	rec := &recorder{}
	c := newTestClient(backend, rec)
	c.SetTLD("heaven")

	c.SetName("luna")
	got := settle(t, rec, StatusInvalid)
	require.Equal(t, "taken", got.Reason)

	c.SetName("mars")
	settle(t, rec, StatusReserved)
}

func TestStaleResponseDiscarded(t *testing.T) {
	backend := newFakeBackend()
	backend.available["luna"] = true
	backend.available["mars"] = true
	backend.delays["luna"] = 200 * time.Millisecond
	rec := &recorder{}
	c := newTestClient(backend, rec)
	c.SetTLD("heaven")

	c.SetName("luna")
	time.Sleep(30 * time.Millisecond) // let luna's lookup depart
	c.SetName("mars")

	got := settle(t, rec, StatusValid)
	require.Equal(t, "mars", got.Name)

	// luna's slow answer lands afterwards and must change nothing
	time.Sleep(250 * time.Millisecond)
	require.Equal(t, "mars", c.State().Name)
	require.Equal(t, StatusValid, c.State().Status)
}

func TestDebounceCollapsesKeystrokes(t *testing.T) {
	backend := newFakeBackend()
	backend.available["lunar"] = true
	rec := &recorder{}
	c := newTestClient(backend, rec)
	c.SetTLD("heaven")

	for _, partial := range []string{"luna", "lunar"} {
		c.SetName(partial)
		time.Sleep(2 * time.Millisecond) // well inside the debounce window
	}

	settle(t, rec, StatusValid)
	require.Equal(t, int64(1), backend.availCalls.Load())
}

func TestTldConfigCached(t *testing.T) {
	backend := newFakeBackend()
	backend.available["luna"] = true
	backend.available["mars"] = true
	rec := &recorder{}
	c := newTestClient(backend, rec)
	c.SetTLD("heaven")

	c.SetName("luna")
	settle(t, rec, StatusValid)
	c.SetName("mars")
	settle(t, rec, StatusValid)

	require.Equal(t, int64(1), backend.configCalls.Load())
}

func TestPricePreviewString(t *testing.T) {
	require.Equal(t, "0.04", PricePreviewString(40_000_000, 9)[:4])
	require.Equal(t, "40000000", PricePreviewString(40_000_000, 0))
}
