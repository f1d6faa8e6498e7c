// Package nameclient is the embeddable client-side facade for name
// selection UIs. It mirrors the server's label syntax and pricing rules so a
// user sees an instant verdict and an accurate price before signing, then
// confirms availability against the registrar with debounced lookups.
//
// The facade tracks the latest requested (name, tld) pair and discards any
// async result that arrives for a stale pair; a response is either applied to
// the exact input it was requested for or dropped.
package nameclient

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"hvn/internal/name/label"
	"hvn/internal/name/models"
	"hvn/internal/name/pricing"
)

// Status is the facade's input state.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusChecking Status = "checking"
	StatusValid    Status = "valid"
	StatusInvalid  Status = "invalid"
	StatusReserved Status = "reserved"
	StatusTooShort Status = "too_short"
)

// State is one snapshot of the facade, delivered to the update callback.
type State struct {
	Name   string
	TLD    string
	Status Status
	Reason string
	// Price is the local preview for the current input, in the smallest
	// currency unit. Only meaningful when Status is valid.
	Price int64
	Free  bool
}

// Backend is the remote half of the facade: availability checks and
// namespace policy fetches.
type Backend interface {
	Available(ctx context.Context, tld, lbl string) (available bool, reason string, err error)
	TldConfig(ctx context.Context, tld string) (models.TldConfig, error)
}

const (
	defaultDebounce = 300 * time.Millisecond
	configTTL       = 5 * time.Minute
)

// Client is the facade. All exported methods are safe for concurrent use,
// though the intended caller is a single UI loop.
type Client struct {
	backend  Backend
	debounce time.Duration
	onUpdate func(State)
	configs  *gocache.Cache

	mu    sync.Mutex
	state State
	years int
	seq   uint64
	timer *time.Timer
}

// Option configures the Client.
type Option func(*Client)

// WithDebounce overrides the lookup debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Client) { c.debounce = d }
}

// WithYears sets the term used for price previews. Default 1.
func WithYears(years int) Option {
	return func(c *Client) { c.years = years }
}

// New builds a facade. onUpdate receives every state transition, including
// the intermediate checking state.
func New(backend Backend, onUpdate func(State), opts ...Option) *Client {
	c := &Client{
		backend:  backend,
		debounce: defaultDebounce,
		onUpdate: onUpdate,
		configs:  gocache.New(configTTL, 2*configTTL),
		state:    State{Status: StatusIdle},
		years:    1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetName updates the candidate label and re-evaluates.
func (c *Client) SetName(name string) {
	c.mu.Lock()
	c.state.Name = name
	c.evaluateLocked()
	c.mu.Unlock()
}

// SetTLD updates the selected namespace and re-evaluates.
func (c *Client) SetTLD(tld string) {
	c.mu.Lock()
	c.state.TLD = tld
	c.evaluateLocked()
	c.mu.Unlock()
}

// evaluateLocked runs the local validator and either settles immediately or
// schedules a debounced remote lookup. Callers hold c.mu.
func (c *Client) evaluateLocked() {
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	name, tld := c.state.Name, c.state.TLD
	if name == "" || tld == "" {
		c.setLocked(State{Name: name, TLD: tld, Status: StatusIdle})
		return
	}

	res := label.CheckRegistrable(name)
	if !res.Valid {
		c.setLocked(State{Name: name, TLD: tld, Status: localStatus(res.Reason), Reason: string(res.Reason)})
		return
	}

	c.setLocked(State{Name: name, TLD: tld, Status: StatusChecking})
	seq := c.seq
	c.timer = time.AfterFunc(c.debounce, func() {
		c.lookup(seq, tld, res.Normalized)
	})
}

// lookup performs the remote check for one debounced input. The captured seq
// makes stale results self-identifying: the state is only applied when no
// newer input superseded this one.
func (c *Client) lookup(seq uint64, tld, lbl string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	available, reason, err := c.backend.Available(ctx, tld, lbl)
	next := State{TLD: tld}
	switch {
	case err != nil:
		next.Status = StatusInvalid
		next.Reason = "unavailable"
	case !available:
		if reason == string(label.ReasonReserved) {
			next.Status = StatusReserved
		} else {
			next.Status = StatusInvalid
		}
		next.Reason = reason
		if next.Reason == "" {
			next.Reason = "taken"
		}
	default:
		next.Status = StatusValid
		if price, ok := c.preview(ctx, tld, lbl); ok {
			next.Price = price
			next.Free = price == 0
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return // a newer input owns the state now
	}
	next.Name = c.state.Name
	c.setLocked(next)
}

// preview computes the local price for the current input using the cached
// namespace policy. Mirrors the server's engine exactly; ForDisplay so
// sub-minimum labels still show a number.
func (c *Client) preview(ctx context.Context, tld, lbl string) (int64, bool) {
	cfg, err := c.tldConfig(ctx, tld)
	if err != nil {
		return 0, false
	}
	price, err := pricing.Quote(cfg, lbl, c.yearsNow(), true)
	if err != nil {
		return 0, false
	}
	return price, true
}

func (c *Client) tldConfig(ctx context.Context, tld string) (models.TldConfig, error) {
	if cached, ok := c.configs.Get(tld); ok {
		return cached.(models.TldConfig), nil
	}
	cfg, err := c.backend.TldConfig(ctx, tld)
	if err != nil {
		return models.TldConfig{}, err
	}
	c.configs.SetDefault(tld, cfg)
	return cfg, nil
}

func (c *Client) yearsNow() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.years
}

func (c *Client) setLocked(next State) {
	c.state = next
	if c.onUpdate != nil {
		c.onUpdate(next)
	}
}

func localStatus(reason label.Reason) Status {
	switch reason {
	case label.ReasonTooShort:
		return StatusTooShort
	case label.ReasonReserved:
		return StatusReserved
	default:
		return StatusInvalid
	}
}

// PricePreviewString formats a smallest-unit price with the given number of
// decimals, for UIs that show "0.04" rather than "40000000".
func PricePreviewString(price int64, decimals int) string {
	if decimals <= 0 {
		return strconv.FormatInt(price, 10)
	}
	whole := price
	div := int64(1)
	for i := 0; i < decimals; i++ {
		div *= 10
	}
	frac := whole % div
	whole /= div
	s := strconv.FormatInt(whole, 10) + "." + pad(strconv.FormatInt(frac, 10), decimals)
	return s
}

func pad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
