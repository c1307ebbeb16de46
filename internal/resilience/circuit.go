// Package resilience provides the circuit breaker and retry machinery
// that guards every outbound provider call in the pipeline.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed lets calls through normally.
	StateClosed State = iota
	// StateOpen rejects calls immediately until the cooldown elapses.
	StateOpen
	// StateHalfOpen admits probe calls to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when a call is rejected because the breaker is open.
var ErrOpen = eris.New("circuit breaker open")

// BreakerConfig controls a single breaker's state machine.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker. Default 5.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before admitting a
	// half-open probe. Default 30s.
	Cooldown time.Duration
	// SuccessThreshold is the consecutive successes required in half-open
	// before the breaker closes again. Default 1.
	SuccessThreshold int
	// OnStateChange, if set, is invoked on every transition.
	OnStateChange func(provider string, from, to State)
}

// DefaultBreakerConfig returns the defaults used for provider calls.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		SuccessThreshold: 1,
	}
}

// Snapshot is an observability view of one breaker.
type Snapshot struct {
	Provider             string    `json:"provider"`
	State                State     `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	OpenedAt             time.Time `json:"opened_at,omitempty"`
}

// Breaker is a per-provider circuit breaker. All state is guarded by mu
// and mutated only inside Execute/ExecuteVal.
type Breaker struct {
	provider string
	cfg      BreakerConfig

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time

	nowFunc func() time.Time
}

// NewBreaker creates a breaker for the named provider.
func NewBreaker(provider string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	return &Breaker{
		provider: provider,
		cfg:      cfg,
		state:    StateClosed,
		nowFunc:  time.Now,
	}
}

// Execute runs fn through the breaker. When the breaker is open and the
// cooldown has not elapsed, fn is never invoked and ErrOpen is returned.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// ExecuteVal is Execute for calls that return a value.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// State returns the effective state, accounting for an elapsed cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.nowFunc().Sub(b.openedAt) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Snapshot returns the breaker's current counters for observability.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Provider:             b.provider,
		State:                b.state,
		ConsecutiveFailures:  b.failures,
		ConsecutiveSuccesses: b.successes,
		OpenedAt:             b.openedAt,
	}
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.nowFunc().Sub(b.openedAt) >= b.cfg.Cooldown {
			b.transition(StateHalfOpen)
			return nil
		}
		return ErrOpen
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		switch b.state {
		case StateHalfOpen:
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.transition(StateClosed)
				b.failures = 0
				b.successes = 0
			}
		case StateClosed:
			b.failures = 0
		}
		return
	}

	b.failures++
	b.successes = 0

	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.nowFunc()
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		// Any failure during a probe reopens immediately.
		b.openedAt = b.nowFunc()
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.provider, from, to)
	}
}

// Breakers is a registry of per-provider breakers. It is constructed
// explicitly and passed to its consumers; there is no package-level
// instance, so tests can build isolated registries.
type Breakers struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	cfg      BreakerConfig
}

// NewBreakers creates a registry using cfg for every breaker it creates.
func NewBreakers(cfg BreakerConfig) *Breakers {
	return &Breakers{
		breakers: make(map[string]*Breaker),
		cfg:      cfg,
	}
}

// Get returns the breaker for provider, creating it on first use.
func (r *Breakers) Get(provider string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[provider]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.breakers[provider]; ok {
		return b
	}
	b = NewBreaker(provider, r.cfg)
	r.breakers[provider] = b
	return b
}

// Snapshots returns a point-in-time view of every registered breaker.
func (r *Breakers) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snaps := make([]Snapshot, 0, len(r.breakers))
	for _, b := range r.breakers {
		snaps = append(snaps, b.Snapshot())
	}
	return snaps
}
