// Package breaker provides per-upstream circuit breakers that stop calls to
// repeatedly failing services until a cooldown elapses.
package breaker

import (
	"sync"
	"time"

	"github.com/fusesearch/fuse-search/internal/pkg/logger"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed allows calls through.
	StateClosed State = iota

	// StateOpen rejects calls without attempting them.
	StateOpen

	// StateHalfOpen allows a single trial call after the cooldown.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config configures a circuit breaker.
type Config struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int

	// Cooldown is how long an open breaker rejects calls before allowing a
	// half-open trial.
	Cooldown time.Duration

	// OnStateChange is invoked on every state transition.
	OnStateChange func(upstream string, from, to State)
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		Threshold: 5,
		Cooldown:  60 * time.Second,
	}
}

// Breaker is a circuit breaker for a single upstream service.
// Safe for concurrent use by multiple in-flight requests.
type Breaker struct {
	upstream string
	cfg      Config
	log      *logger.Logger

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a circuit breaker for the named upstream.
func New(upstream string, cfg Config, log *logger.Logger) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if log == nil {
		log = logger.Default()
	}

	return &Breaker{
		upstream: upstream,
		cfg:      cfg,
		log:      log,
		state:    StateClosed,
		now:      time.Now,
	}
}

// CanExecute reports whether a call to the upstream may be attempted.
// An open breaker transitions to half-open once the cooldown has elapsed
// since the last failure; the half-open state admits exactly one trial call
// until RecordSuccess or RecordFailure resolves it.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.cfg.Cooldown {
			b.setState(StateHalfOpen)
			b.trialInFlight = true
			b.log.WithProvider(b.upstream).Info("circuit breaker half-open, allowing trial call")
			return true
		}
		return false

	case StateHalfOpen:
		// One trial at a time
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failureCount = 0

	case StateHalfOpen:
		b.log.WithProvider(b.upstream).Info("circuit breaker recovered")
		b.setState(StateClosed)
		b.failureCount = 0
		b.trialInFlight = false

	case StateOpen:
		// A late success from before the breaker opened; ignore.
	}
}

// RecordFailure records a failed call outcome. Reaching the threshold of
// consecutive failures opens the breaker; a half-open trial failure reopens
// it and restarts the cooldown clock.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.cfg.Threshold {
			b.log.WithProvider(b.upstream).Warn("circuit breaker opened",
				"failure_count", b.failureCount,
				"threshold", b.cfg.Threshold,
			)
			b.setState(StateOpen)
		}

	case StateHalfOpen:
		b.log.WithProvider(b.upstream).Warn("circuit breaker trial failed, reopening")
		b.setState(StateOpen)
		b.trialInFlight = false

	case StateOpen:
		// Late failure from an already-rejected window; clock already reset above.
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the current consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Reset restores the breaker to the closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.state
	b.state = StateClosed
	b.failureCount = 0
	b.trialInFlight = false

	if b.cfg.OnStateChange != nil && old != StateClosed {
		go b.cfg.OnStateChange(b.upstream, old, StateClosed)
	}
}

// setState transitions the state and fires the change callback.
// Caller must hold b.mu.
func (b *Breaker) setState(next State) {
	old := b.state
	b.state = next

	if b.cfg.OnStateChange != nil {
		go b.cfg.OnStateChange(b.upstream, old, next)
	}
}
