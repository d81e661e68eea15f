package breaker

import (
	"sync"

	"github.com/fusesearch/fuse-search/internal/pkg/logger"
)

// Registry owns one breaker per upstream service name. It is constructed once
// at startup and shared across requests; breakers are created lazily on first
// use so provider lists can change without code changes.
type Registry struct {
	cfg Config
	log *logger.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a breaker registry with a shared configuration.
func NewRegistry(cfg Config, log *logger.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		log:      log,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the named upstream, creating it if needed.
func (r *Registry) Get(upstream string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[upstream]
	if !ok {
		b = New(upstream, r.cfg, r.log)
		r.breakers[upstream] = b
	}
	return b
}

// States returns a snapshot of the current state per upstream.
func (r *Registry) States() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State()
	}
	return states
}

// ResetAll restores every breaker to the closed state.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.breakers {
		b.Reset()
	}
}
