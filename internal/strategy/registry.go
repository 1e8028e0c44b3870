package strategy

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Info holds runtime info for a registered strategy (for status APIs).
type Info struct {
	Name        string
	Status      string // "pending", "running", "stopped", "error"
	OrdersSent  int64
	LastOrderAt *time.Time
	ErrorCount  int64
}

// Registry manages a named collection of strategies that can be looked up at
// runtime. It is safe for concurrent use.
type Registry struct {
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry under the given name.
// If a strategy with the same name already exists it will be replaced.
func (r *Registry) Register(name string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[name] = s
}

// Get retrieves a strategy by name. It returns an error when the name is not
// registered.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", name)
	}
	return s, nil
}

// List returns the names of all registered strategies in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ListInfo returns runtime info for all registered strategies. Status is
// "pending" until the quoter runs the strategy.
func (r *Registry) ListInfo() []Info {
	names := r.List()
	infos := make([]Info, 0, len(names))
	for _, n := range names {
		infos = append(infos, Info{Name: n, Status: "pending"})
	}
	return infos
}

// Runtime exposes the registry together with the live quoter counters for
// the strategies status endpoint.
type Runtime struct {
	registry *Registry
	active   string
	quoter   *Quoter
}

// NewRuntime wraps the registry and the quoter driving the active strategy.
func NewRuntime(registry *Registry, active string, quoter *Quoter) *Runtime {
	return &Runtime{registry: registry, active: active, quoter: quoter}
}

// ActiveName returns the name of the strategy the quoter is running.
func (r *Runtime) ActiveName() string { return r.active }

// ListInfo returns runtime info for every registered strategy, with the
// active one carrying the quoter's live counters.
func (r *Runtime) ListInfo() []Info {
	infos := r.registry.ListInfo()
	for i := range infos {
		if infos[i].Name != r.active || r.quoter == nil {
			continue
		}
		infos[i].Status = "running"
		infos[i].OrdersSent = r.quoter.OrdersSent()
		infos[i].ErrorCount = r.quoter.ErrorCount()
		if at := r.quoter.LastOrderAt(); !at.IsZero() {
			infos[i].LastOrderAt = &at
		}
	}
	return infos
}
