package skills

import (
	"context"
	"sync"
)

// Skill is the shared plugin contract: a skill claims goals it can
// handle and executes them as a single step.
type Skill interface {
	Name() string
	CanHandle(goal string) bool
	Execute(ctx context.Context, params map[string]any) (any, error)
}

// Registry holds loaded skills keyed by name, preserving discovery
// order. Skills are registered once per process and never unloaded.
type Registry struct {
	mu     sync.Mutex
	byName map[string]Skill
	order  []string
	loaded map[string]bool // manifest paths already consumed
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Skill),
		loaded: make(map[string]bool),
	}
}

// Register adds a skill. Already-registered names are skipped, keeping
// discovery idempotent.
func (r *Registry) Register(s Skill) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[s.Name()]; exists {
		return false
	}
	r.byName[s.Name()] = s
	r.order = append(r.order, s.Name())
	return true
}

// Get returns a previously loaded skill by name.
func (r *Registry) Get(name string) Skill {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byName[name]
}

// All returns the loaded skills in discovery order.
func (r *Registry) All() []Skill {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Skill, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
