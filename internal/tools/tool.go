package tools

import (
	"context"
	"fmt"
	"sort"
)

// Capability defines the interface for all built-in agent capabilities.
// A capability groups related actions under one namespace; the planner
// addresses a step as capability + action + named params.
type Capability interface {
	Name() string
	Description() string
	Execute(ctx context.Context, action string, params map[string]any) (any, error)
}

// Registry manages the set of available capabilities.
type Registry struct {
	Capabilities map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{
		Capabilities: make(map[string]Capability),
	}
}

func (r *Registry) Register(c Capability) {
	r.Capabilities[c.Name()] = c
}

func (r *Registry) Get(name string) Capability {
	return r.Capabilities[name]
}

// Names returns the registered capability names, sorted for stable
// display.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Capabilities))
	for n := range r.Capabilities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// strParam reads a string-valued parameter; non-strings are
// stringified so back-referenced results remain usable as inputs.
func strParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
