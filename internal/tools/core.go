package tools

import (
	"context"
	"fmt"
	"log"
)

// CoreCapability hosts trivial built-in actions, most importantly the
// "print" fallback step the planner emits when a goal is not understood.
type CoreCapability struct{}

func NewCoreCapability() *CoreCapability {
	return &CoreCapability{}
}

func (c *CoreCapability) Name() string {
	return "core"
}

func (c *CoreCapability) Description() string {
	return "Built-in actions: print a message to the operator."
}

func (c *CoreCapability) Execute(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "print":
		text := strParam(params, "text")
		log.Printf("[core] %s", text)
		return text, nil
	default:
		return nil, fmt.Errorf("unknown core action %q", action)
	}
}
