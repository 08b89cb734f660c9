package governance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of a planned step to be evaluated.
type Request struct {
	Capability string
	Action     string
	User       string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates planned steps against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine is a basic implementation of PolicyEngine.
type DefaultPolicyEngine struct {
	DeniedCapabilities map[string]bool
	DeniedActions      []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedCapabilities: make(map[string]bool),
		DeniedActions:      make([]*regexp.Regexp, 0),
	}
}

// NewStepPolicy returns the policy applied to every step before
// execution: raw process access is off limits and so is any action
// whose name looks destructive, even when the goal itself passed the
// owner gate.
func NewStepPolicy() *DefaultPolicyEngine {
	e := NewDefaultPolicyEngine()
	e.DenyCapability("os")
	e.DenyCapability("subprocess")
	e.DenyCapability("shell")
	_ = e.DenyAction(`(delete|remove|format|shutdown)`)
	return e
}

func (e *DefaultPolicyEngine) DenyCapability(name string) {
	e.DeniedCapabilities[strings.ToLower(name)] = true
}

func (e *DefaultPolicyEngine) DenyAction(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedActions = append(e.DeniedActions, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedCapabilities[strings.ToLower(req.Capability)] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("capability '%s' is restricted by system policy", req.Capability),
		}, nil
	}

	action := strings.ToLower(req.Action)
	for _, re := range e.DeniedActions {
		if re.MatchString(action) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("action matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "approved by default policy",
	}, nil
}
