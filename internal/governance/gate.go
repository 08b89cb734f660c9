package governance

import (
	"strings"

	"github.com/woakley/ghosthand/internal/observability"
)

// RejectionSink records rejected goals for the audit trail. Persistence
// is best-effort: a sink failure never blocks a decision.
type RejectionSink interface {
	LogRejection(goal, reason, user string) error
}

// harmfulFragments are scanned against the raw goal text. A goal
// containing any of them is rejected before planning.
var harmfulFragments = []string{
	"rm -rf",
	"format",
	"shutdown",
	"delete system32",
	"self-destruct",
}

// Gate enforces the goal-level loyalty rules: only the owner may issue
// goals, and goals with harmful phrasing are refused outright.
type Gate struct {
	Owner      string
	Rejections RejectionSink
	Logger     *observability.Logger
}

func NewGate(owner string, rejections RejectionSink, logger *observability.Logger) *Gate {
	return &Gate{Owner: strings.ToLower(owner), Rejections: rejections, Logger: logger}
}

// CanExecute reports whether the goal may proceed to planning, with a
// machine-readable reason when it may not.
func (g *Gate) CanExecute(goal, user string) (bool, string) {
	if strings.ToLower(user) != g.Owner {
		g.reject(goal, "unauthorised user", user)
		return false, "unauthorised user"
	}

	lowered := strings.ToLower(goal)
	for _, fragment := range harmfulFragments {
		if strings.Contains(lowered, fragment) {
			g.reject(goal, "potentially harmful", user)
			return false, "potentially harmful"
		}
	}

	return true, ""
}

func (g *Gate) reject(goal, reason, user string) {
	if g.Logger != nil {
		g.Logger.LogGuard(user, "goal rejected: "+reason)
	}
	if g.Rejections != nil {
		if err := g.Rejections.LogRejection(goal, reason, user); err != nil && g.Logger != nil {
			g.Logger.Warn("failed to record rejection: %v", err)
		}
	}
}
