package governance

import (
	"context"
	"os/exec"
)

// EventSink records security events (first_run, voice, tamper).
type EventSink interface {
	LogEvent(event, user, details string) error
}

// Verifier resolves whether the acting session belongs to the owner.
// The verification method itself (voice biometrics, session token) is an
// external collaborator; the core only consumes the verdict.
type Verifier interface {
	Verify(ctx context.Context, user string) (bool, error)
}

// CommandVerifier shells out to a configured verification command.
// Exit status zero means verified. The command receives the user id as
// its final argument.
type CommandVerifier struct {
	Command []string
	Events  EventSink
}

func (v *CommandVerifier) Verify(ctx context.Context, user string) (bool, error) {
	if len(v.Command) == 0 {
		return false, nil
	}
	args := append(append([]string{}, v.Command[1:]...), user)
	err := exec.CommandContext(ctx, v.Command[0], args...).Run()
	ok := err == nil
	if v.Events != nil {
		details := "success"
		if !ok {
			details = "fail"
		}
		_ = v.Events.LogEvent("voice", user, details)
	}
	if _, isExit := err.(*exec.ExitError); isExit {
		// A non-zero exit is a verdict, not a failure to verify.
		return false, nil
	}
	return ok, err
}

// OpenVerifier accepts every session. Used when no verification command
// is configured, so a bare install still runs.
type OpenVerifier struct{}

func (OpenVerifier) Verify(ctx context.Context, user string) (bool, error) {
	return true, nil
}
