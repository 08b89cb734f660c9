package agent

import (
	"context"
	"os/exec"
	"time"
)

// CommandNarrator speaks text by shelling out to a configured command
// (espeak, say, a TTS wrapper). Errors are ignored: narration is a
// convenience, never a dependency.
type CommandNarrator struct {
	Command []string
}

func (n *CommandNarrator) Speak(text string) {
	if len(n.Command) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	args := append(append([]string{}, n.Command[1:]...), text)
	_ = exec.CommandContext(ctx, n.Command[0], args...).Run()
}
