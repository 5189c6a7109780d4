package voice

import (
	"context"
	"fmt"
	"os/exec"
)

// CommandSynthesizer speaks by invoking an external TTS command (espeak,
// say, piper, ...) with the sentence appended as the final argument. The
// platform speech engine itself stays outside the process.
type CommandSynthesizer struct {
	Command string
	Args    []string
}

var _ Synthesizer = (*CommandSynthesizer)(nil)

// Speak runs the command and blocks until the utterance finishes.
// Cancelling ctx kills the process, which is how Stop interrupts playback.
func (c *CommandSynthesizer) Speak(ctx context.Context, sentence string) error {
	args := make([]string, 0, len(c.Args)+1)
	args = append(args, c.Args...)
	args = append(args, sentence)

	cmd := exec.CommandContext(ctx, c.Command, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", c.Command, err)
	}
	return nil
}
