package executil

import (
	"context"
	"io"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Cmd  string
	Args []string
}

// RecordingExecutor captures commands for testing.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps command names to the bytes written to stdout.
	Outputs map[string][]byte

	// Errors maps command names to their error.
	Errors map[string]error
}

// RunStream records the command and writes configured output to stdout.
func (e *RecordingExecutor) RunStream(_ context.Context, stdout, _ io.Writer, cmd string, args ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Commands = append(e.Commands, RecordedCommand{Cmd: cmd, Args: args})

	if out := e.Outputs[cmd]; stdout != nil && len(out) > 0 {
		_, _ = stdout.Write(out)
	}
	return e.Errors[cmd]
}
