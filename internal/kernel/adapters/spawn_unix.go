//go:build unix

package adapters

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/inango/chandler/internal/kernel/ports"
)

// maxCommandArgs caps how many tokens a spawn command line may carry.
const maxCommandArgs = 16

// CommandSpawner starts daemon processes from configured command lines and
// disowns them.
type CommandSpawner struct{}

// NewSpawner creates a CommandSpawner.
func NewSpawner() *CommandSpawner {
	return &CommandSpawner{}
}

// SplitCommand splits a command line on single spaces, dropping empty
// tokens, with a hard cap of maxCommandArgs.
func SplitCommand(command string) ([]string, error) {
	args := make([]string, 0, maxCommandArgs)
	for _, tok := range strings.Split(command, " ") {
		if tok == "" {
			continue
		}
		if len(args) == maxCommandArgs {
			return nil, fmt.Errorf("%w (> %d): %s", ports.ErrTooManyArgs, maxCommandArgs, command)
		}
		args = append(args, tok)
	}
	if len(args) == 0 {
		return nil, ports.ErrEmptyCommand
	}
	return args, nil
}

// SpawnCommand starts the command detached. The child inherits no
// descriptors beyond the standard three (pointed at /dev/null): the
// supervisor's timer and monitor descriptors are all close-on-exec.
// Success is reported as soon as the child process is running.
func (s *CommandSpawner) SpawnCommand(command string) error {
	args, err := SplitCommand(command)
	if err != nil {
		return err
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return ports.WrapError("spawn", err)
	}

	// Reap in the background so the child never lingers as a zombie; the
	// supervisor otherwise takes no interest in its exit.
	go func() { _ = cmd.Wait() }()

	return nil
}
