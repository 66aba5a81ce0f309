//go:build unix

package adapters

import (
	"errors"
	"os/exec"

	"github.com/inango/chandler/internal/kernel/ports"
)

// outputChunkSize is the rolling stdout buffer size for operator commands.
const outputChunkSize = 4095

// ShellRunner runs operator commands through the shell, synchronously,
// draining stdout for logging.
type ShellRunner struct{}

// NewRunner creates a ShellRunner.
func NewRunner() *ShellRunner {
	return &ShellRunner{}
}

// Run executes command via /bin/sh -c, feeds stdout to onOutput in chunks
// of at most 4 KiB, waits for exit and returns the exit status.
func (r *ShellRunner) Run(command string, onOutput func(string)) (int, error) {
	cmd := exec.Command("/bin/sh", "-c", command)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, ports.WrapError("stdout pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return -1, ports.WrapError("start", err)
	}

	buf := make([]byte, outputChunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 && onOutput != nil {
			onOutput(string(buf[:n]))
		}
		if err != nil {
			// EOF or a broken pipe; either way the exit status below is
			// what matters.
			break
		}
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, ports.WrapError("wait", err)
	}

	return 0, nil
}
