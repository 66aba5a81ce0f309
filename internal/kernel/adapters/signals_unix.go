//go:build unix

package adapters

import (
	"errors"

	"golang.org/x/sys/unix"
)

// UnixSignaler delivers signals to supervised processes by pid.
type UnixSignaler struct{}

// NewSignaler creates a UnixSignaler.
func NewSignaler() *UnixSignaler {
	return &UnixSignaler{}
}

// Kill sends SIGKILL to pid. The returned error, when non-nil, is the raw
// errno: the engine distinguishes EINVAL/EPERM from everything else.
func (s *UnixSignaler) Kill(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}

// Exists probes pid with the null signal. EPERM still means the process
// exists; only ESRCH means it is gone.
func (s *UnixSignaler) Exists(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return !errors.Is(err, unix.ESRCH)
}
