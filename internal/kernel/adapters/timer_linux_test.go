//go:build linux

package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestTimerFires(t *testing.T) {
	timer, err := NewTimerFactory().CreateRepeated(10)
	require.NoError(t, err)
	defer timer.Close()

	fds := []unix.PollFd{{Fd: int32(timer.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, timer.Drain())

	// Drained: not readable again until the next interval.
	fds[0].Revents = 0
	n, err = unix.Poll(fds, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWakeupPipe(t *testing.T) {
	pipe, err := NewWakeupPipe()
	require.NoError(t, err)
	defer pipe.Close()

	fds := []unix.PollFd{{Fd: int32(pipe.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	require.NoError(t, err)
	require.Zero(t, n)

	pipe.Wake()

	n, err = unix.Poll(fds, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	pipe.Drain()

	fds[0].Revents = 0
	n, err = unix.Poll(fds, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}
