//go:build linux

// Package adapters provides OS-specific implementations of kernel interfaces.
package adapters

import (
	"golang.org/x/sys/unix"

	"github.com/inango/chandler/internal/kernel/ports"
)

// TimerfdFactory creates repeating timers backed by timerfd.
type TimerfdFactory struct{}

// NewTimerFactory creates a TimerfdFactory.
func NewTimerFactory() *TimerfdFactory {
	return &TimerfdFactory{}
}

// CreateRepeated creates a CLOCK_MONOTONIC timer firing every intervalMsec
// milliseconds, with the first expiration one full interval out.
func (f *TimerfdFactory) CreateRepeated(intervalMsec int64) (ports.Timer, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, 0)
	if err != nil {
		return nil, ports.WrapError("timerfd_create", err)
	}

	interval := unix.Timespec{
		Sec:  intervalMsec / 1000,
		Nsec: (intervalMsec % 1000) * 1e6,
	}
	spec := unix.ItimerSpec{Interval: interval, Value: interval}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return nil, ports.WrapError("timerfd_settime", err)
	}

	return &timerfd{fd: fd}, nil
}

type timerfd struct {
	fd int
}

// Fd returns the pollable descriptor.
func (t *timerfd) Fd() int { return t.fd }

// Drain reads the 8-byte expiration counter so the descriptor stops
// polling readable.
func (t *timerfd) Drain() error {
	var buf [8]byte
	n, err := unix.Read(t.fd, buf[:])
	if err != nil {
		return ports.WrapError("timerfd read", err)
	}
	if n != len(buf) {
		return ports.WrapError("timerfd read", unix.EIO)
	}
	return nil
}

// Close releases the timer descriptor.
func (t *timerfd) Close() error {
	return unix.Close(t.fd)
}
