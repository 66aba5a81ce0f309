//go:build unix

package adapters

import (
	"golang.org/x/sys/unix"

	"github.com/inango/chandler/internal/kernel/ports"
)

// WakeupPipe is a self-pipe registered with the engine's poll so that a
// signal delivered on another goroutine interrupts the wait within one
// tick.
type WakeupPipe struct {
	r int
	w int
}

// NewWakeupPipe creates a non-blocking pipe pair.
func NewWakeupPipe() (*WakeupPipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, ports.WrapError("pipe2", err)
	}
	return &WakeupPipe{r: fds[0], w: fds[1]}, nil
}

// Fd returns the read end for polling.
func (p *WakeupPipe) Fd() int { return p.r }

// Wake makes the read end readable. Safe to call from any goroutine; a
// full pipe is as good as a written one.
func (p *WakeupPipe) Wake() {
	_, _ = unix.Write(p.w, []byte{1})
}

// Drain empties the read end.
func (p *WakeupPipe) Drain() {
	var buf [16]byte
	for {
		n, err := unix.Read(p.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases both ends.
func (p *WakeupPipe) Close() error {
	err1 := unix.Close(p.r)
	err2 := unix.Close(p.w)
	if err1 != nil {
		return err1
	}
	return err2
}
