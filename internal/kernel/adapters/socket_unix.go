//go:build unix

package adapters

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/inango/chandler/internal/kernel/ports"
)

// maxSunPathLen is the sockaddr_un path capacity including the
// terminating NUL.
const maxSunPathLen = 108

// UnixDialer opens raw AF_UNIX stream connections. Raw descriptors are
// used instead of net.Conn so connect and receive failures keep their
// errno identity for the prober's status taxonomy.
type UnixDialer struct{}

// NewDialer creates a UnixDialer.
func NewDialer() *UnixDialer {
	return &UnixDialer{}
}

// ConnectStream connects a SOCK_STREAM socket to path.
func (d *UnixDialer) ConnectStream(path string) (ports.Conn, error) {
	if path == "" {
		return nil, unix.EADDRNOTAVAIL
	}
	if len(path) >= maxSunPathLen {
		return nil, unix.E2BIG
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}

	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &unixConn{fd: fd}, nil
}

type unixConn struct {
	fd int
}

// Fd returns the pollable descriptor.
func (c *unixConn) Fd() int { return c.fd }

// Send writes p to the socket.
func (c *unixConn) Send(p []byte) (int, error) {
	return unix.Write(c.fd, p)
}

// Recv reads from the socket. A timed-out receive returns unix.EAGAIN; an
// orderly close returns (0, nil).
func (c *unixConn) Recv(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

// SetRecvTimeout installs SO_RCVTIMEO on the socket.
func (c *unixConn) SetRecvTimeout(d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(c.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// Close releases the socket.
func (c *unixConn) Close() error {
	return unix.Close(c.fd)
}
