//go:build linux

package adapters

import (
	"golang.org/x/sys/unix"

	"github.com/inango/chandler/internal/kernel/ports"
)

// SystemRebooter issues the platform reboot.
type SystemRebooter struct{}

// NewRebooter creates a SystemRebooter.
func NewRebooter() *SystemRebooter {
	return &SystemRebooter{}
}

// Reboot syncs filesystems, attempts to acquire root and restarts the
// host. A setuid failure is not fatal: the reboot is still attempted.
func (r *SystemRebooter) Reboot() error {
	unix.Sync()

	_ = unix.Setuid(0)

	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return ports.WrapError("reboot", err)
	}
	return nil
}
