// Package kernel provides OS abstraction for chandler.
package kernel

import (
	"github.com/inango/chandler/internal/kernel/adapters"
	"github.com/inango/chandler/internal/kernel/ports"
)

// Kernel aggregates the platform adapters the supervision engine runs on.
type Kernel struct {
	// Timers creates repeating timer wait sources.
	Timers ports.TimerFactory
	// Dialer opens stream Unix-domain connections.
	Dialer ports.Dialer
	// Finder resolves daemon pids.
	Finder ports.ProcessFinder
	// Signaler delivers signals by pid.
	Signaler ports.Signaler
	// Spawner launches daemons fire-and-forget.
	Spawner ports.Spawner
	// Runner executes operator commands synchronously.
	Runner ports.CommandRunner
	// Rebooter restarts the host.
	Rebooter ports.Rebooter
}

// New creates a Kernel with platform-specific implementations.
func New() *Kernel {
	return &Kernel{
		Timers:   adapters.NewTimerFactory(),
		Dialer:   adapters.NewDialer(),
		Finder:   adapters.NewProcFinder(),
		Signaler: adapters.NewSignaler(),
		Spawner:  adapters.NewSpawner(),
		Runner:   adapters.NewRunner(),
		Rebooter: adapters.NewRebooter(),
	}
}

// Default is the default kernel instance.
var Default *Kernel = New()
