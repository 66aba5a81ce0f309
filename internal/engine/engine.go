// Package engine is the supervision core: a single-goroutine event loop
// multiplexing the periodic check timer with the database monitor session,
// plus the kill/respawn state machine and reboot escalation.
package engine

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/inango/chandler/internal/config"
	"github.com/inango/chandler/internal/kernel"
	"github.com/inango/chandler/internal/kernel/adapters"
	"github.com/inango/chandler/internal/kernel/ports"
	"github.com/inango/chandler/internal/logging"
	"github.com/inango/chandler/internal/monitor"
	"github.com/inango/chandler/internal/probe"
	"github.com/inango/chandler/internal/stats"
)

// monitorBackoff is how long the engine waits before tearing down a failed
// monitor session.
const monitorBackoff = time.Second

// prober is the liveness oracle the check cycle consults.
type prober interface {
	Status(target, pidfile, unixctl string) (probe.DaemonStatus, int)
}

// stopFlag is a loop-head cancellation flag, flipped from the signal
// goroutine.
type stopFlag struct {
	ch chan struct{}
}

func newStopFlag() *stopFlag {
	return &stopFlag{ch: make(chan struct{})}
}

func (f *stopFlag) set() {
	select {
	case <-f.ch:
	default:
		close(f.ch)
	}
}

func (f *stopFlag) isSet() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

// Engine owns the timer and monitor wait sources and runs check cycles.
type Engine struct {
	cfg      *config.Config
	log      *logging.Logger
	counters *stats.Counters

	timers   ports.TimerFactory
	dialer   ports.Dialer
	signaler ports.Signaler
	spawner  ports.Spawner
	runner   ports.CommandRunner
	rebooter ports.Rebooter
	prober   prober

	session *monitor.Session
	wakeup  wakeupPipe
	stop    *stopFlag
	sleep   func(time.Duration)
}

// wakeupPipe interrupts a poll in progress from another goroutine.
type wakeupPipe interface {
	Fd() int
	Wake()
	Drain()
	Close() error
}

// New creates an Engine on the given kernel.
func New(cfg *config.Config, log *logging.Logger, counters *stats.Counters, k *kernel.Kernel) (*Engine, error) {
	wakeup, err := adapters.NewWakeupPipe()
	if err != nil {
		return nil, err
	}
	return &Engine{
		wakeup:   wakeup,
		cfg:      cfg,
		log:      log,
		counters: counters,
		timers:   k.Timers,
		dialer:   k.Dialer,
		signaler: k.Signaler,
		spawner:  k.Spawner,
		runner:   k.Runner,
		rebooter: k.Rebooter,
		prober:   probe.New(cfg, log, k.Dialer, k.Finder, k.Signaler),
		stop:     newStopFlag(),
		sleep:    time.Sleep,
	}, nil
}

// Counters exposes the engine's counters for the status transport.
func (e *Engine) Counters() *stats.Counters {
	return e.counters
}

// CheckCycle probes both targets, the database daemon first: the switch
// depends on the database socket, so reviving the database first narrows
// the window in which a restarted switch finds no database.
func (e *Engine) CheckCycle() {
	e.checkDaemon(e.cfg.NameDB, e.cfg.PidfileDB, e.cfg.UnixctlDB, e.cfg.CmdDB)
	e.checkDaemon(e.cfg.NameSwitch, e.cfg.PidfileSwitch, e.cfg.UnixctlSwitch, e.cfg.CmdSwitch)
}

// checkDaemon runs one target through the check state machine: retry on
// NoResponse, kill on NotAlive, then spawn.
func (e *Engine) checkDaemon(target, pidfile, unixctl, cmd string) {
	retries := e.cfg.RequestRetries
	if retries <= 0 {
		retries = 1
	}

	var status probe.DaemonStatus
	var pid int
	for attempt := int64(1); attempt <= retries; attempt++ {
		status, pid = e.prober.Status(target, pidfile, unixctl)
		if status == probe.Alive {
			return
		}
		if status != probe.NoResponse {
			break
		}
		e.log.Warnf("check attempt %d of %d has failed - retrying", attempt, retries)
	}

	if status == probe.NotAlive {
		e.log.Warnf("trying to kill the process \"%s\" with pid %d", target, pid)
		if err := e.signaler.Kill(pid); err != nil {
			if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EPERM) {
				// The process is believed alive but untouchable; a spawn on
				// top of a stale pid would race the real daemon.
				e.log.Errorf("failed to kill process \"%s\" with pid %d: %v", target, pid, err)
				e.counters.AddFailure()
				return
			}
			// Any other errno means the process is already gone.
		} else {
			e.log.Warnf("killed the process \"%s\" with pid %d", target, pid)
			e.counters.AddKill()
		}
	}

	if err := e.spawner.SpawnCommand(cmd); err != nil {
		e.log.Errorf("failed to spawn a process for \"%s\": %v", target, err)
		e.counters.AddFailure()
	} else {
		e.log.Infof("spawned a new process from command: %s", cmd)
		e.counters.AddRestart()
	}
}

// OnDisconnect is the monitor's disconnect hook: it runs the operator's
// recovery command synchronously, so it serializes with check cycles.
func (e *Engine) OnDisconnect() {
	e.log.Warnf("received disconnect notification")

	if e.cfg.CmdDisconnect == "" {
		return
	}

	e.log.Warnf("invoked disconnect command \"%s\"", e.cfg.CmdDisconnect)

	_, err := e.runner.Run(e.cfg.CmdDisconnect, func(out string) {
		e.log.Debugf("-- %s", out)
	})
	if err != nil {
		e.log.Errorf("failed to invoke disconnect command \"%s\": %v", e.cfg.CmdDisconnect, err)
	}
}

// shouldReboot evaluates the escalation predicate. Strictly greater-than:
// a threshold of N permits exactly N events before escalation.
func (e *Engine) shouldReboot() bool {
	return (e.cfg.RestartsBeforeReboot > 0 && e.counters.Restarts() > e.cfg.RestartsBeforeReboot) ||
		(e.cfg.FailuresBeforeReboot > 0 && e.counters.Failures() > e.cfg.FailuresBeforeReboot)
}

// escalate reboots the host, preferring the operator's reboot command.
func (e *Engine) escalate() {
	e.log.Infof("restarts count: %d (max: %d)", e.counters.Restarts(), e.cfg.RestartsBeforeReboot)
	e.log.Infof("failures count: %d (max: %d)", e.counters.Failures(), e.cfg.FailuresBeforeReboot)
	e.log.Warnf("rebooting the system...")

	if err := e.reboot(); err != nil {
		e.log.Errorf("failed to reboot the system: %v", err)
	}
}

func (e *Engine) reboot() error {
	if e.cfg.CmdReboot == "" {
		return e.rebooter.Reboot()
	}

	e.log.Warnf("invoking reboot command \"%s\"", e.cfg.CmdReboot)

	code, err := e.runner.Run(e.cfg.CmdReboot, func(out string) {
		e.log.Debugf("-- %s", out)
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return errors.New("reboot command failed")
	}
	return nil
}

// Stop requests loop exit, checked at loop-head granularity. The wakeup
// source interrupts a poll in progress; in-flight work completes first.
func (e *Engine) Stop() {
	e.stop.set()
	e.wakeup.Wake()
}
