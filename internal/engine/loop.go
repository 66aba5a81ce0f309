package engine

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/inango/chandler/internal/monitor"
	"github.com/inango/chandler/internal/probe"
)

// Run drives the event loop until Stop is called. It blocks the calling
// goroutine; all supervision work happens here, so counters and the
// monitor session never need locking.
func (e *Engine) Run() error {
	timer, err := e.timers.CreateRepeated(e.cfg.CheckInterval)
	if err != nil {
		e.log.Errorf("failed to create timer: %v", err)
		return fmt.Errorf("creating timer: %w", err)
	}
	defer timer.Close()
	defer e.wakeup.Close()

	e.log.Infof("created timer with %d msec interval", e.cfg.CheckInterval)

	for !e.stop.isSet() {
		// Best-effort monitor session at the top of every iteration.
		if e.session == nil {
			session, status := monitor.Create(e.cfg, e.log, e.dialer, e.OnDisconnect)
			if status == probe.Success {
				e.log.Infof("created ovsdb monitor")
				e.session = session
			} else {
				e.log.Errorf("failed to create ovsdb monitor: %s", status)
			}
		}

		fds := []unix.PollFd{
			{Fd: int32(timer.Fd()), Events: unix.POLLIN},
			{Fd: int32(e.wakeup.Fd()), Events: unix.POLLIN},
		}
		if e.session != nil {
			fds = append(fds, unix.PollFd{Fd: int32(e.session.Fd()), Events: unix.POLLIN})
		}

		n, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			e.log.Errorf("poll failed: %v", err)
			continue
		}
		if n == 0 {
			e.log.Errorf("poll timeout")
			continue
		}

		if fds[1].Revents&unix.POLLIN != 0 {
			e.wakeup.Drain()
		}

		if fds[0].Revents&unix.POLLIN != 0 {
			e.log.Debugf("-- timer")
			if err := timer.Drain(); err != nil {
				e.log.Errorf("failed to reset timer descriptor")
			}
			e.CheckCycle()
		}

		if e.session != nil && len(fds) > 2 && fds[2].Revents&unix.POLLIN != 0 {
			e.log.Debugf("-- ovsdb monitor event")
			if status := e.session.OnRead(); status != probe.Success {
				e.sleep(monitorBackoff)
				e.log.Warnf("destroying ovsdb monitor")
				e.session.Close()
				e.session = nil
			}
		}

		if e.shouldReboot() {
			e.escalate()
		}
	}

	if e.session != nil {
		e.session.Close()
		e.session = nil
	}

	return nil
}
