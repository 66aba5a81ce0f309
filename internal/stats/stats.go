// Package stats holds the supervision counters that feed reboot escalation.
package stats

import "sync/atomic"

// Counters accumulates supervision outcomes for the lifetime of the daemon.
// All three values are monotonically non-decreasing. They are written only
// from the engine goroutine; atomics make them safe to snapshot from the
// status transport.
type Counters struct {
	kills    atomic.Int64
	restarts atomic.Int64
	failures atomic.Int64
}

// Kills returns how many processes were force-killed.
func (c *Counters) Kills() int64 { return c.kills.Load() }

// Restarts returns how many processes were successfully spawned.
func (c *Counters) Restarts() int64 { return c.restarts.Load() }

// Failures returns how many check cycles could neither kill nor spawn.
func (c *Counters) Failures() int64 { return c.failures.Load() }

// AddKill records one successful forced kill.
func (c *Counters) AddKill() { c.kills.Add(1) }

// AddRestart records one successful spawn.
func (c *Counters) AddRestart() { c.restarts.Add(1) }

// AddFailure records one check cycle that could neither kill nor spawn.
func (c *Counters) AddFailure() { c.failures.Add(1) }
