//go:build linux

package adapters

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/inango/chandler/internal/kernel/ports"
)

// procDir is the kernel process directory.
const procDir = "/proc"

// pidLineLimit bounds how much of a pidfile is read.
const pidLineLimit = 128

// ProcFinder resolves pids from pidfiles and from the process table.
type ProcFinder struct{}

// NewProcFinder creates a ProcFinder.
func NewProcFinder() *ProcFinder {
	return &ProcFinder{}
}

// ReadPidFile parses the first whitespace-terminated decimal integer from
// the file at path.
func (f *ProcFinder) ReadPidFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, ports.WrapError("open pidfile", err)
	}
	defer file.Close()

	buf := make([]byte, pidLineLimit)
	n, err := file.Read(buf)
	if n <= 0 {
		if err != nil {
			return 0, ports.WrapError("read pidfile", err)
		}
		return 0, ports.WrapError("read pidfile", ports.ErrNoProcess)
	}

	line := buf[:n]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	pid, err := parseLeadingPid(string(line))
	if err != nil {
		return 0, fmt.Errorf("decoding pid from %q: %w", string(line), err)
	}
	return pid, nil
}

// parseLeadingPid decodes a decimal pid that must be terminated by end of
// input or whitespace.
func parseLeadingPid(s string) (int, error) {
	s = strings.TrimLeft(s, " \t")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 || (end < len(s) && strings.IndexByte(" \t\r\v\f", s[end]) < 0) {
		return 0, ports.ErrNoProcess
	}
	pid, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, ports.ErrNoProcess
	}
	return pid, nil
}

// FindByName scans numeric entries of /proc, comparing the first token of
// each command line to name. Returns the first match, or 0 when none.
func (f *ProcFinder) FindByName(name string) (int, error) {
	entries, err := os.ReadDir(procDir)
	if err != nil {
		return 0, ports.WrapError("open /proc", err)
	}

	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		cmdline, err := os.ReadFile(fmt.Sprintf("%s/%d/cmdline", procDir, pid))
		if err != nil {
			// The process may have exited mid-scan.
			continue
		}

		if commandName(cmdline) == name {
			return pid, nil
		}
	}

	return 0, nil
}

// commandName extracts argv[0]: bytes up to the first NUL, then the first
// space-separated token.
func commandName(cmdline []byte) string {
	if i := bytes.IndexByte(cmdline, 0); i >= 0 {
		cmdline = cmdline[:i]
	}
	first, _, _ := strings.Cut(string(cmdline), " ")
	return first
}
