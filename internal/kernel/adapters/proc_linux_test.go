//go:build linux

package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePidFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadPidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{name: "plain", content: "4242", want: 4242},
		{name: "trailing newline", content: "4242\n", want: 4242},
		{name: "trailing space", content: "4242 extra\n", want: 4242},
		{name: "leading whitespace", content: "  314\n", want: 314},
		{name: "garbage", content: "none\n", wantErr: true},
		{name: "trailing garbage", content: "42x\n", wantErr: true},
		{name: "empty", content: "", wantErr: true},
	}

	f := NewProcFinder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid, err := f.ReadPidFile(writePidFile(t, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pid)
		})
	}
}

func TestReadPidFileMissing(t *testing.T) {
	f := NewProcFinder()
	_, err := f.ReadPidFile(filepath.Join(t.TempDir(), "absent.pid"))
	assert.Error(t, err)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/usr/sbin/ovsdb-server", commandName([]byte("/usr/sbin/ovsdb-server\x00--detach\x00")))
	assert.Equal(t, "ovs-vswitchd", commandName([]byte("ovs-vswitchd --detach")))
	assert.Equal(t, "", commandName([]byte{}))
}

func TestFindByNameSelf(t *testing.T) {
	// The test binary itself is in the process table under its argv[0].
	f := NewProcFinder()

	pid, err := f.FindByName(os.Args[0])
	require.NoError(t, err)
	assert.NotZero(t, pid)
}

func TestFindByNameAbsent(t *testing.T) {
	f := NewProcFinder()

	pid, err := f.FindByName("definitely-not-a-real-daemon-name")
	require.NoError(t, err)
	assert.Zero(t, pid)
}
