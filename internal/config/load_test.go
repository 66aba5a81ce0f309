package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultRunDir, cfg.RunDir)
	assert.Equal(t, "ovs-vswitchd", cfg.NameSwitch)
	assert.Equal(t, "ovsdb-server", cfg.NameDB)
	assert.Equal(t, int64(DefaultCheckInterval), cfg.CheckInterval)
	assert.Equal(t, int64(1), cfg.RequestRetries)
	assert.Equal(t, int64(DefaultReceiveTimeout), cfg.ReceiveTimeout)
	assert.Zero(t, cfg.FailuresBeforeReboot)
	assert.Zero(t, cfg.RestartsBeforeReboot)
}

func TestLoadKeyValue(t *testing.T) {
	path := writeConfig(t, "chandler.conf", strings.Join([]string{
		"ovs_run_dir = /var/run/openvswitch",
		"ovs_name_db=ovsdb-server",
		"check_interval =  5000",
		"failures_before_reboot= 2",
		"some_future_key = ignored",
	}, "\n"))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/run/openvswitch", cfg.RunDir)
	assert.Equal(t, "ovsdb-server", cfg.NameDB)
	assert.Equal(t, int64(5000), cfg.CheckInterval)
	assert.Equal(t, int64(2), cfg.FailuresBeforeReboot)
	// Untouched keys keep their defaults.
	assert.Equal(t, "ovs-vswitchd", cfg.NameSwitch)
}

func TestLoadKeyValueErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing delimiter", content: "check_interval 5000"},
		{name: "empty key", content: "= 5000"},
		{name: "empty value", content: "check_interval ="},
		{name: "bad integer", content: "check_interval = soon"},
		{name: "oversized value", content: "ovs_name_db = " + strings.Repeat("x", MaxAppNameSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "chandler.conf", tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadErrorReportsLine(t *testing.T) {
	path := writeConfig(t, "chandler.conf", "check_interval = 100\ncheck_interval = bad")

	_, err := Load(path)
	require.Error(t, err)

	var loadErr LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 2, loadErr.Line)
	assert.Equal(t, "check_interval", loadErr.Key)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "chandler.yaml", `
ovs_run_dir: /run/ovs
check_interval: 1000
request_retries: 3
ovs_cmd_disconnect: /usr/bin/ovs-recover
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/run/ovs", cfg.RunDir)
	assert.Equal(t, int64(1000), cfg.CheckInterval)
	assert.Equal(t, int64(3), cfg.RequestRetries)
	assert.Equal(t, "/usr/bin/ovs-recover", cfg.CmdDisconnect)
}

func TestLoadYAMLCapacity(t *testing.T) {
	path := writeConfig(t, "chandler.yml", "ovs_name_db: "+strings.Repeat("x", MaxAppNameSize))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CHANDLER_NAME_DB", "ovsdb-alt")
	t.Setenv("CHANDLER_CHECK_INTERVAL", "2500")

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, "ovsdb-alt", cfg.NameDB)
	assert.Equal(t, int64(2500), cfg.CheckInterval)
}

func TestApplyEnvBadValueKeepsOld(t *testing.T) {
	t.Setenv("CHANDLER_CHECK_INTERVAL", "sometimes")

	cfg := Default()
	err := ApplyEnv(cfg)

	assert.Error(t, err)
	assert.Equal(t, int64(DefaultCheckInterval), cfg.CheckInterval)
}

func TestApplyEnvEmptyIgnored(t *testing.T) {
	t.Setenv("CHANDLER_NAME_DB", "")

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, "ovsdb-server", cfg.NameDB)
}
