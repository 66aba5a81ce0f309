// Package config provides configuration types and loading for chandler.
package config

// Capacity limits carried over from the wire-compatible configuration
// surface: values longer than the target capacity are load errors.
const (
	MaxAppNameSize = 64
	MaxPathSize    = 256
	MaxCommandSize = 1024
)

// Default timings in milliseconds.
const (
	DefaultCheckInterval  = 60000
	DefaultReceiveTimeout = 15000
)

// DefaultRunDir is where Open vSwitch keeps pidfiles and control sockets.
const DefaultRunDir = "/usr/local/var/run/openvswitch"

// Config is the supervision configuration. It is constructed once at
// startup and never mutated afterwards; an empty string means "unset" and a
// threshold of zero disables that escalation.
type Config struct {
	// RunDir is the directory holding pidfiles and control sockets.
	RunDir string `yaml:"ovs_run_dir"`
	// NameSwitch is the data-plane switch daemon executable name.
	NameSwitch string `yaml:"ovs_name_switch"`
	// NameDB is the configuration database daemon executable name.
	NameDB string `yaml:"ovs_name_db"`
	// PidfileSwitch overrides the pidfile path for the switch daemon.
	PidfileSwitch string `yaml:"ovs_pidfile_switch"`
	// PidfileDB overrides the pidfile path for the database daemon.
	PidfileDB string `yaml:"ovs_pidfile_db"`
	// UnixctlSwitch overrides the control socket path for the switch daemon.
	UnixctlSwitch string `yaml:"ovs_unixctl_switch"`
	// UnixctlDB overrides the control socket path for the database daemon.
	UnixctlDB string `yaml:"ovs_unixctl_db"`
	// CmdSwitch is the spawn command line for the switch daemon.
	CmdSwitch string `yaml:"ovs_cmd_switch"`
	// CmdDB is the spawn command line for the database daemon.
	CmdDB string `yaml:"ovs_cmd_db"`
	// CmdDisconnect runs when every controller reports disconnected.
	CmdDisconnect string `yaml:"ovs_cmd_disconnect"`
	// CmdReboot overrides the platform reboot on escalation.
	CmdReboot string `yaml:"ovs_cmd_reboot"`
	// UnixsockDB is the database notification socket path.
	UnixsockDB string `yaml:"ovs_unixsock_db"`
	// StatusSocket enables the gRPC health endpoint when non-empty.
	StatusSocket string `yaml:"status_socket"`

	// CheckInterval is the service check interval in msec.
	CheckInterval int64 `yaml:"check_interval"`
	// RequestRetries is how many times to probe a daemon before blaming it.
	RequestRetries int64 `yaml:"request_retries"`
	// ReceiveTimeout is the response receive timeout in msec.
	ReceiveTimeout int64 `yaml:"receive_timeout"`
	// FailuresBeforeReboot is the failure count threshold (0 disables).
	FailuresBeforeReboot int64 `yaml:"failures_before_reboot"`
	// RestartsBeforeReboot is the restart count threshold (0 disables).
	RestartsBeforeReboot int64 `yaml:"restarts_before_reboot"`
}

// Default returns the built-in configuration, matching a stock Open vSwitch
// installation.
func Default() *Config {
	return &Config{
		RunDir:     DefaultRunDir,
		NameSwitch: "ovs-vswitchd",
		NameDB:     "ovsdb-server",
		CmdSwitch: "ovs-vswitchd unix:" + DefaultRunDir + "/db.sock" +
			" --log-file=" + DefaultRunDir + "/vswitchd.log" +
			" --pidfile=" + DefaultRunDir + "/ovs-vswitchd.pid" +
			" --detach",
		CmdDB: "ovsdb-server " + DefaultRunDir + "/conf.db" +
			" --remote=punix:" + DefaultRunDir + "/db.sock" +
			" --log-file=" + DefaultRunDir + "/ovsdb.log" +
			" --pidfile=" + DefaultRunDir + "/ovsdb-server.pid" +
			" --detach",
		CheckInterval:  DefaultCheckInterval,
		RequestRetries: 1,
		ReceiveTimeout: DefaultReceiveTimeout,
	}
}
