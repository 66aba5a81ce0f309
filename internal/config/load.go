package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// binding ties a configuration key to its environment override and its
// target field. Exactly one of str or num is set.
type binding struct {
	key    string
	env    string
	str    func(*Config) *string
	num    func(*Config) *int64
	maxLen int
}

// bindings is the full key table. Unknown keys in a config file are
// silently ignored; only keys listed here are ever assigned.
var bindings = []binding{
	{key: "ovs_run_dir", env: "CHANDLER_OVS_RUNDIR", str: func(c *Config) *string { return &c.RunDir }, maxLen: MaxPathSize},
	{key: "ovs_name_switch", env: "CHANDLER_NAME_SW", str: func(c *Config) *string { return &c.NameSwitch }, maxLen: MaxAppNameSize},
	{key: "ovs_name_db", env: "CHANDLER_NAME_DB", str: func(c *Config) *string { return &c.NameDB }, maxLen: MaxAppNameSize},
	{key: "ovs_pidfile_switch", env: "CHANDLER_PIDFILE_SW", str: func(c *Config) *string { return &c.PidfileSwitch }, maxLen: MaxPathSize},
	{key: "ovs_pidfile_db", env: "CHANDLER_PIDFILE_DB", str: func(c *Config) *string { return &c.PidfileDB }, maxLen: MaxPathSize},
	{key: "ovs_unixctl_switch", env: "CHANDLER_UNIXCTL_SW", str: func(c *Config) *string { return &c.UnixctlSwitch }, maxLen: MaxPathSize},
	{key: "ovs_unixctl_db", env: "CHANDLER_UNIXCTL_DB", str: func(c *Config) *string { return &c.UnixctlDB }, maxLen: MaxPathSize},
	{key: "ovs_cmd_switch", env: "CHANDLER_CMD_RUN_SW", str: func(c *Config) *string { return &c.CmdSwitch }, maxLen: MaxCommandSize},
	{key: "ovs_cmd_db", env: "CHANDLER_CMD_RUN_DB", str: func(c *Config) *string { return &c.CmdDB }, maxLen: MaxCommandSize},
	{key: "ovs_cmd_disconnect", env: "CHANDLER_CMD_DISCON", str: func(c *Config) *string { return &c.CmdDisconnect }, maxLen: MaxCommandSize},
	{key: "ovs_cmd_reboot", env: "CHANDLER_CMD_REBOOT", str: func(c *Config) *string { return &c.CmdReboot }, maxLen: MaxCommandSize},
	{key: "ovs_unixsock_db", env: "CHANDLER_UNIXSOCK_DB", str: func(c *Config) *string { return &c.UnixsockDB }, maxLen: MaxPathSize},
	{key: "status_socket", env: "CHANDLER_STATUS_SOCKET", str: func(c *Config) *string { return &c.StatusSocket }, maxLen: MaxPathSize},
	{key: "check_interval", env: "CHANDLER_CHECK_INTERVAL", num: func(c *Config) *int64 { return &c.CheckInterval }},
	{key: "request_retries", env: "CHANDLER_REQ_RETRIES", num: func(c *Config) *int64 { return &c.RequestRetries }},
	{key: "receive_timeout", env: "CHANDLER_RECV_TIMEOUT", num: func(c *Config) *int64 { return &c.ReceiveTimeout }},
	{key: "failures_before_reboot", env: "CHANDLER_FAILURES_TO_REBOOT", num: func(c *Config) *int64 { return &c.FailuresBeforeReboot }},
	{key: "restarts_before_reboot", env: "CHANDLER_RESTARTS_TO_REBOOT", num: func(c *Config) *int64 { return &c.RestartsBeforeReboot }},
}

// LoadError reports where in a config file loading stopped.
type LoadError struct {
	Line    int
	Key     string
	Message string
}

func (e LoadError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("line %d: key %q: %s", e.Line, e.Key, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Load reads a configuration file over the defaults. Files named *.yaml or
// *.yml are parsed as a YAML mapping of the same keys; everything else is
// parsed as line-oriented "key = value".
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := LoadInto(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads a configuration file over an existing configuration.
func LoadInto(cfg *Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(cfg, path)
	default:
		return loadKeyValue(cfg, path)
	}
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}
	return checkCapacities(cfg)
}

func loadKeyValue(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		key, value, err := splitKeyValue(scanner.Text())
		if err != nil {
			return LoadError{Line: line, Message: err.Error()}
		}
		if err := assign(cfg, key, value); err != nil {
			return LoadError{Line: line, Key: key, Message: err.Error()}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// splitKeyValue parses one "key = value" line with whitespace around the
// delimiter trimmed.
func splitKeyValue(s string) (string, string, error) {
	key, value, found := strings.Cut(s, "=")
	if !found {
		return "", "", errors.New("missing '=' delimiter")
	}

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", errors.New("empty key")
	}
	if value == "" {
		return "", "", errors.New("empty value")
	}
	return key, value, nil
}

// assign applies one key/value pair. Unknown keys are not an error.
func assign(cfg *Config, key, value string) error {
	for i := range bindings {
		b := &bindings[i]
		if b.key != key {
			continue
		}
		return b.set(cfg, value)
	}
	return nil
}

func (b *binding) set(cfg *Config, value string) error {
	if b.str != nil {
		if len(value) >= b.maxLen {
			return fmt.Errorf("value exceeds %d bytes", b.maxLen)
		}
		*b.str(cfg) = value
		return nil
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer value %q", value)
	}
	*b.num(cfg) = n
	return nil
}

// checkCapacities re-applies the string capacity limits after a YAML load.
func checkCapacities(cfg *Config) error {
	var errs []error
	for i := range bindings {
		b := &bindings[i]
		if b.str == nil {
			continue
		}
		if len(*b.str(cfg)) >= b.maxLen {
			errs = append(errs, fmt.Errorf("key %q: value exceeds %d bytes", b.key, b.maxLen))
		}
	}
	return errors.Join(errs...)
}

// ApplyEnv overrides configuration values from CHANDLER_* environment
// variables. Bad values are reported but never fatal: the joined error is
// meant to be logged and ignored.
func ApplyEnv(cfg *Config) error {
	var errs []error
	for i := range bindings {
		b := &bindings[i]
		value, ok := os.LookupEnv(b.env)
		if !ok || value == "" {
			continue
		}
		if err := b.set(cfg, value); err != nil {
			errs = append(errs, fmt.Errorf("environment variable %s: %w", b.env, err))
		}
	}
	return errors.Join(errs...)
}
