package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeWithArgs(args ...string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "log level too low", args: []string{"-l", "0"}},
		{name: "log level too high", args: []string{"-l", "5"}},
		{name: "rotate count zero", args: []string{"-f", "/tmp/x.log", "-r", "0"}},
		{name: "rotate count too high", args: []string{"-f", "/tmp/x.log", "-r", "10"}},
		{name: "size limit too small", args: []string{"-f", "/tmp/x.log", "-m", "1024"}},
		{name: "unknown flag", args: []string{"-z"}},
		{name: "positional argument", args: []string{"extra"}},
		{name: "config path too long", args: []string{"-c", "/" + strings.Repeat("x", maxPathLen)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := executeWithArgs(tt.args...)
			require.Error(t, err)

			var uerr *usageError
			assert.True(t, errors.As(err, &uerr), "want usage error, got %v", err)
		})
	}
}

func TestHelpSucceeds(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--help"})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})

	assert.NoError(t, cmd.Execute())
}

func TestMissingConfigFileFails(t *testing.T) {
	err := executeWithArgs("-c", "/nonexistent/chandler.conf")
	require.Error(t, err)

	var uerr *usageError
	assert.False(t, errors.As(err, &uerr), "a load failure is an init error, not a usage error")
}
