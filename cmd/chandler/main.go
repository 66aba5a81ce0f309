// Package main provides the chandler entry point. chandler keeps the
// Open vSwitch daemon pair alive: it probes their control sockets, restarts
// them on failure, reacts to controller disconnection and escalates chronic
// failure into a host reboot.
package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/inango/chandler/internal/bootstrap"
	"github.com/inango/chandler/internal/logging"
)

// maxPathLen bounds the -c and -f path arguments.
const maxPathLen = 255

var version = "dev"

// usageError marks command line validation failures: exit code 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		var uerr *usageError
		if errors.As(err, &uerr) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath  string
		logLevel    int
		logFile     string
		rotateCount int
		sizeLimit   int64
		silent      bool
	)

	cmd := &cobra.Command{
		Use:           "chandler [-c FILE] [-l LEVEL] [-f NAME [-r COUNT] [-m SIZE]] [-s]",
		Short:         "Open vSwitch supervision daemon",
		Long:          "chandler supervises ovsdb-server and ovs-vswitchd: it probes their\ncontrol sockets, restarts dead daemons, runs a recovery command when all\ncontrollers disconnect and reboots the host on chronic failure.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				fmt.Fprintf(os.Stderr, "unexpected argument: %q\n", args[0])
				_ = cmd.Usage()
				return &usageError{msg: "unexpected argument"}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fail := func(format string, a ...any) error {
				fmt.Fprintf(os.Stderr, format+"\n", a...)
				_ = cmd.Usage()
				return &usageError{msg: fmt.Sprintf(format, a...)}
			}

			if len(configPath) > maxPathLen {
				return fail("configuration file path is too long: %q", configPath)
			}
			if len(logFile) > maxPathLen {
				return fail("log file path is too long: %q", logFile)
			}

			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return fail("invalid log level: %d", logLevel)
			}

			if rotateCount < 1 || rotateCount > logging.MaxRotateCount {
				return fail("invalid rotate file count value: %d", rotateCount)
			}
			if sizeLimit < logging.MinFileSizeLimit || sizeLimit > logging.MaxFileSizeLimit {
				return fail("log file size limit is invalid: %d", sizeLimit)
			}

			app, err := bootstrap.InitializeApp(bootstrap.Options{
				ConfigPath: configPath,
				Log: logging.Options{
					Level:         level,
					Console:       !silent,
					FilePath:      logFile,
					FileSizeLimit: sizeLimit,
					RotateCount:   rotateCount,
				},
			})
			if err != nil {
				return err
			}

			return app.Run()
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "load configuration from FILE")
	flags.IntVarP(&logLevel, "log-level", "l", int(logging.LevelError), "log level: 1=error 2=warning 3=informational 4=debug")
	flags.StringVarP(&logFile, "log-file", "f", "", "mirror the log to NAME")
	flags.IntVarP(&rotateCount, "rotate-count", "r", 1, "rotated log file count (1..9)")
	flags.Int64VarP(&sizeLimit, "size-limit", "m", math.MaxInt32, "log file size limit in bytes")
	flags.BoolVarP(&silent, "silent", "s", false, "silent mode - no console output")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintln(os.Stderr, err)
		_ = c.Usage()
		return &usageError{msg: err.Error()}
	})

	return cmd
}
