// Package bootstrap assembles the chandler application from its parts.
package bootstrap

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/inango/chandler/internal/config"
	"github.com/inango/chandler/internal/engine"
	"github.com/inango/chandler/internal/logging"
	"github.com/inango/chandler/internal/transport/grpcstatus"
)

// Options carries everything the command line decides.
type Options struct {
	// ConfigPath is the configuration file, empty for defaults only.
	ConfigPath string
	// Log configures the logger.
	Log logging.Options
}

// App is the wired application.
type App struct {
	cfg    *config.Config
	log    *logging.Logger
	engine *engine.Engine
	status *grpcstatus.Server
}

// NewApp creates the App from its wired dependencies.
func NewApp(cfg *config.Config, log *logging.Logger, eng *engine.Engine, status *grpcstatus.Server) *App {
	return &App{
		cfg:    cfg,
		log:    log,
		engine: eng,
		status: status,
	}
}

// Run installs signal handling and drives the engine loop to completion.
// SIGINT requests shutdown at loop-head granularity; SIGHUP is ignored.
// SIGCHLD needs no handling here: each spawned daemon is reaped by its own
// Wait goroutine.
func (a *App) Run() error {
	defer a.log.Close()

	signal.Ignore(syscall.SIGHUP)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT)
	go func() {
		<-interrupt
		fmt.Fprintf(os.Stderr, "\n-- received SIGINT\n")
		a.engine.Stop()
	}()

	a.log.Debugf("started")

	if a.status != nil {
		if err := a.status.Start(); err != nil {
			a.log.Errorf("failed to start status server: %v", err)
		} else {
			defer a.status.Stop()
		}
	}

	return a.engine.Run()
}
