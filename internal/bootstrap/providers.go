package bootstrap

import (
	"fmt"
	"os"

	"github.com/inango/chandler/internal/config"
	"github.com/inango/chandler/internal/logging"
	"github.com/inango/chandler/internal/stats"
	"github.com/inango/chandler/internal/transport/grpcstatus"
)

// ProvideConfig loads the configuration file (when given) over the
// defaults and applies CHANDLER_* environment overrides. Bad environment
// values are reported and ignored, matching the file-then-environment
// precedence of the config surface.
func ProvideConfig(opts Options) (*config.Config, error) {
	cfg := config.Default()

	if opts.ConfigPath != "" {
		if err := config.LoadInto(cfg, opts.ConfigPath); err != nil {
			return nil, fmt.Errorf("loading configuration from %q: %w", opts.ConfigPath, err)
		}
	}

	if err := config.ApplyEnv(cfg); err != nil {
		// The logger is not built yet; the console is all we have.
		fmt.Fprintf(os.Stderr, "configuration environment overrides: %v\n", err)
	}

	return cfg, nil
}

// ProvideLogger builds the logger from command line options.
func ProvideLogger(opts Options) (*logging.Logger, error) {
	return logging.New(opts.Log)
}

// ProvideCounters creates the process-wide supervision counters.
func ProvideCounters() *stats.Counters {
	return &stats.Counters{}
}

// ProvideStatusServer creates the optional gRPC status endpoint; it is
// nil when no status socket is configured.
func ProvideStatusServer(cfg *config.Config, log *logging.Logger, counters *stats.Counters) *grpcstatus.Server {
	return grpcstatus.New(cfg, log, counters)
}
