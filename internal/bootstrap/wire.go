//go:build wireinject

package bootstrap

import (
	"github.com/google/wire"

	"github.com/inango/chandler/internal/engine"
	"github.com/inango/chandler/internal/kernel"
)

// InitializeApp creates the application with all dependencies wired.
// This function is the injector that Wire generates code for.
func InitializeApp(opts Options) (*App, error) {
	wire.Build(
		ProvideConfig,
		ProvideLogger,
		ProvideCounters,
		kernel.New,
		engine.New,
		ProvideStatusServer,
		NewApp,
	)
	return nil, nil
}
