package config

import (
	"go.uber.org/fx"
)

// Module wires application configuration and validates it at startup.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Invoke(func(cfg Config) error {
		return cfg.Validate()
	}),
)
