package processor

import (
	"log/slog"

	"github.com/me/redrive/internal/config"
)

// NewRegistryFromConfig builds a Registry with the configured implementation
// registered for each record kind it serves.
func NewRegistryFromConfig(cfg config.Processor, logger *slog.Logger) *Registry {
	reg := NewRegistry(logger)
	for _, kind := range cfg.Kinds {
		switch cfg.Kind {
		case "http":
			reg.Register(NewHTTPProcessor(kind, cfg.URL, logger))
		case "command":
			reg.Register(NewCommandProcessor(kind, cfg.Command, logger))
		default:
			reg.Register(NewNoopProcessor(kind))
		}
	}
	return reg
}
