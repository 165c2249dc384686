// Package processor holds the downstream processing call a scheduler tick
// invokes for each claimed record. Processors may fail or time out; the
// scheduler treats both identically and records them into the record's
// backoff state.
package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/me/redrive/pkg/model"
)

// Processor performs the actual unit of work for a record.
type Processor interface {
	// Kind identifies the processor; records carry the kind that should
	// process them.
	Kind() string

	// Process attempts the record's unit of work. The context carries the
	// per-attempt deadline; implementations must honor it.
	Process(ctx context.Context, rec *model.Record) error
}

// Registry maps record kinds to their Processor implementations.
// Registration happens at startup before concurrent access, so no mutex is needed.
type Registry struct {
	processors map[string]Processor
	logger     *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		processors: make(map[string]Processor),
		logger:     logger.With("component", "processor-registry"),
	}
}

// Register adds a Processor to the registry, keyed by its Kind().
func (r *Registry) Register(p Processor) {
	k := p.Kind()
	r.processors[k] = p
	r.logger.Info("processor registered", "kind", k)
}

// Get returns the Processor for the given kind or an error if none is registered.
func (r *Registry) Get(kind string) (Processor, error) {
	p, ok := r.processors[kind]
	if !ok {
		return nil, fmt.Errorf("no processor registered for kind %q", kind)
	}
	return p, nil
}
