package processor

import (
	"context"

	"github.com/me/redrive/pkg/model"
)

// NoopProcessor accepts every record without doing anything. Useful for
// smoke-testing the scheduler and for the CLI tick command.
type NoopProcessor struct {
	kind string
}

// NewNoopProcessor creates a NoopProcessor for records of the given kind.
func NewNoopProcessor(kind string) *NoopProcessor {
	return &NoopProcessor{kind: kind}
}

func (p *NoopProcessor) Kind() string { return p.kind }

func (p *NoopProcessor) Process(_ context.Context, _ *model.Record) error {
	return nil
}
