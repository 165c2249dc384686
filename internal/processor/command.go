package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/me/redrive/pkg/model"
)

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, stdin []byte, name string, args ...string) (stderr string, exitCode int, err error)
}

// osCommandRunner is the real implementation using os/exec.
type osCommandRunner struct{}

func (r *osCommandRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	stderr := stderrBuf.String()

	switch e := runErr.(type) {
	case nil:
		return stderr, 0, nil
	case *exec.ExitError:
		return stderr, e.ExitCode(), nil
	default:
		return stderr, -1, runErr
	}
}

// CommandProcessor pipes the record payload into a configured command as
// JSON on stdin. A nonzero exit is a processing failure.
type CommandProcessor struct {
	kind   string
	argv   []string
	runner CommandRunner
	logger *slog.Logger
}

// NewCommandProcessor creates a CommandProcessor for records of the given kind.
func NewCommandProcessor(kind string, argv []string, logger *slog.Logger) *CommandProcessor {
	return &CommandProcessor{
		kind:   kind,
		argv:   argv,
		runner: &osCommandRunner{},
		logger: logger.With("component", "command-processor", "kind", kind),
	}
}

// newCommandProcessorWithRunner is used by tests to inject a mock CommandRunner.
func newCommandProcessorWithRunner(kind string, argv []string, logger *slog.Logger, runner CommandRunner) *CommandProcessor {
	p := NewCommandProcessor(kind, argv, logger)
	p.runner = runner
	return p
}

func (p *CommandProcessor) Kind() string { return p.kind }

func (p *CommandProcessor) Process(ctx context.Context, rec *model.Record) error {
	if len(p.argv) == 0 {
		return fmt.Errorf("record %s: no command configured", rec.ID)
	}

	stdin, err := json.Marshal(map[string]any{
		"id":      rec.ID,
		"kind":    rec.Kind,
		"payload": rec.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}

	stderr, exitCode, err := p.runner.Run(ctx, stdin, p.argv[0], p.argv[1:]...)
	if err != nil {
		return fmt.Errorf("run %s: %w", p.argv[0], err)
	}
	if exitCode != 0 {
		return fmt.Errorf("%s exited %d: %s", p.argv[0], exitCode, strings.TrimSpace(stderr))
	}

	p.logger.Debug("record processed", "record_id", rec.ID)
	return nil
}
