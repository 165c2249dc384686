package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/me/redrive/pkg/model"
)

// HTTPProcessor delivers the record payload to a downstream endpoint as a
// JSON POST. Any non-2xx response is a processing failure.
type HTTPProcessor struct {
	kind   string
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPProcessor creates an HTTPProcessor posting to url for records of the
// given kind. The per-attempt deadline comes from the request context, so the
// client itself carries no timeout.
func NewHTTPProcessor(kind, url string, logger *slog.Logger) *HTTPProcessor {
	return &HTTPProcessor{
		kind:   kind,
		url:    url,
		client: &http.Client{},
		logger: logger.With("component", "http-processor", "kind", kind),
	}
}

func (p *HTTPProcessor) Kind() string { return p.kind }

func (p *HTTPProcessor) Process(ctx context.Context, rec *model.Record) error {
	body, err := json.Marshal(map[string]any{
		"id":      rec.ID,
		"kind":    rec.Kind,
		"payload": rec.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read a little of the body for the error message; the rest is noise.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("downstream returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	p.logger.Debug("record delivered", "record_id", rec.ID, "status", resp.StatusCode)
	return nil
}
