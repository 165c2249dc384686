package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/me/redrive/internal/server"
	"github.com/me/redrive/internal/store"
	"github.com/me/redrive/pkg/model"
)

// startTestServer starts a daemon API with an in-memory SQLite store and
// returns its URL plus the store for seeding.
func startTestServer(t *testing.T) (string, store.Store) {
	t.Helper()
	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", srvLogger)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	srv := server.New(st, srvLogger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL, st
}

// runCLI executes the root command with args, returning captured stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var errBuf bytes.Buffer
	root.SetOut(&errBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := root.Execute()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out), err
}

func TestEnqueueCommand(t *testing.T) {
	url, st := startTestServer(t)

	out, err := runCLI(t, "--server", url, "enqueue", "email", "--payload", `{"to":"ops@example.com"}`)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !strings.Contains(out, "Enqueued rec_") {
		t.Errorf("output = %q, want Enqueued rec_ prefix", out)
	}

	records, total, err := st.ListRecords(context.Background(), model.DefaultListOptions())
	if err != nil || total != 1 {
		t.Fatalf("stored records = %d (err %v), want 1", total, err)
	}
	if records[0].Kind != "email" {
		t.Errorf("kind = %q, want email", records[0].Kind)
	}
}

func TestEnqueueCommand_BadPayload(t *testing.T) {
	url, _ := startTestServer(t)

	if _, err := runCLI(t, "--server", url, "enqueue", "email", "--payload", "not json"); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestListCommand(t *testing.T) {
	url, st := startTestServer(t)
	rec := &model.Record{
		ID:           "rec_a",
		Kind:         "webhook",
		Status:       model.StatusNew,
		DateInserted: time.Now().UTC(),
	}
	if err := st.CreateRecord(context.Background(), rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := runCLI(t, "--server", url, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "rec_a") || !strings.Contains(out, "webhook") {
		t.Errorf("output = %q, want rec_a row", out)
	}

	out, err = runCLI(t, "--server", url, "list", "--status", "ERROR")
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if !strings.Contains(out, "No records found") {
		t.Errorf("output = %q, want empty result message", out)
	}
}

func TestGetCommand(t *testing.T) {
	url, st := startTestServer(t)
	rec := &model.Record{
		ID:           "rec_a",
		Kind:         "email",
		Payload:      map[string]any{"to": "ops@example.com"},
		Status:       model.StatusNew,
		DateInserted: time.Now().UTC(),
	}
	if err := st.CreateRecord(context.Background(), rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := runCLI(t, "--server", url, "get", "rec_a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, want := range []string{"Record: rec_a", "Kind:      email", "Status:    NEW"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGetCommand_NotFound(t *testing.T) {
	url, _ := startTestServer(t)

	if _, err := runCLI(t, "--server", url, "get", "rec_missing"); err == nil {
		t.Fatal("expected error for missing record")
	}
}

func TestStatsCommand(t *testing.T) {
	url, st := startTestServer(t)
	rec := &model.Record{
		ID:           "rec_a",
		Kind:         "email",
		Status:       model.StatusNew,
		DateInserted: time.Now().UTC(),
	}
	if err := st.CreateRecord(context.Background(), rec); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := runCLI(t, "--server", url, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "NEW:") {
		t.Errorf("output = %q, want per-status counts", out)
	}
}

func TestTickCommand(t *testing.T) {
	dbPath := t.TempDir() + "/redrive.db"

	// Seed through a throwaway store handle.
	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(dbPath, srvLogger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	rec := &model.Record{
		ID:           "rec_a",
		Kind:         "default",
		Status:       model.StatusNew,
		DateInserted: time.Now().UTC(),
	}
	if err := st.CreateRecord(context.Background(), rec); err != nil {
		t.Fatalf("seed: %v", err)
	}
	st.Close()

	out, err := runCLI(t, "tick", "--db", dbPath)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !strings.Contains(out, "succeeded 1") {
		t.Errorf("output = %q, want 1 succeeded via noop processor", out)
	}

	st, err = store.NewSQLiteStore(dbPath, srvLogger)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()
	got, err := st.GetRecord(context.Background(), "rec_a")
	if err != nil || got == nil {
		t.Fatalf("get after tick: %v", err)
	}
	if got.Status != model.StatusSuccess {
		t.Errorf("status = %s after tick, want SUCCESS", got.Status)
	}
}
