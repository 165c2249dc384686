package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/me/redrive/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRecord(id string, inserted time.Time) *model.Record {
	return &model.Record{
		ID:           id,
		Kind:         "email",
		Payload:      map[string]any{"to": "user@test"},
		Status:       model.StatusNew,
		DateInserted: inserted,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	// Migrate must be safe to run twice.
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestCreateAndGetRecord(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	rec := sampleRecord("rec_1", now)
	if err := st.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetRecord(ctx, "rec_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("got nil record")
	}
	if got.Kind != "email" {
		t.Errorf("kind = %q, want %q", got.Kind, "email")
	}
	if got.Status != model.StatusNew {
		t.Errorf("status = %s, want NEW", got.Status)
	}
	if !got.DateInserted.Equal(now) {
		t.Errorf("date_inserted = %v, want %v", got.DateInserted, now)
	}
	if got.Payload["to"] != "user@test" {
		t.Errorf("payload = %v", got.Payload)
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	st := testStore(t)

	got, err := st.GetRecord(context.Background(), "rec_missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestListRecords_StatusFilter(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		rec := sampleRecord(fmt.Sprintf("rec_%d", i), now.Add(time.Duration(i)*time.Second))
		if i == 0 {
			rec.Status = model.StatusError
		}
		if err := st.CreateRecord(ctx, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	recs, total, err := st.ListRecords(ctx, model.ListOptions{Status: "ERROR"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(recs) != 1 {
		t.Fatalf("total = %d, len = %d, want 1, 1", total, len(recs))
	}
	if recs[0].ID != "rec_0" {
		t.Errorf("id = %s, want rec_0", recs[0].ID)
	}
}

func TestSelectCandidates_NewestFirstAndLimited(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		rec := sampleRecord(fmt.Sprintf("rec_%d", i), now.Add(time.Duration(-i)*time.Hour))
		if err := st.CreateRecord(ctx, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	recs, err := st.SelectCandidates(ctx, now.Add(-24*time.Hour), now.Add(-time.Hour), 3)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	// Newest first: rec_0 was inserted most recently.
	for i, want := range []string{"rec_0", "rec_1", "rec_2"} {
		if recs[i].ID != want {
			t.Errorf("recs[%d].ID = %s, want %s", i, recs[i].ID, want)
		}
	}
}

func TestSelectCandidates_AgeWindow(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	young := sampleRecord("rec_young", now.Add(-time.Hour))
	old := sampleRecord("rec_old", now.Add(-48*time.Hour))
	for _, rec := range []*model.Record{young, old} {
		if err := st.CreateRecord(ctx, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	recs, err := st.SelectCandidates(ctx, now.Add(-24*time.Hour), now, 10)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "rec_young" {
		t.Fatalf("got %d records, want only rec_young", len(recs))
	}
}

func TestSelectCandidates_SuccessNeverSelected(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := sampleRecord("rec_done", now)
	rec.Status = model.StatusSuccess
	if err := st.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Even with an unbounded window the terminal record must not appear.
	recs, err := st.SelectCandidates(ctx, now.Add(-10000*time.Hour), now, 10)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d records, want 0", len(recs))
	}
}

func TestSelectCandidates_StaleProcessingIncluded(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := sampleRecord("rec_fresh", now)
	fresh.Status = model.StatusProcessing
	freshClaim := now.Add(-time.Minute)
	fresh.ClaimedAt = &freshClaim

	stale := sampleRecord("rec_stale", now)
	stale.Status = model.StatusProcessing
	staleClaim := now.Add(-time.Hour)
	stale.ClaimedAt = &staleClaim

	for _, rec := range []*model.Record{fresh, stale} {
		if err := st.CreateRecord(ctx, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	// Lease of 15m: claims at or before now-15m are reclaim candidates.
	recs, err := st.SelectCandidates(ctx, now.Add(-24*time.Hour), now.Add(-15*time.Minute), 10)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "rec_stale" {
		t.Fatalf("got %v, want only rec_stale", ids(recs))
	}
}

func TestClaimRecord(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := st.CreateRecord(ctx, sampleRecord("rec_1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	prev, claimed, err := st.ClaimRecord(ctx, "rec_1", now, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed {
		t.Fatal("claim did not apply")
	}
	if prev != model.StatusNew {
		t.Errorf("prev = %s, want NEW", prev)
	}

	got, err := st.GetRecord(ctx, "rec_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusProcessing {
		t.Errorf("status = %s, want PROCESSING", got.Status)
	}
	if got.ClaimedAt == nil {
		t.Error("claimed_at not set")
	}
}

func TestClaimRecord_ConflictWhileProcessing(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := st.CreateRecord(ctx, sampleRecord("rec_1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	staleBefore := now.Add(-15 * time.Minute)
	if _, claimed, err := st.ClaimRecord(ctx, "rec_1", now, staleBefore); err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}

	// A second concurrent trigger must not be able to claim the record
	// before the first commits.
	prev, claimed, err := st.ClaimRecord(ctx, "rec_1", now.Add(time.Second), staleBefore)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatal("second claim applied, want conflict")
	}
	if prev != model.StatusProcessing {
		t.Errorf("prev = %s, want PROCESSING", prev)
	}
}

func TestClaimRecord_ReclaimAfterLeaseExpiry(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := st.CreateRecord(ctx, sampleRecord("rec_1", now.Add(-2*time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Claim at t-1h, then crash: the record stays PROCESSING.
	claimTime := now.Add(-time.Hour)
	if _, claimed, err := st.ClaimRecord(ctx, "rec_1", claimTime, claimTime.Add(-15*time.Minute)); err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}

	// An hour later the 15m lease has long expired; the claim applies and
	// reports the stale PROCESSING status it displaced.
	prev, claimed, err := st.ClaimRecord(ctx, "rec_1", now, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if !claimed {
		t.Fatal("reclaim did not apply")
	}
	if prev != model.StatusProcessing {
		t.Errorf("prev = %s, want PROCESSING", prev)
	}
}

func TestClaimRecord_NotFound(t *testing.T) {
	st := testStore(t)
	now := time.Now().UTC()

	_, _, err := st.ClaimRecord(context.Background(), "rec_missing", now, now)
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCommitOutcome(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := st.CreateRecord(ctx, sampleRecord("rec_1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, claimed, err := st.ClaimRecord(ctx, "rec_1", now, now.Add(-15*time.Minute)); err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}

	rec, _ := st.GetRecord(ctx, "rec_1")
	rec.Status = model.StatusError
	rec.FailureCount = 1
	failAt := now.Add(time.Second)
	rec.LastFailureAt = &failAt
	rec.LastError = "downstream unavailable"

	if err := st.CommitOutcome(ctx, rec); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := st.GetRecord(ctx, "rec_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusError {
		t.Errorf("status = %s, want ERROR", got.Status)
	}
	if got.FailureCount != 1 {
		t.Errorf("failure_count = %d, want 1", got.FailureCount)
	}
	if got.LastFailureAt == nil || !got.LastFailureAt.Equal(failAt) {
		t.Errorf("last_failure_at = %v, want %v", got.LastFailureAt, failAt)
	}
	if got.ClaimedAt != nil {
		t.Error("claim not released on commit")
	}
	if got.LastError != "downstream unavailable" {
		t.Errorf("last_error = %q", got.LastError)
	}
}

func TestCommitOutcome_WithoutClaim(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := sampleRecord("rec_1", now)
	if err := st.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec.Status = model.StatusSuccess
	if err := st.CommitOutcome(ctx, rec); err == nil {
		t.Fatal("commit without claim should error")
	}
}

func TestResetRecord(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := sampleRecord("rec_1", now)
	rec.Status = model.StatusError
	rec.FailureCount = 4
	failAt := now
	rec.LastFailureAt = &failAt
	rec.LastError = "boom"
	if err := st.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.ResetRecord(ctx, "rec_1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got, _ := st.GetRecord(ctx, "rec_1")
	if got.FailureCount != 0 || got.LastFailureAt != nil || got.LastError != "" {
		t.Errorf("backoff state not cleared: %+v", got)
	}
	if got.Status != model.StatusError {
		t.Errorf("status = %s, want ERROR (reset does not change status)", got.Status)
	}
}

func TestResetRecord_OnlyError(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	rec := sampleRecord("rec_1", time.Now().UTC())
	if err := st.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.ResetRecord(ctx, "rec_1"); err != ErrNotFound {
		t.Errorf("reset NEW record: err = %v, want ErrNotFound", err)
	}
}

func TestCountByStatus(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	statuses := []model.Status{
		model.StatusNew, model.StatusNew, model.StatusError, model.StatusSuccess,
	}
	for i, status := range statuses {
		rec := sampleRecord(fmt.Sprintf("rec_%d", i), now)
		rec.Status = status
		if err := st.CreateRecord(ctx, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	counts, err := st.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[model.StatusNew] != 2 || counts[model.StatusError] != 1 || counts[model.StatusSuccess] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func ids(recs []*model.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
