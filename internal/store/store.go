package store

import (
	"context"
	"errors"
	"time"

	"github.com/me/redrive/pkg/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence layer for backlog records.
//
// ClaimRecord and CommitOutcome are the only mutating operations the
// scheduler uses; both are atomic conditional updates so that overlapping
// triggers cannot double-process a record.
type Store interface {
	// Record CRUD
	CreateRecord(ctx context.Context, rec *model.Record) error
	GetRecord(ctx context.Context, id string) (*model.Record, error)
	ListRecords(ctx context.Context, opts model.ListOptions) ([]*model.Record, int, error)

	// SelectCandidates returns records with status NEW or ERROR inserted at
	// or after cutoff, plus PROCESSING records whose claim predates
	// staleBefore (expired leases). Ordered by date_inserted descending,
	// truncated to limit.
	SelectCandidates(ctx context.Context, cutoff, staleBefore time.Time, limit int) ([]*model.Record, error)

	// ClaimRecord atomically transitions the record to PROCESSING with
	// claimed_at = now. The transition applies only if the record is NEW or
	// ERROR, or is PROCESSING with a claim older than staleBefore. Returns
	// the status observed before the claim and whether the claim applied.
	ClaimRecord(ctx context.Context, id string, now, staleBefore time.Time) (model.Status, bool, error)

	// CommitOutcome persists the record's status and backoff fields, guarded
	// on the record currently being PROCESSING. The claim is released as part
	// of the same update.
	CommitOutcome(ctx context.Context, rec *model.Record) error

	// ResetRecord clears an ERROR record's failure history so it is
	// immediately eligible again. Operator escape hatch.
	ResetRecord(ctx context.Context, id string) error

	// CountByStatus returns the number of records per status.
	CountByStatus(ctx context.Context) (map[model.Status]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
