package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/redrive/pkg/model"

	_ "modernc.org/sqlite"
)

const recordColumns = `id, kind, payload, status, date_inserted, failure_count, last_failure_at, claimed_at, completed_at, last_error`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// An in-memory database exists per connection; cap the pool so every
	// query sees the same one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

func (s *SQLiteStore) CreateRecord(ctx context.Context, rec *model.Record) error {
	s.logger.Debug("sql", "op", "insert", "table", "records", "id", rec.ID)

	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, string(payloadJSON), string(rec.Status),
		rec.DateInserted.Format(time.RFC3339Nano),
		rec.FailureCount, optTime(rec.LastFailureAt), optTime(rec.ClaimedAt),
		optTime(rec.CompletedAt), rec.LastError,
	)
	return err
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "records", "id", id)

	rec, err := s.scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, opts model.ListOptions) ([]*model.Record, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "records", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	// Build WHERE clause dynamically based on filters.
	var whereClauses []string
	var countArgs []any

	if opts.Status != "" {
		whereClauses = append(whereClauses, "status = ?")
		countArgs = append(countArgs, opts.Status)
	}
	if opts.Kind != "" {
		whereClauses = append(whereClauses, "kind = ?")
		countArgs = append(countArgs, opts.Kind)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + recordColumns + ` FROM records` + whereSQL +
		` ORDER BY date_inserted DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	recs, err := s.scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func (s *SQLiteStore) SelectCandidates(ctx context.Context, cutoff, staleBefore time.Time, limit int) ([]*model.Record, error) {
	s.logger.Debug("sql", "op", "select_candidates", "table", "records",
		"cutoff", cutoff, "limit", limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records
		 WHERE (status IN ('NEW', 'ERROR')
		        OR (status = 'PROCESSING' AND claimed_at IS NOT NULL AND claimed_at <= ?))
		   AND date_inserted >= ?
		 ORDER BY date_inserted DESC LIMIT ?`,
		staleBefore.Format(time.RFC3339Nano),
		cutoff.Format(time.RFC3339Nano),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanRecords(rows)
}

// ClaimRecord performs the compare-and-swap claim transition inside a
// transaction: the current status is read, checked for claimability, and the
// update is guarded on that same status so a concurrent claim makes the
// update affect zero rows.
func (s *SQLiteStore) ClaimRecord(ctx context.Context, id string, now, staleBefore time.Time) (model.Status, bool, error) {
	s.logger.Debug("sql", "op", "claim", "table", "records", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var statusStr string
	var claimedAt *string
	err = tx.QueryRowContext(ctx,
		`SELECT status, claimed_at FROM records WHERE id = ?`, id,
	).Scan(&statusStr, &claimedAt)
	if err == sql.ErrNoRows {
		return "", false, ErrNotFound
	}
	if err != nil {
		return "", false, err
	}

	prev := model.Status(statusStr)
	stale := false
	if prev == model.StatusProcessing && claimedAt != nil {
		t, perr := time.Parse(time.RFC3339Nano, *claimedAt)
		if perr == nil && !t.After(staleBefore) {
			stale = true
		}
	}
	if !prev.IsClaimable() && !stale {
		return prev, false, nil
	}

	// Guard on the observed status (and claim timestamp for reclaims) so a
	// racing claim between the read and this update affects zero rows.
	var result sql.Result
	if stale {
		result, err = tx.ExecContext(ctx,
			`UPDATE records SET status = 'PROCESSING', claimed_at = ?
			 WHERE id = ? AND status = 'PROCESSING' AND claimed_at = ?`,
			now.Format(time.RFC3339Nano), id, *claimedAt)
	} else {
		result, err = tx.ExecContext(ctx,
			`UPDATE records SET status = 'PROCESSING', claimed_at = ?
			 WHERE id = ? AND status = ?`,
			now.Format(time.RFC3339Nano), id, statusStr)
	}
	if err != nil {
		return prev, false, fmt.Errorf("claim update: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return prev, false, nil
	}

	if err := tx.Commit(); err != nil {
		return prev, false, fmt.Errorf("commit: %w", err)
	}
	return prev, true, nil
}

// CommitOutcome persists an attempt's outcome. The update is guarded on the
// record still being PROCESSING; zero affected rows means the claim was lost,
// which violates the lease protocol and is surfaced as an error.
func (s *SQLiteStore) CommitOutcome(ctx context.Context, rec *model.Record) error {
	s.logger.Debug("sql", "op", "commit_outcome", "table", "records",
		"id", rec.ID, "status", rec.Status)

	result, err := s.db.ExecContext(ctx,
		`UPDATE records SET status = ?, failure_count = ?, last_failure_at = ?,
		 claimed_at = NULL, completed_at = ?, last_error = ?
		 WHERE id = ? AND status = 'PROCESSING'`,
		string(rec.Status), rec.FailureCount, optTime(rec.LastFailureAt),
		optTime(rec.CompletedAt), rec.LastError, rec.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("record %s not in PROCESSING, outcome not committed", rec.ID)
	}
	rec.ClaimedAt = nil
	return nil
}

func (s *SQLiteStore) ResetRecord(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "reset", "table", "records", "id", id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE records SET failure_count = 0, last_failure_at = NULL, last_error = ''
		 WHERE id = ? AND status = 'ERROR'`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	s.logger.Debug("sql", "op", "count_by_status", "table", "records")

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM records GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

// --- scan helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanRecord(row scanner) (*model.Record, error) {
	var rec model.Record
	var payloadJSON, status, dateInserted string
	var lastFailureAt, claimedAt, completedAt *string

	err := row.Scan(
		&rec.ID, &rec.Kind, &payloadJSON, &status, &dateInserted,
		&rec.FailureCount, &lastFailureAt, &claimedAt, &completedAt,
		&rec.LastError,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Status = model.Status(status)
	if err := json.Unmarshal([]byte(payloadJSON), &rec.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	rec.DateInserted, _ = time.Parse(time.RFC3339Nano, dateInserted)
	rec.LastFailureAt = parseOptTime(lastFailureAt)
	rec.ClaimedAt = parseOptTime(claimedAt)
	rec.CompletedAt = parseOptTime(completedAt)

	return &rec, nil
}

func (s *SQLiteStore) scanRecords(rows *sql.Rows) ([]*model.Record, error) {
	var recs []*model.Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// optTime formats a nullable timestamp for storage.
func optTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

// parseOptTime parses a nullable stored timestamp.
func parseOptTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}
