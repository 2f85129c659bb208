package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mercator-hq/subtitler/pkg/config"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// schema creates the history tables. Timestamps are stored as Unix
// nanoseconds.
const schema = `
CREATE TABLE IF NOT EXISTS applications (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    template_id TEXT NOT NULL,
    template_version TEXT NOT NULL DEFAULT '',
    transcript_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    phase TEXT NOT NULL,
    partial INTEGER NOT NULL DEFAULT 0,
    words_processed INTEGER NOT NULL DEFAULT 0,
    words_skipped INTEGER NOT NULL DEFAULT 0,
    rules_evaluated INTEGER NOT NULL DEFAULT 0,
    animations_applied INTEGER NOT NULL DEFAULT 0,
    errors INTEGER NOT NULL DEFAULT 0,
    warnings INTEGER NOT NULL DEFAULT 0,
    duration_ns INTEGER NOT NULL DEFAULT 0,
    started_at INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_applications_started_at ON applications(started_at);
CREATE INDEX IF NOT EXISTS idx_applications_template ON applications(template_id, started_at);
CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

const recordColumns = `id, run_id, template_id, template_version, transcript_id, status, phase, partial,
	words_processed, words_skipped, rules_evaluated, animations_applied, errors, warnings,
	duration_ns, started_at, recorded_at`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path and
// migrates its schema. The pragmas are set through the DSN so that every
// pooled connection gets them.
func NewSQLiteStore(cfg config.SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history.sqlite")

	if cfg.Path == "" {
		return nil, NewStorageError("sqlite", "open", errors.New("database path is empty"))
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("sqlite", "create_dir", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStore{db: db, path: cfg.Path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("history store opened",
		"path", cfg.Path,
		"wal_mode", cfg.WALEnabled(),
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

func dsn(cfg config.SQLiteConfig) string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	if cfg.WALEnabled() {
		params.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + cfg.Path + "?" + params.Encode()
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`,
		SchemaVersion, time.Now().UnixNano()); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save inserts record.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return NewStorageError("sqlite", "save", errors.New("record has no id"))
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RunID, record.TemplateID, record.TemplateVersion, record.TranscriptID,
		record.Status, record.Phase, record.Partial,
		record.WordsProcessed, record.WordsSkipped, record.RulesEvaluated, record.AnimationsApplied,
		record.Errors, record.Warnings,
		int64(record.Duration), record.StartedAt.UnixNano(), record.RecordedAt.UnixNano(),
	)
	if err != nil {
		return NewStorageError("sqlite", "save", err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM applications WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("sqlite", "get", err)
	}
	return r, nil
}

// Query returns the matching records, newest first.
func (s *SQLiteStore) Query(ctx context.Context, q *Query) ([]*Record, error) {
	where, args := whereClause(q)
	stmt := `SELECT ` + recordColumns + ` FROM applications` + where + ` ORDER BY started_at DESC, id ASC`
	if q != nil && (q.Limit > 0 || q.Offset > 0) {
		limit := q.Limit
		if limit <= 0 {
			limit = -1
		}
		stmt += ` LIMIT ? OFFSET ?`
		args = append(args, limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *SQLiteStore) Count(ctx context.Context, q *Query) (int64, error) {
	where, args := whereClause(q)
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`+where, args...).Scan(&n); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// DeleteBefore removes records started before cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE started_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Debug("history store closed")
	return nil
}

func whereClause(q *Query) (string, []any) {
	if q == nil {
		return "", nil
	}
	var (
		conds []string
		args  []any
	)
	if q.TemplateID != "" {
		conds = append(conds, "template_id = ?")
		args = append(args, q.TemplateID)
	}
	if q.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, q.Status)
	}
	if q.Since != nil {
		conds = append(conds, "started_at >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if q.Until != nil {
		conds = append(conds, "started_at <= ?")
		args = append(args, q.Until.UnixNano())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		r        Record
		duration int64
		started  int64
		recorded int64
	)
	err := sc.Scan(
		&r.ID, &r.RunID, &r.TemplateID, &r.TemplateVersion, &r.TranscriptID,
		&r.Status, &r.Phase, &r.Partial,
		&r.WordsProcessed, &r.WordsSkipped, &r.RulesEvaluated, &r.AnimationsApplied,
		&r.Errors, &r.Warnings,
		&duration, &started, &recorded,
	)
	if err != nil {
		return nil, err
	}
	r.Duration = time.Duration(duration)
	r.StartedAt = time.Unix(0, started)
	r.RecordedAt = time.Unix(0, recorded)
	return &r, nil
}
