package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) a build history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL UNIQUE,
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		warnings INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	CREATE TABLE IF NOT EXISTS build_posts (
		build_id TEXT NOT NULL REFERENCES builds(build_id),
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		src TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (build_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores rec and its posts in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO builds (build_id, started, duration_ms, outcome, warnings, error) VALUES (?, ?, ?, ?, ?, ?)",
		rec.BuildID, rec.Started.UnixNano(), rec.Duration.Milliseconds(), rec.Outcome, rec.Warnings, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}

	for i, p := range rec.Posts {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO build_posts (build_id, position, url, src, fingerprint) VALUES (?, ?, ?, ?, ?)",
			rec.BuildID, i, p.URL, p.Src, p.Fingerprint,
		)
		if err != nil {
			return fmt.Errorf("insert build post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get retrieves the record for buildID.
func (s *SQLiteStore) Get(ctx context.Context, buildID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT build_id, started, duration_ms, outcome, warnings, error FROM builds WHERE build_id = ?",
		buildID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, buildID)
	}
	if err != nil {
		return nil, err
	}

	if rec.Posts, err = s.posts(ctx, buildID); err != nil {
		return nil, err
	}
	return rec, nil
}

// Recent retrieves up to limit records, newest first. Posts are not loaded.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT build_id, started, duration_ms, outcome, warnings, error FROM builds ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// LastFingerprints returns the post fingerprints of the newest build that did
// not fail.
func (s *SQLiteStore) LastFingerprints(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT url, fingerprint FROM build_posts WHERE build_id = (
			SELECT build_id FROM builds WHERE outcome != ? ORDER BY id DESC LIMIT 1
		)`, OutcomeFailed)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var url, fp string
		if err := rows.Scan(&url, &fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out[url] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) posts(ctx context.Context, buildID string) ([]PostRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT url, src, fingerprint FROM build_posts WHERE build_id = ? ORDER BY position",
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query build posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []PostRecord
	for rows.Next() {
		var p PostRecord
		if err := rows.Scan(&p.URL, &p.Src, &p.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan build post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return posts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec        Record
		startedNS  int64
		durationMS int64
		errText    sql.NullString
	)
	if err := row.Scan(&rec.BuildID, &startedNS, &durationMS, &rec.Outcome, &rec.Warnings, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan build: %w", err)
	}
	rec.Started = time.Unix(0, startedNS)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.Error = errText.String
	return &rec, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
