package directory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/ganymede/pkg/store"
)

// Snapshot persists the last good repository listing to SQLite so a
// restarted process can serve a stale directory while the first live
// refresh is in flight.
type Snapshot struct {
	db   *sql.DB
	path string
}

// OpenSnapshot opens (or creates) the snapshot database at path.
func OpenSnapshot(path string) (*Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		path, int((5 * time.Second).Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Snapshot{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}
	return s, nil
}

func (s *Snapshot) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repositories (
		name TEXT NOT NULL PRIMARY KEY,
		remote_url TEXT NOT NULL,
		application TEXT NOT NULL,
		environment TEXT NOT NULL,
		taken_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_environment ON repositories(environment);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored listing with the given one.
func (s *Snapshot) Save(ctx context.Context, repos []store.RepositoryInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM repositories`); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	now := time.Now().Unix()
	for _, r := range repos {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO repositories (name, remote_url, application, environment, taken_at)
			VALUES (?, ?, ?, ?, ?)
		`, r.Name, r.RemoteURL, r.Application, r.Environment, now)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot row: %w", err)
		}
	}

	return tx.Commit()
}

// Load returns the stored listing and the time it was taken. An empty
// database yields an empty listing and a zero time.
func (s *Snapshot) Load(ctx context.Context) ([]store.RepositoryInfo, time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, remote_url, application, environment, taken_at
		FROM repositories
		ORDER BY name
	`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	var (
		repos   []store.RepositoryInfo
		takenAt int64
	)
	for rows.Next() {
		var r store.RepositoryInfo
		var ts int64
		if err := rows.Scan(&r.Name, &r.RemoteURL, &r.Application, &r.Environment, &ts); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		if ts > takenAt {
			takenAt = ts
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot rows: %w", err)
	}

	var taken time.Time
	if takenAt > 0 {
		taken = time.Unix(takenAt, 0)
	}
	return repos, taken, nil
}

// Close closes the snapshot database.
func (s *Snapshot) Close() error {
	return s.db.Close()
}
