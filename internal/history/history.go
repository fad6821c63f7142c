// Package history records completed backup runs in a SQLite database under
// the backup root's state directory, so past runs can be listed without
// re-scanning generation directories.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/genbak/genbak/internal/generation"
	"github.com/genbak/genbak/internal/stats"
)

// DBName is the history database filename inside the state directory.
const DBName = "history.db"

// Run is one recorded backup run.
type Run struct {
	ID            int64
	Generation    string
	StartedAt     time.Time
	Duration      time.Duration
	FilesCopied   int64
	BytesCopied   int64
	FilesLinked   int64
	FilesFailed   int64
	FilesVerified int64
	DryRun        bool
}

// DB is the run-history store for one backup root.
type DB struct {
	db *sql.DB
}

// Path returns the history database path for a backup root.
func Path(backupRoot string) string {
	return filepath.Join(backupRoot, generation.StateDir, DBName)
}

// Open opens (or creates) the history database for the given backup root.
func Open(backupRoot string) (*DB, error) {
	dbPath := Path(backupRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	h := &DB{db: db}
	if err := h.init(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *DB) init() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			generation   TEXT NOT NULL,
			started_at   INTEGER NOT NULL,
			duration_ns  INTEGER NOT NULL,
			files_copied INTEGER NOT NULL,
			bytes_copied INTEGER NOT NULL,
			files_linked INTEGER NOT NULL,
			files_failed INTEGER NOT NULL,
			files_verified INTEGER NOT NULL DEFAULT 0,
			dry_run      INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Record appends one completed run.
func (h *DB) Record(generationName string, startedAt time.Time, duration time.Duration, snap stats.Snapshot, dryRun bool) error {
	_, err := h.db.Exec(`
		INSERT INTO runs (generation, started_at, duration_ns, files_copied, bytes_copied, files_linked, files_failed, files_verified, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		generationName, startedAt.Unix(), int64(duration),
		snap.FilesCopied, snap.BytesCopied, snap.FilesLinked, snap.FilesFailed,
		snap.FilesVerified, boolToInt(dryRun),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first, up to limit
// (0 means all).
func (h *DB) List(limit int) ([]Run, error) {
	query := `
		SELECT id, generation, started_at, duration_ns, files_copied, bytes_copied, files_linked, files_failed, files_verified, dry_run
		FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, durNS, dry int64
		if err := rows.Scan(&r.ID, &r.Generation, &started, &durNS,
			&r.FilesCopied, &r.BytesCopied, &r.FilesLinked, &r.FilesFailed,
			&r.FilesVerified, &dry); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		r.Duration = time.Duration(durNS)
		r.DryRun = dry != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (h *DB) Close() error {
	return h.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
