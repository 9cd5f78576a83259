// Package auditlog records every API request asynchronously into a SQLite
// database: who called what, when, with which status, and how long it took.
package auditlog

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Entry is one recorded API request.
type Entry struct {
	ID         string
	Timestamp  time.Time
	Method     string
	Path       string
	Status     int
	Duration   time.Duration
	RemoteAddr string
	Subscriber string
}

// Repo owns the audit database handle.
type Repo struct {
	db *sql.DB
}

// Open opens (or creates) the audit database at path and applies schema
// migrations.
func Open(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("auditlog: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := migrateDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func migrateDB(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("auditlog: init migration source: %w", err)
	}
	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("auditlog: init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("auditlog: init migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("auditlog: migrate up: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Repo) Close() error {
	return r.db.Close()
}

// InsertBatch writes a batch of entries in one transaction and returns the
// number of rows inserted.
func (r *Repo) InsertBatch(entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("auditlog: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO audit_logs
		(id, ts_ns, method, path, status, duration_ns, remote_addr, subscriber)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("auditlog: prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		if _, err := stmt.Exec(
			e.ID, e.Timestamp.UnixNano(), e.Method, e.Path,
			e.Status, e.Duration.Nanoseconds(), e.RemoteAddr, e.Subscriber,
		); err != nil {
			return inserted, fmt.Errorf("auditlog: insert: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("auditlog: commit: %w", err)
	}
	return inserted, nil
}

// Recent returns up to limit entries, newest first.
func (r *Repo) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`SELECT id, ts_ns, method, path, status, duration_ns, remote_addr, subscriber
		FROM audit_logs ORDER BY ts_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var tsNS, durNS int64
		if err := rows.Scan(&e.ID, &tsNS, &e.Method, &e.Path, &e.Status, &durNS, &e.RemoteAddr, &e.Subscriber); err != nil {
			return nil, fmt.Errorf("auditlog: scan: %w", err)
		}
		e.Timestamp = time.Unix(0, tsNS).UTC()
		e.Duration = time.Duration(durNS)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries older than the retention window and returns the
// number removed.
func (r *Repo) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixNano()
	res, err := r.db.Exec(`DELETE FROM audit_logs WHERE ts_ns < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("auditlog: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
