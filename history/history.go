// Package history records VM runs and their opcode profiles in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/zraight/numium/pkg/bytecode"
)

var log = commonlog.GetLogger("numium.history")

// ErrRunNotFound indicates the requested run doesn't exist.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	program     TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	steps       INTEGER NOT NULL,
	status      INTEGER NOT NULL,
	fault       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started ON runs (started_at);
CREATE TABLE IF NOT EXISTS opcode_counts (
	run_id TEXT NOT NULL REFERENCES runs (id),
	opcode INTEGER NOT NULL,
	count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, opcode)
);
`

// Run is one recorded execution.
type Run struct {
	ID         uuid.UUID
	Program    string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      uint64
	Status     int
	Fault      string
	Profile    []OpcodeCount
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// OpcodeCount is how often one opcode executed during a run.
type OpcodeCount struct {
	Op    bytecode.Opcode
	Count uint64
}

// Store is a run history database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens the database at path, creating it and its tables as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	log.Debugf("opened run history %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record writes a run and its profile in one transaction. A zero ID is
// replaced by a fresh one and a zero start time by now. The ID used is
// returned.
func (s *Store) Record(ctx context.Context, r Run) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = r.StartedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, program, started_at, finished_at, steps, status, fault)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Program, r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(),
		int64(r.Steps), r.Status, r.Fault,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving run: %w", err)
	}

	for _, c := range r.Profile {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO opcode_counts (run_id, opcode, count) VALUES (?, ?, ?)",
			r.ID.String(), int(c.Op), int64(c.Count),
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("saving profile: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("committing run: %w", err)
	}
	log.Debugf("recorded run %s (%s, status %d)", r.ID, r.Program, r.Status)
	return r.ID, nil
}

// Recent returns up to n runs, newest first, without profiles.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, program, started_at, finished_at, steps, status, fault
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its profile.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, program, started_at, finished_at, steps, status, fault
		 FROM runs WHERE id = ?`, id.String())
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, err
	}
	r.Profile, err = s.Profile(ctx, id)
	return r, err
}

// Profile returns a run's opcode counts, most frequent first.
func (s *Store) Profile(ctx context.Context, id uuid.UUID) ([]OpcodeCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT opcode, count FROM opcode_counts
		 WHERE run_id = ? ORDER BY count DESC, opcode ASC`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	defer rows.Close()

	var out []OpcodeCount
	for rows.Next() {
		var op int
		var count int64
		if err := rows.Scan(&op, &count); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		out = append(out, OpcodeCount{Op: bytecode.Opcode(op), Count: uint64(count)})
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                 Run
		id                string
		started, finished int64
		steps             int64
	)
	if err := row.Scan(&id, &r.Program, &started, &finished, &steps, &r.Status, &r.Fault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("run id %q: %w", id, err)
	}
	r.ID = parsed
	r.StartedAt = time.Unix(0, started)
	r.FinishedAt = time.Unix(0, finished)
	r.Steps = uint64(steps)
	return r, nil
}
