// Package library keeps the numbered catalog of saved recordings and the
// recordings counter in SQLite.
package library

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
	_ "modernc.org/sqlite"
)

// counterName is the counters row holding the number of saved recordings
const counterName = "recordings"

// ErrNotFound is returned when no recording has the requested number
var ErrNotFound = errors.New("recording not found")

// Recording is one saved take
type Recording struct {
	ID        string
	Number    int
	Path      string
	Format    string
	Duration  time.Duration
	Size      int64
	CreatedAt time.Time
}

// Store is the recordings library. The counter is loaded when the store opens
// and written back in the same transaction as every new recording.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	count int
}

const schema = `
	CREATE TABLE IF NOT EXISTS recordings (
		id TEXT PRIMARY KEY,
		number INTEGER NOT NULL UNIQUE,
		path TEXT NOT NULL,
		format TEXT NOT NULL,
		durationMs INTEGER NOT NULL,
		size INTEGER NOT NULL,
		createdAt REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
`

// Open opens (creating if needed) the library database at path
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create library directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single writer, and :memory: databases are per-connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	s := &Store{db: db}
	if err := s.loadCount(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) loadCount() error {
	var value int
	err := s.db.QueryRow(`SELECT value FROM counters WHERE name = ?`, counterName).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		value = 0
	} else if err != nil {
		return fmt.Errorf("load recordings counter: %w", err)
	}

	s.mu.Lock()
	s.count = value
	s.mu.Unlock()
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NumberOfRecordings is the number of recordings saved so far
func (s *Store) NumberOfRecordings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// NextNumber is the number the next saved recording gets
func (s *Store) NextNumber() int {
	return s.NumberOfRecordings() + 1
}

// Add catalogs a saved recording and flushes the counter. The recording's
// number must be at least NextNumber; a higher number (numbers taken by files
// left from an earlier library) moves the counter up to it. ID and CreatedAt
// are filled in when empty.
func (s *Store) Add(ctx context.Context, rec *Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Number <= s.count {
		return fmt.Errorf("recording number %d already used, expected at least %d", rec.Number, s.count+1)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recordings (id, number, path, format, durationMs, size, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Number, rec.Path, rec.Format, rec.Duration.Milliseconds(), rec.Size, unixFromTime(rec.CreatedAt)); err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, counterName, rec.Number); err != nil {
		return fmt.Errorf("flush recordings counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recording: %w", err)
	}

	s.count = rec.Number
	return nil
}

// List returns all recordings, oldest first
func (s *Store) List(ctx context.Context) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, path, format, durationMs, size, createdAt
		FROM recordings
		ORDER BY number ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var recordings []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, *rec)
	}
	return recordings, rows.Err()
}

// Get returns the recording with the given number
func (s *Store) Get(ctx context.Context, number int) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, path, format, durationMs, size, createdAt
		FROM recordings
		WHERE number = ?
	`, number)

	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: #%d", ErrNotFound, number)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecording(row scanner) (*Recording, error) {
	var rec Recording
	var durationMs int64
	var createdAt float64
	if err := row.Scan(&rec.ID, &rec.Number, &rec.Path, &rec.Format, &durationMs, &rec.Size, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan recording: %w", err)
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	rec.CreatedAt = timeFromUnix(createdAt)
	return &rec, nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(f float64) time.Time {
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
