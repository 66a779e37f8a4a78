// Package sqlite keeps a whole container in a single SQLite file, one row per
// blob. The file can be inspected and copied with ordinary SQLite tools.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	// pure Go driver, registered as "sqlite"
	_ "modernc.org/sqlite"

	"github.com/bootphon/h5features-sub000/blobstore"
)

// Config configures the database connection.
type Config struct {
	Path string
	// JournalMode is a SQLite journal mode (WAL, DELETE, TRUNCATE).
	JournalMode string
	// BusyTimeout bounds how long a writer waits for a lock.
	BusyTimeout time.Duration
	// MaxConnections caps the connection pool.
	MaxConnections int
}

// DefaultConfig returns WAL mode with a five second busy timeout.
func DefaultConfig(path string) Config {
	return Config{Path: path, JournalMode: "WAL", BusyTimeout: 5 * time.Second, MaxConnections: 4}
}

// Store implements blobstore.BlobStore on a SQLite table.
type Store struct {
	db *sql.DB

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the database file at path with DefaultConfig.
func Open(path string) (*Store, error) {
	return OpenConfig(DefaultConfig(path))
}

// OpenConfig opens or creates a database.
func OpenConfig(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if cfg.JournalMode == "" {
		cfg.JournalMode = "WAL"
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 4
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)&_pragma=synchronous(FULL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds(), cfg.JournalMode)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(max(cfg.MaxConnections/2, 1))

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS blobs (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		size INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) check() error {
	if s.closed {
		return errors.New("sqlite: store is closed")
	}
	return nil
}

// Open loads the blob; rows are small enough to hold in memory.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blobstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read %s: %w", name, err)
	}
	return blobstore.NewBytesBlob(data), nil
}

// Put upserts the blob in a single statement, which SQLite applies
// atomically.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := blobstore.ValidName(name); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO blobs (name, data, size, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, size = excluded.size, updated_at = excluded.updated_at`,
		name, data, len(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite: write %s: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE name = ?`, name); err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	// substr avoids LIKE wildcards in names
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM blobs WHERE substr(name, 1, length(?)) = ? ORDER BY name`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list %q: %w", prefix, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// SQLite orders by byte value, which matches sort.Strings; keep it explicit
	sort.Strings(names)
	return names, nil
}

// Size returns the total stored bytes.
func (s *Store) Size(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return 0, err
	}
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT SUM(size) FROM blobs`).Scan(&total); err != nil {
		return 0, err
	}
	return total.Int64, nil
}
