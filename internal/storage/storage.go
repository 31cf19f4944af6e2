// Package storage persists watch progress.
//
// Every backend implements KV. StateStore layers the per-video progress
// record on top of any KV. The sqlite Store is the default backend and also
// offers maintenance operations (integrity check, vacuum, analyze).
package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// Store is the sqlite KV backend.
type Store struct {
	db       *sql.DB
	readOnly bool
}

// Options tune the sqlite connection.
type Options struct {
	BusyTimeout time.Duration
	Synchronous string
	CacheSize   int
	ReadOnly    bool
}

func (o Options) withDefaults() Options {
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = 5 * time.Second
	}
	if o.Synchronous == "" {
		o.Synchronous = "NORMAL"
	}
	if o.CacheSize == 0 {
		o.CacheSize = -2000
	}
	return o
}

// sqliteDSN applies connection pragmas through the DSN so that every pooled
// connection gets them.
func sqliteDSN(path string, options Options) (string, error) {
	if path == memoryPath {
		if options.ReadOnly {
			return "", fmt.Errorf("storage: read-only mode requires a file-backed database")
		}
		return path, nil
	}

	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", options.BusyTimeout.Milliseconds()))
	query.Add("_pragma", "foreign_keys(ON)")
	query.Add("_pragma", "temp_store(MEMORY)")
	query.Add("_pragma", fmt.Sprintf("cache_size(%d)", options.CacheSize))
	if options.ReadOnly {
		query.Set("mode", "ro")
	} else {
		query.Add("_pragma", fmt.Sprintf("synchronous(%s)", options.Synchronous))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Open opens (and unless read-only, migrates) the sqlite database at path.
// ":memory:" opens a private in-memory database.
func Open(path string, options Options) (*Store, error) {
	options = options.withDefaults()
	dsn, err := sqliteDSN(path, options)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if path == memoryPath {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", options.BusyTimeout.Milliseconds())); err != nil {
			_ = db.Close()
			return nil, err
		}
	} else if !options.ReadOnly {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, err
		}
		if _, err := db.Exec("PRAGMA journal_size_limit=67108864"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	store := &Store{db: db, readOnly: options.ReadOnly}
	if !options.ReadOnly {
		if err := store.MigrateSchema(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ReadOnly() bool {
	if s == nil {
		return false
	}
	return s.readOnly
}

// IntegrityCheck runs PRAGMA integrity_check. A healthy database yields ["ok"].
func (s *Store) IntegrityCheck() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage: missing database connection")
	}
	rows, err := s.db.Query("PRAGMA integrity_check")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Vacuum compacts the database in place, or into target when it is set.
func (s *Store) Vacuum(target string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}
	if target == "" {
		_, err := s.db.Exec("VACUUM")
		return err
	}
	_, err := s.db.Exec("VACUUM INTO ?", target)
	return err
}

func (s *Store) Analyze() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}
	_, err := s.db.Exec("ANALYZE")
	return err
}
