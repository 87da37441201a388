package sqlite

import (
	"database/sql"
	"errors"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// bootstrapVersion is recorded in app_meta on every successful bootstrap.
const bootstrapVersion = "1"

// Store owns the single database handle for the process. Every repository
// borrows the handle through Connection and never opens its own; the lazy
// open-and-bootstrap sequence therefore completes before any repository
// traffic touches the tables.
type Store struct {
	logger logrus.FieldLogger
	path   string

	once       sync.Once
	connection *sql.DB
	bootErr    error
}

func New(logger logrus.FieldLogger, path string) *Store {
	return &Store{logger: logger, path: path}
}

// Connection returns the process-wide handle, opening and migrating the
// database exactly once. A failed bootstrap is sticky: every subsequent call
// returns the original error rather than a half-initialised handle.
func (s *Store) Connection() (*sql.DB, error) {
	s.once.Do(func() {
		s.connection, s.bootErr = s.open()
	})
	return s.connection, s.bootErr
}

func (s *Store) open() (*sql.DB, error) {
	s.logger.Infof("opening database at %s", s.path)

	connection, err := sql.Open("sqlite3", getConnectionString(s.path))
	if err != nil {
		return nil, err
	}

	// all statements funnel through one underlying connection; SQLite queues
	// writers anyway and the shared handle keeps in-memory databases coherent
	connection.SetMaxOpenConns(1)

	// opening will fail silently when the package is compiled without CGO_ENABLED
	if err = connection.Ping(); err != nil {
		return nil, err
	}

	// write-ahead logging allows readers during a writer's transaction;
	// NORMAL synchronous is the usual durability/performance balance for WAL
	if _, err = connection.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
		PRAGMA cache_size = -8000;
	`); err != nil {
		s.logger.WithError(err).Error("error while applying connection pragmas")
		return nil, err
	}

	if _, err = connection.Exec(`
		CREATE TABLE IF NOT EXISTS app_meta (
			key TEXT PRIMARY KEY NOT NULL,
			value TEXT
		)`); err != nil {
		s.logger.WithError(err).Error("error while creating the metadata table")
		return nil, err
	}

	if err = runMigrations(connection, s.logger); err != nil {
		s.logger.WithError(err).Error("error while migrating database schema")
		return nil, err
	}

	if _, err = connection.Exec(
		"INSERT OR REPLACE INTO app_meta (key, value) VALUES (?, ?)",
		"db_version", bootstrapVersion,
	); err != nil {
		return nil, err
	}

	s.logTableCounts(connection)

	return connection, nil
}

// logTableCounts emits row counts for the tables most likely to reveal a
// broken installation; purely observational, never gates behaviour.
func (s *Store) logTableCounts(connection *sql.DB) {
	for _, table := range []string{"events", "event_providers"} {
		var count int
		if err := connection.QueryRow("SELECT count(*) FROM " + table).Scan(&count); err != nil {
			s.logger.WithError(err).Warnf("couldn't count rows in %s", table)
			continue
		}
		s.logger.Infof("%s rows: %d", table, count)
	}
}

// GetMeta reads a value from the generic key-value metadata table; missing
// keys yield an empty string rather than an error.
func (s *Store) GetMeta(key string) (string, error) {
	connection, err := s.Connection()
	if err != nil {
		return "", err
	}

	var value string
	err = connection.QueryRow("SELECT value FROM app_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *Store) SetMeta(key, value string) error {
	connection, err := s.Connection()
	if err != nil {
		return err
	}

	_, err = connection.Exec("INSERT OR REPLACE INTO app_meta (key, value) VALUES (?, ?)", key, value)
	return err
}

func (s *Store) Close() error {
	if s.connection == nil {
		return nil
	}
	s.logger.Debug("database stopping")
	return s.connection.Close()
}

// getConnectionString provides a configuration string that enables foreign keys constraints
func getConnectionString(path string) string {
	return path + "?_fk=on"
}
