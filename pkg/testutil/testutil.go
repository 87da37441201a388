// Package testutil provides shared helpers for repository tests: an
// in-memory database bootstrapped through the full migration sequence, and a
// quiet logger.
package testutil

import (
	"database/sql"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/finishline/finishline-data/pkg/storage/sqlite"
)

// Logger returns a logger that swallows output, keeping test runs quiet.
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OpenDatabase opens a fresh in-memory database with the full schema
// applied; it is closed automatically when the test ends.
func OpenDatabase(t *testing.T) *sql.DB {
	t.Helper()

	store := sqlite.New(Logger(), ":memory:")
	connection, err := store.Connection()
	if err != nil {
		t.Fatalf("couldn't bootstrap test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return connection
}

// OpenStore is like OpenDatabase but also exposes the provider, for tests
// exercising bootstrap and metadata behaviour.
func OpenStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store := sqlite.New(Logger(), ":memory:")
	if _, err := store.Connection(); err != nil {
		t.Fatalf("couldn't bootstrap test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
