package sqlite

import (
	"database/sql"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func openRaw(t *testing.T) *sql.DB {
	t.Helper()

	connection, err := sql.Open("sqlite3", getConnectionString(":memory:"))
	if err != nil {
		t.Fatalf("couldn't open the database: %v", err)
	}
	connection.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = connection.Close()
	})
	return connection
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// applyUpTo stages the schema as an older install would have it, with only
// the first n migrations applied and ledgered.
func applyUpTo(t *testing.T, connection *sql.DB, n int) {
	t.Helper()

	if err := createLedger(connection); err != nil {
		t.Fatalf("couldn't create the ledger: %v", err)
	}
	for _, m := range migrations[:n] {
		if err := apply(connection, m); err != nil {
			t.Fatalf("couldn't apply %s: %v", m.name, err)
		}
	}
}

func TestUserDataSurvivesProvidersRebuild(t *testing.T) {
	connection := openRaw(t)

	// an install that stopped just before the providers rebuild, holding a
	// provider follow and an event mapping
	applyUpTo(t, connection, 7)
	if _, err := connection.Exec(`
		INSERT INTO provider_follows (user_id, provider_id, created_at)
		VALUES ('me', 'spartan', datetime('now'));
		INSERT INTO events (id, title, start_date, event_category, status, updated_at)
		VALUES ('evt_x', 'Held Over Event', '2025-12-01T08:00:00Z', 'Trail', 'open', '2025-09-01T10:00:00Z');
		INSERT INTO event_providers (event_id, provider_id) VALUES ('evt_x', 'spartan')`,
	); err != nil {
		t.Fatalf("couldn't stage user data: %v", err)
	}

	if err := runMigrations(connection, quietLogger()); err != nil {
		t.Fatalf("couldn't run the remaining migrations: %v", err)
	}

	var follows int
	if err := connection.QueryRow(
		"SELECT count(*) FROM provider_follows WHERE user_id = 'me' AND provider_id = 'spartan'",
	).Scan(&follows); err != nil {
		t.Fatalf("couldn't count provider follows: %v", err)
	}
	if follows != 1 {
		t.Errorf("the provider follow should survive the rebuild, found %d rows", follows)
	}

	var mappings int
	if err := connection.QueryRow(
		"SELECT count(*) FROM event_providers WHERE event_id = 'evt_x' AND provider_id = 'spartan'",
	).Scan(&mappings); err != nil {
		t.Fatalf("couldn't count event mappings: %v", err)
	}
	if mappings != 1 {
		t.Errorf("the event mapping should survive the rebuild, found %d rows", mappings)
	}
}
