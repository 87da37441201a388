package sqlite

import (
	"database/sql"

	"github.com/sirupsen/logrus"
)

type migration struct {
	name   string
	script string
}

// migrations run in declaration order and are strictly append-only: the
// ledger stores names without checksums, so editing a shipped script would
// silently diverge from installations that already applied it.
var migrations = []migration{
	{"001_events_and_distances", `
		CREATE TABLE events (
			id TEXT PRIMARY KEY NOT NULL,
			title TEXT NOT NULL,
			start_date TEXT NOT NULL,
			city TEXT,
			country TEXT,
			lat REAL,
			lng REAL,
			event_category TEXT NOT NULL,
			status TEXT NOT NULL,
			cover_image TEXT,
			updated_at TEXT NOT NULL,
			deleted_at TEXT,
			min_distance_label TEXT
		);

		CREATE INDEX idx_events_start_date ON events (start_date);
		CREATE INDEX idx_events_category ON events (event_category);
		CREATE INDEX idx_events_updated_at ON events (updated_at);

		CREATE TABLE event_distances (
			id TEXT PRIMARY KEY NOT NULL,
			event_id TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
			label TEXT NOT NULL,
			distance_km REAL,
			type TEXT NOT NULL,
			price_from REAL,
			cutoff_minutes INTEGER,
			wave_info TEXT
		);

		CREATE INDEX idx_event_distances_event_id ON event_distances (event_id);
	`},
	{"002_favorites", `
		CREATE TABLE favorites (
			event_id TEXT PRIMARY KEY NOT NULL REFERENCES events (id) ON DELETE CASCADE,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX idx_favorites_created_at ON favorites (created_at);
	`},
	{"003_user_races", `
		CREATE TABLE user_races (
			id TEXT PRIMARY KEY NOT NULL,
			eventId TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('FUTURE', 'PAST', 'CANCELLED')),
			bibNumber TEXT,
			waveNumber TEXT,
			startTimeLocal TEXT,
			targetTimeMinutes INTEGER,
			resultTimeSeconds INTEGER,
			note TEXT,
			createdAt TEXT NOT NULL,
			updatedAt TEXT NOT NULL
		);

		CREATE INDEX idx_user_races_event_id ON user_races (eventId);
	`},
	{"004_follows", `
		CREATE TABLE follows (
			follower_id TEXT NOT NULL,
			following_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (follower_id, following_id)
		);
	`},
	// 005 shipped with two defects, corrected by 007 and 008: event_providers
	// keyed a single provider per event with no foreign keys, and providers
	// demanded non-null logos and websites.
	{"005_providers", `
		CREATE TABLE providers (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			logo_url TEXT NOT NULL,
			website TEXT NOT NULL
		);

		INSERT INTO providers (id, name, logo_url, website) VALUES
			('spartan', 'Spartan Race', '', 'https://www.spartan.com'),
			('ironman', 'IRONMAN', '', 'https://www.ironman.com'),
			('marathon', 'Prague International Marathon', '', 'https://www.runczech.com');

		CREATE TABLE event_providers (
			event_id TEXT NOT NULL,
			provider_id TEXT NOT NULL,
			PRIMARY KEY (event_id)
		);
	`},
	{"006_provider_follows", `
		CREATE TABLE provider_follows (
			user_id TEXT NOT NULL,
			provider_id TEXT NOT NULL REFERENCES providers (id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, provider_id)
		);
	`},
	// rebuilds event_providers with a composite key and cascading foreign
	// keys; surviving rows are carried over, orphans are filtered out
	{"007_fix_event_providers", `
		CREATE TABLE event_providers_next (
			event_id TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
			provider_id TEXT NOT NULL REFERENCES providers (id) ON DELETE CASCADE,
			PRIMARY KEY (event_id, provider_id)
		);

		INSERT INTO event_providers_next (event_id, provider_id)
		SELECT event_id, provider_id FROM event_providers
		WHERE event_id IN (SELECT id FROM events)
		AND provider_id IN (SELECT id FROM providers);

		DROP TABLE event_providers;
		ALTER TABLE event_providers_next RENAME TO event_providers;
	`},
	// rebuilds providers with nullable logo and website columns, reseeding
	// the samples; dropping the old parent performs an implicit delete that
	// cascades through event_providers and provider_follows, so both child
	// tables are parked in temporary tables and restored afterwards
	{"008_fix_providers", `
		PRAGMA defer_foreign_keys = ON;

		CREATE TEMPORARY TABLE event_providers_backup AS
		SELECT event_id, provider_id FROM event_providers;

		CREATE TEMPORARY TABLE provider_follows_backup AS
		SELECT user_id, provider_id, created_at FROM provider_follows;

		CREATE TABLE providers_next (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			logo_url TEXT,
			website TEXT
		);

		INSERT INTO providers_next (id, name, logo_url, website)
		SELECT id, name, nullif(logo_url, ''), nullif(website, '') FROM providers;

		DROP TABLE providers;
		ALTER TABLE providers_next RENAME TO providers;

		INSERT OR IGNORE INTO providers (id, name, logo_url, website) VALUES
			('spartan', 'Spartan Race', NULL, 'https://www.spartan.com'),
			('ironman', 'IRONMAN', NULL, 'https://www.ironman.com'),
			('marathon', 'Prague International Marathon', NULL, 'https://www.runczech.com');

		INSERT OR IGNORE INTO event_providers (event_id, provider_id)
		SELECT event_id, provider_id FROM event_providers_backup
		WHERE provider_id IN (SELECT id FROM providers);

		INSERT OR IGNORE INTO provider_follows (user_id, provider_id, created_at)
		SELECT user_id, provider_id, created_at FROM provider_follows_backup
		WHERE provider_id IN (SELECT id FROM providers);

		DROP TABLE event_providers_backup;
		DROP TABLE provider_follows_backup;
	`},
	{"009_notifications", `
		CREATE TABLE notifications (
			id TEXT PRIMARY KEY NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT,
			createdAt TEXT NOT NULL,
			read INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX idx_notifications_created_at ON notifications (createdAt DESC);
		CREATE INDEX idx_notifications_read ON notifications (read);
	`},
}

// runMigrations brings the schema up to date; it is idempotent and safe to
// call on every connection open. Each pending migration executes along with
// its ledger insert inside one transaction, so a failing script leaves no
// partial state behind and aborts the bootstrap.
func runMigrations(connection *sql.DB, logger logrus.FieldLogger) error {
	if err := createLedger(connection); err != nil {
		return err
	}

	for _, m := range migrations {
		applied, err := hasRun(connection, m.name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err = apply(connection, m); err != nil {
			return err
		}
		logger.Infof("applied migration %s", m.name)
	}
	return nil
}

func createLedger(connection *sql.DB) error {
	_, err := connection.Exec(`
		CREATE TABLE IF NOT EXISTS _migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			run_at TEXT NOT NULL
		)`)
	return err
}

func hasRun(connection *sql.DB, name string) (applied bool, err error) {
	err = connection.QueryRow(
		"SELECT EXISTS (SELECT TRUE FROM _migrations WHERE name = ?)", name,
	).Scan(&applied)
	return applied, err
}

func apply(connection *sql.DB, m migration) error {
	tx, err := connection.Begin()
	if err != nil {
		return err
	}

	// rolling back after a transaction commit results in a safe NOP
	defer tx.Rollback()

	if _, err = tx.Exec(m.script); err != nil {
		return err
	}

	if _, err = tx.Exec(
		"INSERT INTO _migrations (name, run_at) VALUES (?, datetime('now'))", m.name,
	); err != nil {
		return err
	}

	return tx.Commit()
}
