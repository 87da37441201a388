/*
Dbcheck is a development utility for the FinishLine data cache.
It opens (or creates) the local database, bringing the schema up to date,
optionally seeds the bundled sample events and runs a sync pass against the
sample source, then prints the migration ledger, table counts and cache
status for inspection.

Usage:

	dbcheck [flags]

Flags and configurations are handled by the code in `load-configuration.go`;
an optional YAML settings file can be supplied with --settings.

Return values (exit codes):

	0
		The program ended successfully

	> 0
		The program ended due to an error
*/
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf"
	"github.com/sirupsen/logrus"

	"github.com/finishline/finishline-data/pkg/events"
	"github.com/finishline/finishline-data/pkg/eventsync"
	"github.com/finishline/finishline-data/pkg/favorites"
	"github.com/finishline/finishline-data/pkg/notifications"
	"github.com/finishline/finishline-data/pkg/prefetch"
	"github.com/finishline/finishline-data/pkg/providers"
	"github.com/finishline/finishline-data/pkg/storage/sqlite"
	"github.com/finishline/finishline-data/pkg/userraces"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error: ", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfiguration()
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			return nil
		}
		return err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// initialise the database up front for an immediate exit in case of issues
	storage := sqlite.New(logger, cfg.DB.Filename)
	connection, err := storage.Connection()
	if err != nil {
		return fmt.Errorf("error while initialising storage: %w", err)
	}
	defer storage.Close()

	var cache = prefetch.NewCache()
	var eventsStore = events.NewStore(connection, logger)
	var favoritesRepository = favorites.NewRepository(connection, cache)
	var providersRepository = providers.NewRepository(connection, cache, logger)
	var racesRepository = userraces.NewRepository(connection)
	var notificationsRepository = notifications.NewRepository(connection)

	if cfg.Seed {
		if err = eventsStore.SeedIfEmpty(); err != nil {
			return fmt.Errorf("error while seeding sample data: %w", err)
		}
		if err = notificationsRepository.SeedSamplesIfEmpty(); err != nil {
			logger.WithError(err).Warn("couldn't seed sample notifications")
		}
	}

	orchestrator := eventsync.NewOrchestrator(eventsync.SampleSource{}, eventsStore, storage, logger)
	if cfg.Sync {
		if err = orchestrator.Sync(); err != nil {
			return fmt.Errorf("error while syncing events: %w", err)
		}
	}

	prefetcher := prefetch.NewPrefetcher(cache, favoritesRepository, racesRepository, providersRepository, logger)
	prefetcher.Prefetch()

	if err = reportLedger(connection); err != nil {
		return err
	}
	if err = reportCounts(connection); err != nil {
		return err
	}

	lastSync, err := orchestrator.LastSync()
	if err != nil {
		return err
	}
	if lastSync == "" {
		lastSync = "never"
	}
	fmt.Printf("last sync: %s\n", lastSync)

	summaries, err := eventsStore.ListSummaries(events.Filters{}, 1, 10)
	if err != nil {
		return err
	}
	fmt.Printf("first page (%d events):\n", len(summaries))
	for _, summary := range summaries {
		fmt.Printf("  %s  %-24s %s\n", summary.StartDate, summary.Title, summary.Category)
	}

	status := cache.Status()
	fmt.Printf("cache: %d favorites, %d races, %d providers\n",
		status.FavoritesCount, status.RacesCount, status.ProvidersCount)
	return nil
}

// reportLedger prints the applied migrations in execution order.
func reportLedger(connection *sql.DB) error {
	rows, err := connection.Query("SELECT name, run_at FROM _migrations ORDER BY id")
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()

	fmt.Println("applied migrations:")
	for rows.Next() {
		var name, runAt string
		if err = rows.Scan(&name, &runAt); err != nil {
			return err
		}
		fmt.Printf("  %-28s %s\n", name, runAt)
	}
	return rows.Err()
}

func reportCounts(connection *sql.DB) error {
	tables := []string{
		"events", "event_distances", "favorites", "user_races",
		"follows", "providers", "event_providers", "provider_follows", "notifications",
	}
	fmt.Println("table counts:")
	for _, table := range tables {
		var count int
		if err := connection.QueryRow("SELECT count(*) FROM " + table).Scan(&count); err != nil {
			return err
		}
		fmt.Printf("  %-18s %d\n", table, count)
	}
	return nil
}
