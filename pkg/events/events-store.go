package events

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("event not found")

const defaultPageSize = 20

// Store reconciles remote event payloads into the local relational cache and
// serves the ordered, paginated queries behind the event list and detail
// screens. Reads degrade to the bundled sample dataset when the cache is
// empty or unreadable, so callers never face a blank first run.
type Store struct {
	Connection *sql.DB
	logger     logrus.FieldLogger
}

func NewStore(connection *sql.DB, logger logrus.FieldLogger) *Store {
	return &Store{connection, logger}
}

// UpsertEvents reconciles a batch of remote events in a single transaction:
// each event row is inserted or updated by primary key, last write wins on
// every scalar column, and its distance set is deleted and reinserted
// wholesale. Any failure rolls back the entire batch.
func (es *Store) UpsertEvents(batch []Event) error {
	tx, err := es.Connection.Begin()
	if err != nil {
		return err
	}

	// rolling back after a transaction commit results in a safe NOP
	defer tx.Rollback()

	for _, event := range batch {
		if err = upsertEvent(tx, event); err != nil {
			return fmt.Errorf("upserting event %q: %w", event.Id, err)
		}
	}

	return tx.Commit()
}

func upsertEvent(tx *sql.Tx, event Event) error {
	if _, err := tx.Exec(`
		INSERT INTO events (
			id, title, start_date, city, country, lat, lng,
			event_category, status, cover_image, updated_at, deleted_at, min_distance_label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			start_date = excluded.start_date,
			city = excluded.city,
			country = excluded.country,
			lat = excluded.lat,
			lng = excluded.lng,
			event_category = excluded.event_category,
			status = excluded.status,
			cover_image = excluded.cover_image,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			min_distance_label = excluded.min_distance_label`,
		event.Id, event.Title, event.StartDate, event.City, event.Country,
		event.Lat, event.Lng, event.Category, event.Status, event.CoverImage,
		event.UpdatedAt, event.DeletedAt, event.MinDistanceLabel,
	); err != nil {
		return err
	}

	// the distance set is replaced atomically, never merged
	if _, err := tx.Exec("DELETE FROM event_distances WHERE event_id = ?", event.Id); err != nil {
		return err
	}

	for _, distance := range event.Distances {
		if _, err := tx.Exec(`
			INSERT INTO event_distances (id, event_id, label, distance_km, type, price_from, cutoff_minutes, wave_info)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			distance.Id, event.Id, distance.Label, distance.DistanceKm,
			distance.Type, distance.PriceFrom, distance.CutoffMinutes, distance.WaveInfo,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListSummaries returns non-deleted events ordered by start date ascending,
// joined to the organising provider's display name, with offset pagination.
// Zero results, whether from an empty cache or a failing query, fall back to
// the bundled samples paginated in memory with the same semantics.
func (es *Store) ListSummaries(filters Filters, page, pageSize int) ([]Summary, error) {
	offset, limit := pageBounds(page, pageSize)

	var query = `
		SELECT e.id, e.title, e.start_date, e.city, e.country, e.lat, e.lng,
		       e.event_category, e.status, e.cover_image, e.updated_at, e.min_distance_label,
		       min(p.name)
		FROM events e
		LEFT JOIN event_providers ep ON ep.event_id = e.id
		LEFT JOIN providers p ON p.id = ep.provider_id
		WHERE e.deleted_at IS NULL`
	var args []interface{}
	if filters.Category != "" {
		query += " AND e.event_category = ?"
		args = append(args, filters.Category)
	}
	if filters.Status != "" {
		query += " AND e.status = ?"
		args = append(args, filters.Status)
	}
	query += " GROUP BY e.id ORDER BY e.start_date ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	summaries, err := es.querySummaries(query, args...)
	if err != nil {
		es.logger.WithError(err).Warn("event summary query failed, serving bundled samples")
		return sampleSummaries(filters, page, pageSize), nil
	}
	if len(summaries) == 0 {
		return sampleSummaries(filters, page, pageSize), nil
	}
	return summaries, nil
}

func (es *Store) querySummaries(query string, args ...interface{}) ([]Summary, error) {
	rows, err := es.Connection.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var summaries = make([]Summary, 0, defaultPageSize)
	for rows.Next() {
		var summary Summary
		if err = rows.Scan(
			&summary.Id, &summary.Title, &summary.StartDate, &summary.City, &summary.Country,
			&summary.Lat, &summary.Lng, &summary.Category, &summary.Status, &summary.CoverImage,
			&summary.UpdatedAt, &summary.MinDistanceLabel, &summary.ProviderName,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// sampleSummaries filters, orders and paginates the bundled dataset in
// memory, matching the store's query semantics.
func sampleSummaries(filters Filters, page, pageSize int) []Summary {
	var matched = make([]Summary, 0, len(sampleEvents))
	for _, event := range sampleEvents {
		if filters.matches(event.Summary) {
			matched = append(matched, event.Summary)
		}
	}
	// ISO instants order lexically
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartDate < matched[j].StartDate })

	offset, limit := pageBounds(page, pageSize)
	if offset >= len(matched) {
		return []Summary{}
	}
	if offset+limit > len(matched) {
		limit = len(matched) - offset
	}
	return matched[offset : offset+limit]
}

// GetEventDetails returns one event with its full distance list, consulting
// the bundled samples when the store has no such row.
func (es *Store) GetEventDetails(id string) (*Event, error) {
	var event Event
	err := es.Connection.QueryRow(`
		SELECT id, title, start_date, city, country, lat, lng,
		       event_category, status, cover_image, updated_at, deleted_at, min_distance_label
		FROM events WHERE id = ?`, id,
	).Scan(
		&event.Id, &event.Title, &event.StartDate, &event.City, &event.Country,
		&event.Lat, &event.Lng, &event.Category, &event.Status, &event.CoverImage,
		&event.UpdatedAt, &event.DeletedAt, &event.MinDistanceLabel,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return sampleDetails(id)
	}
	if err != nil {
		return nil, err
	}

	event.Distances, err = es.queryDistances(id)
	return &event, err
}

func (es *Store) queryDistances(eventId string) ([]Distance, error) {
	rows, err := es.Connection.Query(`
		SELECT id, event_id, label, distance_km, type, price_from, cutoff_minutes, wave_info
		FROM event_distances WHERE event_id = ? ORDER BY id`, eventId)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var distances = make([]Distance, 0, 4)
	for rows.Next() {
		var d Distance
		if err = rows.Scan(&d.Id, &d.EventId, &d.Label, &d.DistanceKm, &d.Type,
			&d.PriceFrom, &d.CutoffMinutes, &d.WaveInfo); err != nil {
			return distances, err
		}
		distances = append(distances, d)
	}
	return distances, rows.Err()
}

func sampleDetails(id string) (*Event, error) {
	for _, event := range sampleEvents {
		if event.Id == id {
			var found = event
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// SeedIfEmpty is an idempotent bootstrap: it inserts the bundled sample
// events only when the store holds none, and separately ensures a minimal
// event to provider mapping exists for demo purposes.
func (es *Store) SeedIfEmpty() error {
	var count int
	if err := es.Connection.QueryRow("SELECT count(*) FROM events").Scan(&count); err != nil {
		return err
	}

	if count == 0 {
		if err := es.UpsertEvents(sampleEvents); err != nil {
			return fmt.Errorf("seeding sample events: %w", err)
		}
		es.logger.Infof("seeded %d sample events", len(sampleEvents))
	}

	return es.seedEventProviders()
}

func (es *Store) seedEventProviders() error {
	var count int
	if err := es.Connection.QueryRow("SELECT count(*) FROM event_providers").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for eventId, providerId := range sampleEventProviders {
		// skip mappings whose endpoints are missing rather than fail the seed
		if _, err := es.Connection.Exec(`
			INSERT OR IGNORE INTO event_providers (event_id, provider_id)
			SELECT ?, ? WHERE ? IN (SELECT id FROM events) AND ? IN (SELECT id FROM providers)`,
			eventId, providerId, eventId, providerId,
		); err != nil {
			return err
		}
	}
	return nil
}

// pageBounds converts one-based page numbers to offset/limit pairs; out of
// range values fall back to the first page and the default size.
func pageBounds(page, pageSize int) (offset, limit int) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize, pageSize
}

func closeRows(rows *sql.Rows) {
	_ = rows.Close()
}
