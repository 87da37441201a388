package providers

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/finishline/finishline-data/pkg/events"
)

var ErrProviderNotFound = errors.New("provider not found")

const defaultPageSize = 20

// Cache mirrors the followed-provider projection kept by the memory cache;
// nil disables cache consultation.
type Cache interface {
	IsFollowedProvider(providerId string) (followed, known bool)
	UpdateFollowedProvider(providerId string, followed bool)
}

// Repository serves organiser records, the user's provider follows and the
// per-provider event listings. Follow state is a best-effort social feature:
// storage errors on the follow paths are logged and resolved to a safe
// not-following default instead of reaching the caller.
type Repository struct {
	Connection *sql.DB
	cache      Cache
	logger     logrus.FieldLogger
}

func NewRepository(connection *sql.DB, cache Cache, logger logrus.FieldLogger) *Repository {
	return &Repository{connection, cache, logger}
}

func (pr *Repository) GetProvider(id string) (provider Provider, err error) {
	err = pr.Connection.QueryRow(
		"SELECT id, name, logo_url, website FROM providers WHERE id = ?", id,
	).Scan(&provider.Id, &provider.Name, &provider.LogoUrl, &provider.Website)
	if errors.Is(err, sql.ErrNoRows) {
		return provider, ErrProviderNotFound
	}
	return provider, err
}

// IsFollowed answers from the memory cache when populated, falling back to
// the store; errors count as not-following.
func (pr *Repository) IsFollowed(userId, providerId string) (followed bool) {
	if pr.cache != nil {
		if followed, known := pr.cache.IsFollowedProvider(providerId); known {
			return followed
		}
	}

	var err = pr.Connection.QueryRow(
		"SELECT TRUE FROM provider_follows WHERE user_id = ? AND provider_id = ?",
		userId, providerId,
	).Scan(&followed)
	return err == nil && followed
}

// Follow records a provider follow and reports the resulting state. Failures
// (the table may not exist mid-migration) are logged, never raised.
func (pr *Repository) Follow(userId, providerId string) (followed bool) {
	_, err := pr.Connection.Exec(
		"INSERT OR IGNORE INTO provider_follows (user_id, provider_id, created_at) VALUES (?, ?, datetime('now'))",
		userId, providerId,
	)
	if err != nil {
		pr.logger.WithError(err).Warnf("couldn't follow provider %s", providerId)
		return false
	}

	if pr.cache != nil {
		pr.cache.UpdateFollowedProvider(providerId, true)
	}
	return true
}

// Unfollow removes a provider follow; the returned state is always
// not-following, whether the delete succeeded or was merely logged.
func (pr *Repository) Unfollow(userId, providerId string) (followed bool) {
	_, err := pr.Connection.Exec(
		"DELETE FROM provider_follows WHERE user_id = ? AND provider_id = ?",
		userId, providerId,
	)
	if err != nil {
		pr.logger.WithError(err).Warnf("couldn't unfollow provider %s", providerId)
		return false
	}

	if pr.cache != nil {
		pr.cache.UpdateFollowedProvider(providerId, false)
	}
	return false
}

// ListFollowedIds returns the set of provider ids the user follows.
func (pr *Repository) ListFollowedIds(userId string) (map[string]struct{}, error) {
	rows, err := pr.Connection.Query(
		"SELECT provider_id FROM provider_follows WHERE user_id = ?", userId,
	)
	if err != nil {
		return nil, err
	}

	var ids = make(map[string]struct{})
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return ids, err
		}
		ids[id] = struct{}{}
	}

	if err = rows.Err(); err != nil {
		return ids, err
	}
	return ids, rows.Close()
}

// EventsPage is one page of a provider's events plus the filtered total, for
// pagination controls.
type EventsPage struct {
	Events []events.Summary
	Total  int
}

// ListEventsByProvider returns the provider's non-deleted events, optionally
// searched, windowed to the near future and sorted by start date either way,
// along with the total count of matches. An unknown provider id is a domain
// error rather than an empty page.
func (pr *Repository) ListEventsByProvider(providerId string, options ListOptions) (page EventsPage, err error) {
	if err = options.Validate(); err != nil {
		return page, err
	}

	if _, err = pr.GetProvider(providerId); err != nil {
		return page, err
	}

	where, args := buildEventFilter(providerId, options)

	if err = pr.Connection.QueryRow(
		"SELECT count(*) FROM events e JOIN event_providers ep ON ep.event_id = e.id "+where, args...,
	).Scan(&page.Total); err != nil {
		return page, err
	}

	var order = " ORDER BY e.start_date ASC"
	if options.SortDescending {
		order = " ORDER BY e.start_date DESC"
	}

	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageNumber := options.Page
	if pageNumber < 1 {
		pageNumber = 1
	}
	args = append(args, pageSize, (pageNumber-1)*pageSize)

	rows, err := pr.Connection.Query(`
		SELECT e.id, e.title, e.start_date, e.city, e.country, e.lat, e.lng,
		       e.event_category, e.status, e.cover_image, e.updated_at, e.min_distance_label
		FROM events e JOIN event_providers ep ON ep.event_id = e.id `+where+order+" LIMIT ? OFFSET ?",
		args...,
	)
	if err != nil {
		return page, err
	}
	defer func() {
		_ = rows.Close()
	}()

	page.Events = make([]events.Summary, 0, pageSize)
	for rows.Next() {
		var summary events.Summary
		if err = rows.Scan(
			&summary.Id, &summary.Title, &summary.StartDate, &summary.City, &summary.Country,
			&summary.Lat, &summary.Lng, &summary.Category, &summary.Status, &summary.CoverImage,
			&summary.UpdatedAt, &summary.MinDistanceLabel,
		); err != nil {
			return page, err
		}
		page.Events = append(page.Events, summary)
	}
	return page, rows.Err()
}

func buildEventFilter(providerId string, options ListOptions) (clause string, args []interface{}) {
	clause = "WHERE ep.provider_id = ? AND e.deleted_at IS NULL"
	args = append(args, providerId)

	if search := strings.TrimSpace(options.Search); search != "" {
		clause += ` AND (lower(e.title) LIKE ?
			OR lower(coalesce(e.city, '')) LIKE ?
			OR lower(coalesce(e.country, '')) LIKE ?)`
		pattern := "%" + strings.ToLower(search) + "%"
		args = append(args, pattern, pattern, pattern)
	}

	if options.DateWindowDays > 0 {
		now := time.Now().UTC()
		clause += " AND e.start_date >= ? AND e.start_date <= ?"
		args = append(args,
			now.Format(time.RFC3339),
			now.AddDate(0, 0, options.DateWindowDays).Format(time.RFC3339),
		)
	}
	return clause, args
}

// SeedEventProvidersIfEmpty pairs events with providers when no mappings
// exist yet; a development convenience kept out of normal sync flow.
func (pr *Repository) SeedEventProvidersIfEmpty(eventIds, providerIds []string) error {
	var count int
	if err := pr.Connection.QueryRow("SELECT count(*) FROM event_providers").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	pairs := len(eventIds)
	if len(providerIds) < pairs {
		pairs = len(providerIds)
	}

	for i := 0; i < pairs; i++ {
		if _, err := pr.Connection.Exec(`
			INSERT OR IGNORE INTO event_providers (event_id, provider_id)
			SELECT ?, ? WHERE ? IN (SELECT id FROM events) AND ? IN (SELECT id FROM providers)`,
			eventIds[i], providerIds[i], eventIds[i], providerIds[i],
		); err != nil {
			return err
		}
	}
	return nil
}
