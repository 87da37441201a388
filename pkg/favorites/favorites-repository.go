package favorites

import (
	"database/sql"
	"time"
)

// Cache is the optional in-memory projection consulted before the store on
// hot-path reads and updated optimistically on toggles. A nil cache simply
// routes every read to the store.
type Cache interface {
	IsFavorite(eventId string) (favorite, known bool)
	UpdateFavorite(eventId string, favorite bool)
}

// Repository tracks favourited events. A favourite is nothing more than a
// row in the favorites table; presence is the signal, there is no flag to
// fall out of sync.
type Repository struct {
	Connection *sql.DB
	cache      Cache
}

func NewRepository(connection *sql.DB, cache Cache) *Repository {
	return &Repository{connection, cache}
}

// List returns the favourited event ids as a set.
func (fr *Repository) List() (map[string]struct{}, error) {
	rows, err := fr.Connection.Query("SELECT event_id FROM favorites")
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

// IsFavorite answers from the memory cache when it's populated and falls
// back to the store otherwise; favourite checks gate heart icons and must
// not wait on storage when avoidable.
func (fr *Repository) IsFavorite(eventId string) (favorite bool) {
	if fr.cache != nil {
		if favorite, known := fr.cache.IsFavorite(eventId); known {
			return favorite
		}
	}

	var err = fr.Connection.QueryRow(
		"SELECT TRUE FROM favorites WHERE event_id = ?", eventId,
	).Scan(&favorite)
	return err == nil && favorite
}

// Toggle flips the favourite state of an event inside one transaction and
// reports the new state; the cache is updated in step with the store write.
func (fr *Repository) Toggle(eventId string) (favorite bool, err error) {
	tx, err := fr.Connection.Begin()
	if err != nil {
		return false, err
	}

	// rolling back after a transaction commit results in a safe NOP
	defer tx.Rollback()

	var exists bool
	if err = tx.QueryRow(
		"SELECT EXISTS (SELECT TRUE FROM favorites WHERE event_id = ?)", eventId,
	).Scan(&exists); err != nil {
		return false, err
	}

	if exists {
		_, err = tx.Exec("DELETE FROM favorites WHERE event_id = ?", eventId)
	} else {
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO favorites (event_id, created_at) VALUES (?, ?)",
			eventId, time.Now().UnixMilli(),
		)
	}
	if err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}

	favorite = !exists
	if fr.cache != nil {
		fr.cache.UpdateFavorite(eventId, favorite)
	}
	return favorite, nil
}
