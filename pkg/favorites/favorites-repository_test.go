package favorites

import (
	"database/sql"
	"testing"

	"github.com/finishline/finishline-data/pkg/testutil"
)

// fakeCache records updates and serves a scripted answer.
type fakeCache struct {
	favorite bool
	known    bool
	updates  map[string]bool
}

func (fc *fakeCache) IsFavorite(eventId string) (bool, bool)  { return fc.favorite, fc.known }
func (fc *fakeCache) UpdateFavorite(eventId string, fav bool) { fc.updates[eventId] = fav }

func newFakeCache() *fakeCache {
	return &fakeCache{updates: make(map[string]bool)}
}

func stageEvent(t *testing.T, connection *sql.DB, id string) {
	t.Helper()
	if _, err := connection.Exec(`
		INSERT INTO events (id, title, start_date, event_category, status, updated_at)
		VALUES (?, 'Staged Event', '2025-12-01T08:00:00Z', 'Trail', 'open', '2025-09-01T10:00:00Z')`,
		id,
	); err != nil {
		t.Fatalf("couldn't stage event %s: %v", id, err)
	}
}

func TestToggleFlipsState(t *testing.T) {
	connection := testutil.OpenDatabase(t)
	stageEvent(t, connection, "evt_x")
	repository := NewRepository(connection, nil)

	favorite, err := repository.Toggle("evt_x")
	if err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if !favorite {
		t.Error("the first toggle should favourite the event")
	}
	if !repository.IsFavorite("evt_x") {
		t.Error("state should match the toggle outcome")
	}

	favorite, err = repository.Toggle("evt_x")
	if err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if favorite {
		t.Error("the second toggle should unfavourite the event")
	}
	if repository.IsFavorite("evt_x") {
		t.Error("state should match the toggle outcome")
	}
}

func TestToggleMaintainsSingleRow(t *testing.T) {
	connection := testutil.OpenDatabase(t)
	stageEvent(t, connection, "evt_x")
	repository := NewRepository(connection, nil)

	for i := 0; i < 3; i++ {
		if _, err := repository.Toggle("evt_x"); err != nil {
			t.Fatalf("unexpected toggle error: %v", err)
		}
	}

	var count int
	if err := connection.QueryRow("SELECT count(*) FROM favorites WHERE event_id = 'evt_x'").Scan(&count); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("an odd number of toggles should leave exactly one row, found %d", count)
	}
}

func TestList(t *testing.T) {
	connection := testutil.OpenDatabase(t)
	repository := NewRepository(connection, nil)

	ids, err := repository.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected an empty set, got %d ids", len(ids))
	}

	for _, id := range []string{"evt_a", "evt_b"} {
		stageEvent(t, connection, id)
		if _, err = repository.Toggle(id); err != nil {
			t.Fatalf("unexpected toggle error: %v", err)
		}
	}

	ids, err = repository.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 favourites, got %d", len(ids))
	}
	for _, id := range []string{"evt_a", "evt_b"} {
		if _, found := ids[id]; !found {
			t.Errorf("missing favourite %s", id)
		}
	}
}

func TestIsFavoritePrefersPopulatedCache(t *testing.T) {
	connection := testutil.OpenDatabase(t)
	cache := newFakeCache()
	cache.known, cache.favorite = true, true
	repository := NewRepository(connection, cache)

	// the store holds no such row; a populated cache wins anyway
	if !repository.IsFavorite("evt_x") {
		t.Error("a populated cache should answer the read")
	}

	// an unpopulated cache routes the read to the store
	cache.known = false
	if repository.IsFavorite("evt_x") {
		t.Error("an unpopulated cache should defer to the store")
	}
}

func TestToggleUpdatesCache(t *testing.T) {
	connection := testutil.OpenDatabase(t)
	stageEvent(t, connection, "evt_x")
	cache := newFakeCache()
	repository := NewRepository(connection, cache)

	if _, err := repository.Toggle("evt_x"); err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if favorite, recorded := cache.updates["evt_x"]; !recorded || !favorite {
		t.Error("the cache should learn about the new favourite")
	}

	if _, err := repository.Toggle("evt_x"); err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if favorite := cache.updates["evt_x"]; favorite {
		t.Error("the cache should learn about the removal")
	}
}
