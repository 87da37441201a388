package prefetch

import (
	"sync"
	"time"

	"github.com/finishline/finishline-data/pkg/userraces"
)

// Cache is a best-effort in-process projection of the store's hot-path
// reads: favourite ids, upcoming races with their display metadata, and
// followed provider ids. The relational store stays the source of truth; a
// cleared or stale cache costs latency, never correctness.
//
// Each projection is tri-state: reads report known=false until a population
// has happened, directing callers to the store.
type Cache struct {
	mutex sync.RWMutex

	// nil maps and slices mean "not yet populated", distinct from empty
	favoriteIds       map[string]struct{}
	futureRaces       []userraces.RaceWithEvent
	followedProviders map[string]struct{}
	lastUpdated       time.Time
}

func NewCache() *Cache {
	return &Cache{}
}

// IsFavorite reports the cached favourite state of an event; known is false
// when the projection hasn't been populated and the store must be asked.
func (c *Cache) IsFavorite(eventId string) (favorite, known bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.favoriteIds == nil {
		return false, false
	}
	_, favorite = c.favoriteIds[eventId]
	return favorite, true
}

func (c *Cache) SetFavoriteIds(ids map[string]struct{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.favoriteIds = copySet(ids)
	c.lastUpdated = time.Now()
}

// UpdateFavorite applies an optimistic single-id update; a projection that
// was never populated stays unpopulated, since one known id can't stand in
// for the whole set.
func (c *Cache) UpdateFavorite(eventId string, favorite bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.favoriteIds == nil {
		return
	}
	if favorite {
		c.favoriteIds[eventId] = struct{}{}
	} else {
		delete(c.favoriteIds, eventId)
	}
}

// FutureRaces returns the cached upcoming-race list, or known=false when
// unpopulated.
func (c *Cache) FutureRaces() (races []userraces.RaceWithEvent, known bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.futureRaces == nil {
		return nil, false
	}
	races = make([]userraces.RaceWithEvent, len(c.futureRaces))
	copy(races, c.futureRaces)
	return races, true
}

func (c *Cache) SetFutureRaces(races []userraces.RaceWithEvent) {
	copied := make([]userraces.RaceWithEvent, len(races))
	copy(copied, races)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.futureRaces = copied
	c.lastUpdated = time.Now()
}

func (c *Cache) IsFollowedProvider(providerId string) (followed, known bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.followedProviders == nil {
		return false, false
	}
	_, followed = c.followedProviders[providerId]
	return followed, true
}

func (c *Cache) SetFollowedProviders(ids map[string]struct{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.followedProviders = copySet(ids)
	c.lastUpdated = time.Now()
}

func (c *Cache) UpdateFollowedProvider(providerId string, followed bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.followedProviders == nil {
		return
	}
	if followed {
		c.followedProviders[providerId] = struct{}{}
	} else {
		delete(c.followedProviders, providerId)
	}
}

// Clear drops every projection; safe at any time, reads fall back to the
// store until the next population.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.favoriteIds = nil
	c.futureRaces = nil
	c.followedProviders = nil
	c.lastUpdated = time.Time{}
}

// StatusReport describes cache population for diagnostics.
type StatusReport struct {
	HasFavorites   bool
	HasRaces       bool
	HasProviders   bool
	FavoritesCount int
	RacesCount     int
	ProvidersCount int
	LastUpdated    time.Time
}

func (c *Cache) Status() StatusReport {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return StatusReport{
		HasFavorites:   c.favoriteIds != nil,
		HasRaces:       c.futureRaces != nil,
		HasProviders:   c.followedProviders != nil,
		FavoritesCount: len(c.favoriteIds),
		RacesCount:     len(c.futureRaces),
		ProvidersCount: len(c.followedProviders),
		LastUpdated:    c.lastUpdated,
	}
}

func copySet(ids map[string]struct{}) map[string]struct{} {
	copied := make(map[string]struct{}, len(ids))
	for id := range ids {
		copied[id] = struct{}{}
	}
	return copied
}
