package prefetch

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/finishline/finishline-data/pkg/follows"
	"github.com/finishline/finishline-data/pkg/userraces"
)

type FavoriteLister interface {
	List() (map[string]struct{}, error)
}

type FutureRaceLister interface {
	ListFuture() ([]userraces.RaceWithEvent, error)
}

type FollowedProviderLister interface {
	ListFollowedIds(userId string) (map[string]struct{}, error)
}

// Prefetcher populates the memory cache at startup so the first favourite
// toggle or follow check never waits on storage. The three projections load
// in parallel and fail independently: a broken one is logged and skipped
// while the others land.
type Prefetcher struct {
	cache     *Cache
	favorites FavoriteLister
	races     FutureRaceLister
	providers FollowedProviderLister
	logger    logrus.FieldLogger
	userId    string
}

func NewPrefetcher(
	cache *Cache,
	favorites FavoriteLister,
	races FutureRaceLister,
	providers FollowedProviderLister,
	logger logrus.FieldLogger,
) *Prefetcher {
	return &Prefetcher{cache, favorites, races, providers, logger, follows.DefaultUserId}
}

// Prefetch loads all projections and blocks until each has either landed in
// the cache or failed; it never returns an error, as a cold cache only
// degrades latency.
func (p *Prefetcher) Prefetch() {
	var waitGroup sync.WaitGroup
	waitGroup.Add(3)

	go func() {
		defer waitGroup.Done()
		p.RefreshFavorites()
	}()
	go func() {
		defer waitGroup.Done()
		p.RefreshFutureRaces()
	}()
	go func() {
		defer waitGroup.Done()
		p.RefreshFollowedProviders()
	}()

	waitGroup.Wait()

	status := p.cache.Status()
	p.logger.Infof("prefetch done: %d favorites, %d races, %d providers",
		status.FavoritesCount, status.RacesCount, status.ProvidersCount)
}

// RefreshFavorites reloads the favourite-id projection after a mutation or
// an external change.
func (p *Prefetcher) RefreshFavorites() {
	ids, err := p.favorites.List()
	if err != nil {
		p.logger.WithError(err).Warn("couldn't prefetch favorites")
		return
	}
	p.cache.SetFavoriteIds(ids)
}

func (p *Prefetcher) RefreshFutureRaces() {
	races, err := p.races.ListFuture()
	if err != nil {
		p.logger.WithError(err).Warn("couldn't prefetch future races")
		return
	}
	p.cache.SetFutureRaces(races)
}

func (p *Prefetcher) RefreshFollowedProviders() {
	ids, err := p.providers.ListFollowedIds(p.userId)
	if err != nil {
		p.logger.WithError(err).Warn("couldn't prefetch followed providers")
		return
	}
	p.cache.SetFollowedProviders(ids)
}
