// internal/dashboard/service.go
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github-dashboard/internal/cache"
	apperrors "github-dashboard/internal/errors"
	"github-dashboard/internal/model"
)

// Service orchestrates the aggregation pipeline and the mutation operations
// for one upstream client, writing every resolved section into the view cache.
type Service struct {
	fetcher       Fetcher
	mutator       Mutator
	store         *cache.Store
	enricher      *Enricher
	logger        *slog.Logger
	enrichLimit   int
	activityLimit int
	sf            singleflight.Group
}

// NewService creates a new Service instance. enrichLimit bounds how many
// repositories are enriched in parallel; activityLimit caps the activity feed.
func NewService(fetcher Fetcher, mutator Mutator, store *cache.Store, logger *slog.Logger, enrichLimit, activityLimit int) *Service {
	return &Service{
		fetcher:       fetcher,
		mutator:       mutator,
		store:         store,
		enricher:      NewEnricher(fetcher, BestEffort, logger),
		logger:        logger,
		enrichLimit:   enrichLimit,
		activityLimit: activityLimit,
	}
}

// Load produces the full dashboard view for the session's account. Independent
// sections fetch concurrently; enrichment and the language distribution wait
// for the repository list. A profile failure is fatal to the whole view, every
// other section degrades to empty data plus a recorded section error.
//
// Concurrent Load calls for the same handle are collapsed into one flight.
func (s *Service) Load(ctx context.Context, sess Session) (*model.Dashboard, error) {
	if !sess.valid() {
		return nil, &apperrors.ErrMissingCredentials{}
	}

	v, err, _ := s.sf.Do("dashboard:"+sess.Handle, func() (any, error) {
		return s.load(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Dashboard), nil
}

func (s *Service) load(ctx context.Context, sess Session) (*model.Dashboard, error) {
	logger := s.logger.With("handle", sess.Handle)
	logger.Info("Aggregating dashboard")

	dash := &model.Dashboard{
		Repositories:  []model.Repository{},
		Languages:     map[string]int{},
		Followers:     []model.Follower{},
		Following:     []model.Follower{},
		Activity:      []model.ActivityEvent{},
		SectionErrors: map[string]string{},
	}
	var mu sync.Mutex
	sectionFailed := func(kind cache.Kind, err error) {
		mu.Lock()
		dash.SectionErrors[string(kind)] = err.Error()
		mu.Unlock()
		logger.Warn("Dashboard section degraded", "section", kind, "error", err)
	}

	var profileErr error

	// Section closures never return an error: one section failing must not
	// cancel its siblings. Failures land in the cache entry and SectionErrors.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		key := cache.Key{Kind: cache.KindProfile, Handle: sess.Handle}
		s.store.MarkLoading(key)
		profile, err := s.fetcher.GetProfile(gctx, sess.Token, sess.Handle)
		s.store.Resolve(key, profile, err)
		if err != nil {
			profileErr = err
			return nil
		}
		dash.Profile = profile
		return nil
	})

	g.Go(func() error {
		repos, dist, err := s.loadRepositories(gctx, sess)
		if err != nil {
			sectionFailed(cache.KindRepositories, err)
			return nil
		}
		mu.Lock()
		dash.Repositories = repos
		dash.Languages = dist
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		key := cache.Key{Kind: cache.KindFollowers, Handle: sess.Handle}
		s.store.MarkLoading(key)
		followers, err := s.fetcher.ListFollowers(gctx, sess.Token, sess.Handle)
		s.store.Resolve(key, followers, err)
		if err != nil {
			sectionFailed(cache.KindFollowers, err)
			return nil
		}
		mu.Lock()
		dash.Followers = followers
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		key := cache.Key{Kind: cache.KindFollowing, Handle: sess.Handle}
		s.store.MarkLoading(key)
		following, err := s.fetcher.ListFollowing(gctx, sess.Token, sess.Handle)
		s.store.Resolve(key, following, err)
		if err != nil {
			sectionFailed(cache.KindFollowing, err)
			return nil
		}
		mu.Lock()
		dash.Following = following
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		key := cache.Key{Kind: cache.KindActivity, Handle: sess.Handle}
		s.store.MarkLoading(key)
		events, err := s.fetcher.ListEvents(gctx, sess.Token, sess.Handle, s.activityLimit)
		s.store.Resolve(key, events, err)
		if err != nil {
			sectionFailed(cache.KindActivity, err)
			return nil
		}
		mu.Lock()
		dash.Activity = events
		mu.Unlock()
		return nil
	})

	_ = g.Wait()

	if profileErr != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", profileErr)
	}

	logger.Info("Dashboard aggregated", "repos", len(dash.Repositories), "degraded_sections", len(dash.SectionErrors))
	return dash, nil
}

// loadRepositories runs the dependent half of the pipeline: list, then the
// bounded enrichment fan-out, then the account-wide language reduce over the
// enriched histograms. Both cache keys resolve here and only here, which keeps
// the dependent sections from ever populating ahead of the repository list.
func (s *Service) loadRepositories(ctx context.Context, sess Session) ([]model.Repository, map[string]int, error) {
	repoKey := cache.Key{Kind: cache.KindRepositories, Handle: sess.Handle}
	langKey := cache.Key{Kind: cache.KindLanguages, Handle: sess.Handle}
	s.store.MarkLoading(repoKey)
	s.store.MarkLoading(langKey)

	repos, err := s.fetcher.ListRepositories(ctx, sess.Token, sess.Handle)
	if err != nil {
		s.store.Resolve(repoKey, nil, err)
		s.store.Resolve(langKey, nil, err)
		return nil, nil, err
	}

	enriched := s.enrichAll(ctx, sess.Token, repos)
	s.store.Resolve(repoKey, enriched, nil)

	dist := Distribution(enriched)
	s.store.Resolve(langKey, dist, nil)

	return enriched, dist, nil
}

// enrichAll fans the enricher out over the repository list with a bounded
// number of workers. BestEffort enrichment never returns an error, so every
// slot is filled even when individual repos degrade to sentinels.
func (s *Service) enrichAll(ctx context.Context, token string, repos []model.Repository) []model.Repository {
	enriched := make([]model.Repository, len(repos))

	g := errgroup.Group{}
	g.SetLimit(s.enrichLimit)
	for i, repo := range repos {
		g.Go(func() error {
			enriched[i], _ = s.enricher.Enrich(ctx, token, repo)
			return nil
		})
	}
	_ = g.Wait()

	return enriched
}

// RefreshRepositories invalidates and re-fetches the repository list and the
// language distribution derived from it. Sibling sections keep their cached
// state. Concurrent refreshes for one handle collapse into a single flight.
func (s *Service) RefreshRepositories(ctx context.Context, sess Session) error {
	if !sess.valid() {
		return &apperrors.ErrMissingCredentials{}
	}

	_, err, _ := s.sf.Do("repositories:"+sess.Handle, func() (any, error) {
		s.store.Invalidate(
			cache.Key{Kind: cache.KindRepositories, Handle: sess.Handle},
			cache.Key{Kind: cache.KindLanguages, Handle: sess.Handle},
		)
		_, _, err := s.loadRepositories(ctx, sess)
		return nil, err
	})
	return err
}

// Section returns the cached entry for one dashboard section, running the full
// pipeline first if the section has never resolved for this handle.
func (s *Service) Section(ctx context.Context, sess Session, kind cache.Kind) (cache.Entry, error) {
	if !sess.valid() {
		return cache.Entry{}, &apperrors.ErrMissingCredentials{}
	}

	key := cache.Key{Kind: kind, Handle: sess.Handle}
	if entry, ok := s.store.Get(key); ok {
		return entry, nil
	}
	if _, err := s.Load(ctx, sess); err != nil {
		return cache.Entry{}, err
	}
	entry, _ := s.store.Get(key)
	return entry, nil
}
