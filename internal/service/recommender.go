package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"flickfinder-backend/internal/models"
	"flickfinder-backend/internal/session"
	"flickfinder-backend/internal/tmdb"
)

// batchPages is how many catalog pages a single refill samples. Random page
// sampling trades exhaustive pagination for variety: one refill costs at
// most batchPages list calls plus one detail call per served movie.
const batchPages = 5

// Recommender owns the per-user recommendation cache and its batched,
// randomized, filter-aware refill strategy.
type Recommender struct {
	catalog    Catalog
	movies     MovieStore
	filters    FilterStore
	sessions   SessionStore
	exclusions *ExclusionCalculator

	// rand.Rand is not safe for concurrent use and requests from different
	// users refill concurrently, so every rng access holds rngMu.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRecommender creates a Recommender.
func NewRecommender(
	catalog Catalog,
	movies MovieStore,
	filters FilterStore,
	sessions SessionStore,
	exclusions *ExclusionCalculator,
) *Recommender {
	return &Recommender{
		catalog:    catalog,
		movies:     movies,
		filters:    filters,
		sessions:   sessions,
		exclusions: exclusions,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextMovie returns the next recommendation for the user, or nil when no
// candidate could be found. The nil case is a normal outcome (exhausted
// filters, catalog unreachable), never an error: the caller shows "no more
// movies" and moves on.
func (s *Recommender) NextMovie(ctx context.Context, userID int) (*models.MovieDetail, error) {
	cache := s.sessions.Cache(ctx, userID)

	if !cache.Empty() {
		if detail := s.serveQueued(ctx, userID, cache); detail != nil {
			return detail, nil
		}
		// Queue drained without a servable movie; fall through to refill.
	}

	cache = s.refill(ctx, userID)
	if cache.Empty() {
		return nil, nil
	}

	// Serve the head of the fresh batch. A failed head is discarded, not
	// retried; the remainder stays queued for the next call.
	id, _ := cache.Pop()
	detail := s.serveOne(ctx, id)
	s.sessions.Save(ctx, userID, cache)
	return detail, nil
}

// serveQueued pops the queue until a candidate resolves. Failed IDs are
// discarded and never re-queued. On success the remainder of the queue is
// written back; on exhaustion the now-empty cache is written back.
func (s *Recommender) serveQueued(ctx context.Context, userID int, cache *session.RecommendationCache) *models.MovieDetail {
	for {
		id, ok := cache.Pop()
		if !ok {
			s.sessions.Save(ctx, userID, cache)
			return nil
		}
		if detail := s.serveOne(ctx, id); detail != nil {
			s.sessions.Save(ctx, userID, cache)
			return detail
		}
	}
}

// serveOne fetches full details for one candidate and materializes the
// movie record. A candidate the catalog cannot resolve is dropped.
func (s *Recommender) serveOne(ctx context.Context, tmdbID int) *models.MovieDetail {
	detail, err := s.catalog.Details(ctx, tmdbID)
	if err != nil {
		slog.Warn("skipping candidate, detail fetch failed", "tmdb_id", tmdbID, "error", err)
		return nil
	}
	if detail == nil {
		slog.Warn("skipping candidate, no longer in catalog", "tmdb_id", tmdbID)
		return nil
	}

	if _, err := s.movies.Upsert(movieFromDetail(detail)); err != nil {
		slog.Error("failed to materialize movie record", "tmdb_id", tmdbID, "error", err)
	}
	return detailResponseFromTMDB(detail)
}

// refill rebuilds the user's cache with a randomized multi-page batch fetch,
// minus everything the user must not see again. A fruitless fetch leaves
// the cache invalidated, which reads back as empty.
func (s *Recommender) refill(ctx context.Context, userID int) *session.RecommendationCache {
	excluded := s.exclusions.ExcludedIDs(ctx, userID)
	filters := s.loadFilters(userID)

	var (
		ids    []int
		source session.Source
	)
	if filters.IsEmpty() {
		ids = s.fetchPopularBatch(ctx)
		source = session.SourcePopular
	} else {
		ids = s.fetchFilteredBatch(ctx, filters)
		source = session.SourceFiltered
	}

	kept := ids[:0]
	for _, id := range ids {
		if _, skip := excluded[id]; !skip {
			kept = append(kept, id)
		}
	}

	if len(kept) == 0 {
		cache := &session.RecommendationCache{IDs: []int{}, Source: source}
		s.sessions.Clear(ctx, userID)
		slog.Info("no candidates after batch fetch", "user_id", userID, "source", source)
		return cache
	}

	s.rngMu.Lock()
	s.rng.Shuffle(len(kept), func(i, j int) {
		kept[i], kept[j] = kept[j], kept[i]
	})
	s.rngMu.Unlock()

	cache := &session.RecommendationCache{IDs: kept, Source: source}
	s.sessions.Save(ctx, userID, cache)
	slog.Info("recommendation cache refilled",
		"user_id", userID, "source", source, "candidates", len(kept))
	return cache
}

// fetchFilteredBatch probes page 1 to learn the page range for the filter
// combination, then samples random pages from it. Zero total pages means
// the filters match nothing and the batch is empty.
func (s *Recommender) fetchFilteredBatch(ctx context.Context, filters *models.UserFilter) []int {
	_, totalPages, err := s.catalog.Discover(ctx, filters, 1)
	if err != nil {
		slog.Warn("filtered batch probe failed", "error", err)
		return nil
	}
	if totalPages == 0 {
		return nil
	}

	n := batchPages
	if totalPages < n {
		n = totalPages
	}
	pages := s.samplePages(n, totalPages)

	return s.fanOut(ctx, pages, func(ctx context.Context, page int) ([]tmdb.MovieSummary, error) {
		results, _, err := s.catalog.Discover(ctx, filters, page)
		return results, err
	})
}

// fetchPopularBatch samples random pages of the popularity listing.
func (s *Recommender) fetchPopularBatch(ctx context.Context) []int {
	pages := s.samplePages(batchPages, tmdb.MaxPage)
	return s.fanOut(ctx, pages, func(ctx context.Context, page int) ([]tmdb.MovieSummary, error) {
		results, _, err := s.catalog.Popular(ctx, page)
		return results, err
	})
}

// fanOut fetches the sampled pages concurrently and merges the results
// keyed by catalog ID, so the outcome is deterministic regardless of
// completion order. A failed page is logged and skipped, never aborting
// the batch; a total failure simply yields an empty batch.
func (s *Recommender) fanOut(
	ctx context.Context,
	pages []int,
	fetch func(ctx context.Context, page int) ([]tmdb.MovieSummary, error),
) []int {
	var mu sync.Mutex
	seen := make(map[int]struct{})

	g, ctx := errgroup.WithContext(ctx)
	for _, page := range pages {
		g.Go(func() error {
			results, err := fetch(ctx, page)
			if err != nil {
				slog.Warn("batch page fetch failed", "page", page, "error", err)
				return nil
			}
			mu.Lock()
			for _, r := range results {
				seen[r.ID] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// samplePages picks n distinct page numbers from [1, total] without
// replacement.
func (s *Recommender) samplePages(n, total int) []int {
	if n > total {
		n = total
	}
	s.rngMu.Lock()
	perm := s.rng.Perm(total)[:n]
	s.rngMu.Unlock()
	pages := make([]int, n)
	for i, p := range perm {
		pages[i] = p + 1
	}
	return pages
}

func (s *Recommender) loadFilters(userID int) *models.UserFilter {
	filters, err := s.filters.Get(userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("could not load user filters, using none", "user_id", userID, "error", err)
		}
		return nil
	}
	return filters
}

// SaveFilters validates and persists the user's filter preferences,
// invalidates the recommendation cache and serves the first movie matching
// the new filters.
func (s *Recommender) SaveFilters(ctx context.Context, userID int, req models.SaveFiltersRequest) (*models.UserFilter, *models.MovieDetail, error) {
	if problems := req.Validate(); len(problems) > 0 {
		return nil, nil, &ValidationError{Fields: problems}
	}

	filters, err := s.filters.Upsert(userID, req)
	if err != nil {
		return nil, nil, err
	}

	s.sessions.Clear(ctx, userID)

	next, err := s.NextMovie(ctx, userID)
	if err != nil {
		return filters, nil, nil
	}
	return filters, next, nil
}

// GetFilters returns the user's saved filters, or an empty filter set when
// none were saved yet.
func (s *Recommender) GetFilters(userID int) (*models.UserFilter, error) {
	filters, err := s.filters.Get(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.UserFilter{UserID: userID, GenreIDs: []int{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return filters, nil
}
