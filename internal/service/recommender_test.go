package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"flickfinder-backend/internal/models"
	"flickfinder-backend/internal/session"
	"flickfinder-backend/internal/tmdb"
)

type recommenderFixture struct {
	catalog      *fakeCatalog
	movies       *fakeMovieStore
	interactions *fakeInteractionStore
	filters      *fakeFilterStore
	sessions     *fakeSessionStore
	rec          *Recommender
}

func newRecommenderFixture() *recommenderFixture {
	catalog := newFakeCatalog()
	movies := newFakeMovieStore()
	interactions := newFakeInteractionStore(movies)
	filters := newFakeFilterStore()
	sessions := newFakeSessionStore()

	rec := NewRecommender(catalog, movies, filters, sessions, NewExclusionCalculator(interactions))
	rec.rng = rand.New(rand.NewSource(1))

	return &recommenderFixture{
		catalog:      catalog,
		movies:       movies,
		interactions: interactions,
		filters:      filters,
		sessions:     sessions,
		rec:          rec,
	}
}

func intPtr(v int) *int { return &v }

func TestNextMovieDrainsCache(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	ids := []int{101, 102, 103, 104}
	for _, id := range ids {
		fx.catalog.addMovie(id, fmt.Sprintf("Movie %d", id))
	}
	fx.sessions.Save(ctx, 1, &session.RecommendationCache{IDs: ids, Source: session.SourcePopular})

	seen := map[int]bool{}
	for i := 0; i < len(ids); i++ {
		detail, err := fx.rec.NextMovie(ctx, 1)
		if err != nil {
			t.Fatalf("NextMovie() error = %v", err)
		}
		if detail == nil {
			t.Fatalf("NextMovie() call %d returned no movie", i+1)
		}
		if seen[detail.TMDBId] {
			t.Errorf("movie %d served twice", detail.TMDBId)
		}
		seen[detail.TMDBId] = true
	}

	if len(seen) != len(ids) {
		t.Errorf("served %d distinct movies, want %d", len(seen), len(ids))
	}
	if got := fx.sessions.Cache(ctx, 1).Len(); got != 0 {
		t.Errorf("cache holds %d IDs after draining, want 0", got)
	}
}

func TestNextMoviePopularModeSamplesFivePages(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	// Every popularity page yields the same two movies.
	for page := 1; page <= tmdb.MaxPage; page++ {
		fx.catalog.popularPages[page] = []tmdb.MovieSummary{
			{ID: 10, Title: "Ten"},
			{ID: 11, Title: "Eleven"},
		}
	}
	fx.catalog.addMovie(10, "Ten")
	fx.catalog.addMovie(11, "Eleven")

	detail, err := fx.rec.NextMovie(ctx, 1)
	if err != nil {
		t.Fatalf("NextMovie() error = %v", err)
	}
	if detail == nil {
		t.Fatal("NextMovie() returned no movie")
	}

	if len(fx.catalog.popularCalls) != 5 {
		t.Errorf("fetched %d popularity pages, want 5", len(fx.catalog.popularCalls))
	}
	distinct := map[int]bool{}
	for _, page := range fx.catalog.popularCalls {
		if page < 1 || page > tmdb.MaxPage {
			t.Errorf("sampled page %d outside [1, %d]", page, tmdb.MaxPage)
		}
		distinct[page] = true
	}
	if len(distinct) != 5 {
		t.Errorf("sampled %d distinct pages, want 5", len(distinct))
	}
	if len(fx.catalog.discoverCalls) != 0 {
		t.Errorf("discover called %d times in popular mode, want 0", len(fx.catalog.discoverCalls))
	}
}

func TestNextMovieFilteredModeZeroPages(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	fx.filters.Upsert(1, models.SaveFiltersRequest{GenreIDs: []int{28}})
	fx.catalog.totalPages = 0

	detail, err := fx.rec.NextMovie(ctx, 1)
	if err != nil {
		t.Fatalf("NextMovie() error = %v", err)
	}
	if detail != nil {
		t.Errorf("NextMovie() = %+v, want nil for empty filter result", detail)
	}

	// Only the page-1 probe; no further pages attempted.
	if len(fx.catalog.discoverCalls) != 1 || fx.catalog.discoverCalls[0] != 1 {
		t.Errorf("discover calls = %v, want just the page-1 probe", fx.catalog.discoverCalls)
	}
	if got := fx.sessions.Cache(ctx, 1).Len(); got != 0 {
		t.Errorf("cache holds %d IDs, want 0", got)
	}
}

func TestNextMovieFilteredModeSamplesWithinRange(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	fx.filters.Upsert(1, models.SaveFiltersRequest{GenreIDs: []int{28}})
	fx.catalog.totalPages = 3
	for page := 1; page <= 3; page++ {
		fx.catalog.discoverPages[page] = []tmdb.MovieSummary{{ID: 200 + page}}
	}
	for page := 1; page <= 3; page++ {
		fx.catalog.addMovie(200+page, fmt.Sprintf("Movie %d", 200+page))
	}

	detail, err := fx.rec.NextMovie(ctx, 1)
	if err != nil {
		t.Fatalf("NextMovie() error = %v", err)
	}
	if detail == nil {
		t.Fatal("NextMovie() returned no movie")
	}

	// Probe plus min(5, 3) sampled pages, all distinct and within range.
	sampled := fx.catalog.discoverCalls[1:]
	if len(sampled) != 3 {
		t.Fatalf("sampled %d pages, want 3", len(sampled))
	}
	distinct := map[int]bool{}
	for _, page := range sampled {
		if page < 1 || page > 3 {
			t.Errorf("sampled page %d outside [1, 3]", page)
		}
		distinct[page] = true
	}
	if len(distinct) != 3 {
		t.Errorf("pages sampled with replacement: %v", sampled)
	}
}

func TestNextMovieSkipsFailedDetailWithoutRequeue(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	fx.catalog.detailErrs[101] = fmt.Errorf("%w: upstream status 503", tmdb.ErrService)
	fx.catalog.addMovie(102, "Survivor")
	fx.sessions.Save(ctx, 1, &session.RecommendationCache{IDs: []int{101, 102}, Source: session.SourcePopular})

	detail, err := fx.rec.NextMovie(ctx, 1)
	if err != nil {
		t.Fatalf("NextMovie() error = %v", err)
	}
	if detail == nil || detail.TMDBId != 102 {
		t.Fatalf("NextMovie() = %+v, want movie 102", detail)
	}

	if got := fx.sessions.Cache(ctx, 1).Len(); got != 0 {
		t.Errorf("cache holds %d IDs, want 0 (failed ID must not be re-queued)", got)
	}
}

func TestNextMovieDiscardsUnresolvableCandidate(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	// 101 is gone from the catalog entirely (detail resolves to nil).
	fx.catalog.addMovie(102, "Still here")
	fx.sessions.Save(ctx, 1, &session.RecommendationCache{IDs: []int{101, 102}, Source: session.SourceFiltered})

	detail, err := fx.rec.NextMovie(ctx, 1)
	if err != nil {
		t.Fatalf("NextMovie() error = %v", err)
	}
	if detail == nil || detail.TMDBId != 102 {
		t.Fatalf("NextMovie() = %+v, want movie 102", detail)
	}
}

func TestNextMovieExcludesPriorInteractions(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	for page := 1; page <= tmdb.MaxPage; page++ {
		fx.catalog.popularPages[page] = []tmdb.MovieSummary{{ID: 10}, {ID: 11}}
	}
	fx.catalog.addMovie(10, "Ten")
	fx.catalog.addMovie(11, "Eleven")
	fx.interactions.insertAt(1, 10, models.InteractionSkip, time.Now())

	detail, err := fx.rec.NextMovie(ctx, 1)
	if err != nil {
		t.Fatalf("NextMovie() error = %v", err)
	}
	if detail == nil {
		t.Fatal("NextMovie() returned no movie")
	}
	if detail.TMDBId != 11 {
		t.Errorf("served movie %d, want 11 (10 is excluded)", detail.TMDBId)
	}
}

func TestNextMovieAllCandidatesExcluded(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	for page := 1; page <= tmdb.MaxPage; page++ {
		fx.catalog.popularPages[page] = []tmdb.MovieSummary{{ID: 10}}
	}
	fx.interactions.insertAt(1, 10, models.InteractionSkip, time.Now())

	detail, err := fx.rec.NextMovie(ctx, 1)
	if err != nil {
		t.Fatalf("NextMovie() error = %v", err)
	}
	if detail != nil {
		t.Errorf("NextMovie() = %+v, want nil when every candidate is excluded", detail)
	}
	if got := fx.sessions.Cache(ctx, 1).Len(); got != 0 {
		t.Errorf("cache holds %d IDs, want 0", got)
	}
}

func TestNextMovieHeadFailureKeepsRemainder(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	for page := 1; page <= tmdb.MaxPage; page++ {
		fx.catalog.popularPages[page] = []tmdb.MovieSummary{{ID: 10}, {ID: 11}, {ID: 12}}
	}
	for _, id := range []int{10, 11, 12} {
		fx.catalog.detailErrs[id] = fmt.Errorf("%w: timeout", tmdb.ErrService)
	}

	// Fresh batch of three; the head's detail fetch fails, serving nothing,
	// but the remaining two stay queued for the next call.
	detail, err := fx.rec.NextMovie(ctx, 1)
	if err != nil {
		t.Fatalf("NextMovie() error = %v", err)
	}
	if detail != nil {
		t.Fatalf("NextMovie() = %+v, want nil when the fresh head fails", detail)
	}
	if got := fx.sessions.Cache(ctx, 1).Len(); got != 2 {
		t.Fatalf("cache holds %d IDs after failed head, want 2", got)
	}

	// The catalog recovers; the remainder is servable.
	fx.catalog.detailErrs = map[int]error{}
	for _, id := range []int{10, 11, 12} {
		fx.catalog.addMovie(id, fmt.Sprintf("Movie %d", id))
	}
	detail, err = fx.rec.NextMovie(ctx, 1)
	if err != nil {
		t.Fatalf("NextMovie() error = %v", err)
	}
	if detail == nil {
		t.Fatal("NextMovie() returned no movie from the surviving remainder")
	}
	if got := fx.sessions.Cache(ctx, 1).Len(); got != 1 {
		t.Errorf("cache holds %d IDs, want 1", got)
	}
}

func TestSaveFiltersRejectsInvertedYears(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	fx.sessions.Save(ctx, 1, &session.RecommendationCache{IDs: []int{5}, Source: session.SourcePopular})

	_, _, err := fx.rec.SaveFilters(ctx, 1, models.SaveFiltersRequest{
		MinReleaseYear: intPtr(2010),
		MaxReleaseYear: intPtr(2000),
	})

	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("SaveFilters() error = %v, want ValidationError", err)
	}
	if _, ok := ve.Fields["min_release_year"]; !ok {
		t.Errorf("validation fields = %v, want min_release_year flagged", ve.Fields)
	}

	if _, err := fx.filters.Get(1); err == nil {
		t.Error("filters were persisted despite validation failure")
	}
	if fx.sessions.clears != 0 {
		t.Error("session cache cleared despite validation failure")
	}
	if got := fx.sessions.Cache(ctx, 1).Len(); got != 1 {
		t.Errorf("cache holds %d IDs, want 1 (unchanged)", got)
	}
}

func TestSaveFiltersInvalidatesCacheAndServes(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	fx.sessions.Save(ctx, 1, &session.RecommendationCache{IDs: []int{999}, Source: session.SourcePopular})

	fx.catalog.totalPages = 2
	fx.catalog.discoverPages[1] = []tmdb.MovieSummary{{ID: 301}}
	fx.catalog.discoverPages[2] = []tmdb.MovieSummary{{ID: 302}}
	fx.catalog.addMovie(301, "A")
	fx.catalog.addMovie(302, "B")

	filters, next, err := fx.rec.SaveFilters(ctx, 1, models.SaveFiltersRequest{
		GenreIDs:       []int{28},
		MinReleaseYear: intPtr(2000),
		MaxReleaseYear: intPtr(2020),
	})
	if err != nil {
		t.Fatalf("SaveFilters() error = %v", err)
	}
	if filters == nil || len(filters.GenreIDs) != 1 {
		t.Fatalf("saved filters = %+v, want genre list preserved", filters)
	}
	if fx.sessions.clears == 0 {
		t.Error("session cache was not invalidated on filter save")
	}
	if next == nil {
		t.Fatal("SaveFilters() returned no next movie")
	}
	if next.TMDBId != 301 && next.TMDBId != 302 {
		t.Errorf("next movie %d not from the filtered batch", next.TMDBId)
	}

	cache := fx.sessions.Cache(ctx, 1)
	if cache.Source != session.SourceFiltered {
		t.Errorf("cache source = %q, want %q", cache.Source, session.SourceFiltered)
	}
}

func TestNextMovieConcurrentUsers(t *testing.T) {
	fx := newRecommenderFixture()
	ctx := context.Background()

	for page := 1; page <= tmdb.MaxPage; page++ {
		fx.catalog.popularPages[page] = []tmdb.MovieSummary{{ID: 10}, {ID: 11}, {ID: 12}}
	}
	for _, id := range []int{10, 11, 12} {
		fx.catalog.addMovie(id, fmt.Sprintf("Movie %d", id))
	}

	// Several users refilling and draining at once share the recommender's
	// generator; run under -race this pins the serving path as race-free.
	var wg sync.WaitGroup
	errs := make(chan error, 4*20)
	for user := 1; user <= 4; user++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := fx.rec.NextMovie(ctx, userID); err != nil {
					errs <- err
					return
				}
			}
		}(user)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("NextMovie() error = %v", err)
	}
}

func TestGetFiltersDefaultsWhenUnsaved(t *testing.T) {
	fx := newRecommenderFixture()

	filters, err := fx.rec.GetFilters(1)
	if err != nil {
		t.Fatalf("GetFilters() error = %v", err)
	}
	if !filters.IsEmpty() {
		t.Errorf("GetFilters() = %+v, want empty filter set", filters)
	}
}
