package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"flickfinder-backend/internal/models"
	"flickfinder-backend/internal/repository"
	"flickfinder-backend/internal/session"
	"flickfinder-backend/internal/tmdb"
)

// fakeCatalog is an in-memory Catalog. Page maps drive list endpoints;
// details are looked up per ID with optional injected errors.
type fakeCatalog struct {
	mu sync.Mutex

	popularPages  map[int][]tmdb.MovieSummary
	discoverPages map[int][]tmdb.MovieSummary
	totalPages    int

	details    map[int]*tmdb.MovieDetail
	detailErrs map[int]error

	genres []models.Genre

	searchResults map[string][]tmdb.MovieSummary
	searchTotal   int

	popularCalls  []int
	discoverCalls []int
	detailCalls   []int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		popularPages:  map[int][]tmdb.MovieSummary{},
		discoverPages: map[int][]tmdb.MovieSummary{},
		details:       map[int]*tmdb.MovieDetail{},
		detailErrs:    map[int]error{},
		searchResults: map[string][]tmdb.MovieSummary{},
	}
}

func (f *fakeCatalog) addMovie(id int, title string, genres ...models.Genre) {
	f.details[id] = &tmdb.MovieDetail{
		ID:     id,
		Title:  title,
		Genres: genres,
	}
}

func (f *fakeCatalog) Discover(ctx context.Context, filters *models.UserFilter, page int) ([]tmdb.MovieSummary, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discoverCalls = append(f.discoverCalls, page)
	return f.discoverPages[page], f.totalPages, nil
}

func (f *fakeCatalog) Popular(ctx context.Context, page int) ([]tmdb.MovieSummary, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.popularCalls = append(f.popularCalls, page)
	return f.popularPages[page], tmdb.MaxPage, nil
}

func (f *fakeCatalog) Search(ctx context.Context, query string, page int) ([]tmdb.MovieSummary, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchResults[query], f.searchTotal, nil
}

func (f *fakeCatalog) Details(ctx context.Context, tmdbID int) (*tmdb.MovieDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls = append(f.detailCalls, tmdbID)
	if err, ok := f.detailErrs[tmdbID]; ok {
		return nil, err
	}
	return f.details[tmdbID], nil
}

func (f *fakeCatalog) Genres(ctx context.Context) ([]models.Genre, error) {
	return f.genres, nil
}

// fakeMovieStore keeps movies keyed by TMDB ID.
type fakeMovieStore struct {
	mu     sync.Mutex
	nextID int
	movies map[int]*models.Movie
}

func newFakeMovieStore() *fakeMovieStore {
	return &fakeMovieStore{movies: map[int]*models.Movie{}}
}

func (f *fakeMovieStore) Upsert(m *models.Movie) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.movies[m.TMDBId]; ok {
		m.ID = existing.ID
		if len(m.Genres) == 0 {
			m.Genres = existing.Genres
		}
	} else {
		f.nextID++
		m.ID = f.nextID
	}
	cp := *m
	f.movies[m.TMDBId] = &cp
	return m.ID, nil
}

func (f *fakeMovieStore) GetByTMDBID(tmdbID int) (*models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[tmdbID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMovieStore) ReplaceGenres(movieID int, genres []models.Genre) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.movies {
		if m.ID == movieID {
			m.Genres = genres
			return nil
		}
	}
	return sql.ErrNoRows
}

// fakeInteractionStore mirrors the real repository's upsert semantics: one
// row per (user, movie, kind), timestamp refreshed on conflict.
type fakeInteractionStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[string]*models.Interaction
	movies *fakeMovieStore

	failReads   bool
	failReplace bool
	now         func() time.Time
}

func newFakeInteractionStore(movies *fakeMovieStore) *fakeInteractionStore {
	return &fakeInteractionStore{
		rows:   map[string]*models.Interaction{},
		movies: movies,
		now:    time.Now,
	}
}

func interKey(userID, tmdbID int, kind string) string {
	return fmt.Sprintf("%d/%d/%s", userID, tmdbID, kind)
}

func (f *fakeInteractionStore) Upsert(userID, tmdbID int, kind string) (*models.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := interKey(userID, tmdbID, kind)
	if row, ok := f.rows[key]; ok {
		row.CreatedAt = f.now()
		cp := *row
		return &cp, nil
	}
	f.nextID++
	row := &models.Interaction{
		ID:        f.nextID,
		UserID:    userID,
		TMDBId:    tmdbID,
		Kind:      kind,
		CreatedAt: f.now(),
	}
	f.rows[key] = row
	cp := *row
	return &cp, nil
}

// insertAt backdates an interaction, for block-expiry tests.
func (f *fakeInteractionStore) insertAt(userID, tmdbID int, kind string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.rows[interKey(userID, tmdbID, kind)] = &models.Interaction{
		ID:        f.nextID,
		UserID:    userID,
		TMDBId:    tmdbID,
		Kind:      kind,
		CreatedAt: at,
	}
}

func (f *fakeInteractionStore) rowsFor(userID int) []*models.Interaction {
	var out []*models.Interaction
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out
}

// ReplaceWithSkip mirrors the real repository's transaction: on failure
// nothing is deleted and no skip lands.
func (f *fakeInteractionStore) ReplaceWithSkip(userID, tmdbID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReplace {
		return 0, fmt.Errorf("storage down")
	}
	deleted := 0
	for _, kind := range []string{models.InteractionWatchlist, models.InteractionFavorite} {
		key := interKey(userID, tmdbID, kind)
		if _, ok := f.rows[key]; ok {
			delete(f.rows, key)
			deleted++
		}
	}
	skipKey := interKey(userID, tmdbID, models.InteractionSkip)
	if row, ok := f.rows[skipKey]; ok {
		row.CreatedAt = f.now()
	} else {
		f.nextID++
		f.rows[skipKey] = &models.Interaction{
			ID:        f.nextID,
			UserID:    userID,
			TMDBId:    tmdbID,
			Kind:      models.InteractionSkip,
			CreatedAt: f.now(),
		}
	}
	return deleted, nil
}

func (f *fakeInteractionStore) NonBlockExclusions(userID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, fmt.Errorf("storage down")
	}
	seen := map[int]struct{}{}
	for _, row := range f.rowsFor(userID) {
		if row.Kind != models.InteractionBlock {
			seen[row.TMDBId] = struct{}{}
		}
	}
	var ids []int
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeInteractionStore) ActiveBlocks(userID int, since time.Time) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, fmt.Errorf("storage down")
	}
	var ids []int
	for _, row := range f.rowsFor(userID) {
		if row.Kind == models.InteractionBlock && row.CreatedAt.After(since) {
			ids = append(ids, row.TMDBId)
		}
	}
	return ids, nil
}

func (f *fakeInteractionStore) Watchlist(userID int) ([]repository.WatchlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []repository.WatchlistEntry
	for _, row := range f.rowsFor(userID) {
		if row.Kind != models.InteractionWatchlist {
			continue
		}
		if m, ok := f.movies.movies[row.TMDBId]; ok {
			entries = append(entries, repository.WatchlistEntry{Movie: *m, AddedAt: row.CreatedAt})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AddedAt.After(entries[j].AddedAt)
	})
	return entries, nil
}

func (f *fakeInteractionStore) GenreCounts(userID int, kinds []string) ([]models.GenreCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[string]bool{}
	for _, k := range kinds {
		wanted[k] = true
	}
	counts := map[string]map[int]struct{}{}
	for _, row := range f.rowsFor(userID) {
		if !wanted[row.Kind] {
			continue
		}
		m, ok := f.movies.movies[row.TMDBId]
		if !ok {
			continue
		}
		for _, g := range m.Genres {
			if counts[g.Name] == nil {
				counts[g.Name] = map[int]struct{}{}
			}
			counts[g.Name][row.TMDBId] = struct{}{}
		}
	}
	out := make([]models.GenreCount, 0, len(counts))
	for name, ids := range counts {
		out = append(out, models.GenreCount{Name: name, Count: len(ids)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// fakeFilterStore keeps one filter row per user.
type fakeFilterStore struct {
	mu      sync.Mutex
	filters map[int]*models.UserFilter
}

func newFakeFilterStore() *fakeFilterStore {
	return &fakeFilterStore{filters: map[int]*models.UserFilter{}}
}

func (f *fakeFilterStore) Get(userID int) (*models.UserFilter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	filter, ok := f.filters[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *filter
	return &cp, nil
}

func (f *fakeFilterStore) Upsert(userID int, req models.SaveFiltersRequest) (*models.UserFilter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	filter := &models.UserFilter{
		UserID:         userID,
		GenreIDs:       append([]int{}, req.GenreIDs...),
		MinReleaseYear: req.MinReleaseYear,
		MaxReleaseYear: req.MaxReleaseYear,
		MinRating:      req.MinRating,
		UpdatedAt:      time.Now(),
	}
	f.filters[userID] = filter
	cp := *filter
	return &cp, nil
}

// fakeSessionStore round-trips caches through copies, mimicking the
// serialization boundary of the Redis store.
type fakeSessionStore struct {
	mu     sync.Mutex
	caches map[int]*session.RecommendationCache
	clears int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{caches: map[int]*session.RecommendationCache{}}
}

func (f *fakeSessionStore) Cache(ctx context.Context, userID int) *session.RecommendationCache {
	f.mu.Lock()
	defer f.mu.Unlock()
	cache, ok := f.caches[userID]
	if !ok {
		return &session.RecommendationCache{IDs: []int{}, Source: session.SourceUnknown}
	}
	return &session.RecommendationCache{
		IDs:    append([]int{}, cache.IDs...),
		Source: cache.Source,
	}
}

func (f *fakeSessionStore) Save(ctx context.Context, userID int, cache *session.RecommendationCache) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caches[userID] = &session.RecommendationCache{
		IDs:    append([]int{}, cache.IDs...),
		Source: cache.Source,
	}
}

func (f *fakeSessionStore) Clear(ctx context.Context, userID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.caches, userID)
	f.clears++
}
