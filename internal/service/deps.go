package service

import (
	"context"
	"time"

	"flickfinder-backend/internal/models"
	"flickfinder-backend/internal/repository"
	"flickfinder-backend/internal/session"
	"flickfinder-backend/internal/tmdb"
)

// Catalog is the slice of the TMDB client the services depend on. Tests
// substitute a fake; production wiring passes *tmdb.Client.
type Catalog interface {
	Discover(ctx context.Context, filters *models.UserFilter, page int) ([]tmdb.MovieSummary, int, error)
	Popular(ctx context.Context, page int) ([]tmdb.MovieSummary, int, error)
	Search(ctx context.Context, query string, page int) ([]tmdb.MovieSummary, int, error)
	Details(ctx context.Context, tmdbID int) (*tmdb.MovieDetail, error)
	Genres(ctx context.Context) ([]models.Genre, error)
}

// MovieStore is the movie persistence surface used by the services.
type MovieStore interface {
	Upsert(m *models.Movie) (int, error)
	GetByTMDBID(tmdbID int) (*models.Movie, error)
	ReplaceGenres(movieID int, genres []models.Genre) error
}

// InteractionStore is the interaction persistence surface.
type InteractionStore interface {
	Upsert(userID, tmdbID int, kind string) (*models.Interaction, error)
	ReplaceWithSkip(userID, tmdbID int) (int, error)
	NonBlockExclusions(userID int) ([]int, error)
	ActiveBlocks(userID int, since time.Time) ([]int, error)
	Watchlist(userID int) ([]repository.WatchlistEntry, error)
	GenreCounts(userID int, kinds []string) ([]models.GenreCount, error)
}

// FilterStore is the user-filter persistence surface.
type FilterStore interface {
	Get(userID int) (*models.UserFilter, error)
	Upsert(userID int, req models.SaveFiltersRequest) (*models.UserFilter, error)
}

// SessionStore holds per-user recommendation caches.
type SessionStore interface {
	Cache(ctx context.Context, userID int) *session.RecommendationCache
	Save(ctx context.Context, userID int, cache *session.RecommendationCache)
	Clear(ctx context.Context, userID int)
}
