package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"flickfinder-backend/internal/models"
)

const genreListCacheTTL = 24 * time.Hour

// Movies serves the movie detail page, title search and the genre list for
// the filter form.
type Movies struct {
	catalog Catalog
	repo    MovieStore
	redis   *redis.Client
}

// NewMovies creates a Movies service.
func NewMovies(catalog Catalog, repo MovieStore, rdb *redis.Client) *Movies {
	return &Movies{catalog: catalog, repo: repo, redis: rdb}
}

// GetMovie returns a movie's details by catalog ID, preferring the local
// record and falling back to the catalog. A stored movie that lacks genre
// data gets a best-effort detail backfill; backfill failures are logged and
// swallowed.
func (s *Movies) GetMovie(ctx context.Context, tmdbID int) (*models.MovieDetail, error) {
	movie, err := s.repo.GetByTMDBID(tmdbID)
	if err == nil {
		if !movie.HasGenres() {
			s.backfillGenres(ctx, movie)
		}
		return detailResponse(movie), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	detail, err := s.catalog.Details(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, fmt.Errorf("movie %d: %w", tmdbID, ErrNotFound)
	}

	if _, err := s.repo.Upsert(movieFromDetail(detail)); err != nil {
		slog.Error("failed to store fetched movie", "tmdb_id", tmdbID, "error", err)
	}
	return detailResponseFromTMDB(detail), nil
}

// backfillGenres enriches a stored movie whose genre data is missing.
func (s *Movies) backfillGenres(ctx context.Context, movie *models.Movie) {
	detail, err := s.catalog.Details(ctx, movie.TMDBId)
	if err != nil || detail == nil || len(detail.Genres) == 0 {
		slog.Warn("genre backfill skipped", "tmdb_id", movie.TMDBId, "error", err)
		return
	}
	if err := s.repo.ReplaceGenres(movie.ID, detail.Genres); err != nil {
		slog.Warn("genre backfill write failed", "tmdb_id", movie.TMDBId, "error", err)
		return
	}
	movie.Genres = detail.Genres
}

// SearchResult is one page of title search results.
type SearchResult struct {
	Query      string               `json:"query"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"total_pages"`
	Results    []models.MovieDetail `json:"results"`
}

// Search proxies a title search to the catalog.
func (s *Movies) Search(ctx context.Context, query string, page int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewValidationError("query", "must not be empty")
	}
	if page < 1 {
		page = 1
	}

	summaries, totalPages, err := s.catalog.Search(ctx, query, page)
	if err != nil {
		return nil, err
	}

	results := make([]models.MovieDetail, 0, len(summaries))
	for _, m := range summaries {
		results = append(results, models.MovieDetail{
			TMDBId:      m.ID,
			Title:       m.Title,
			Overview:    m.Overview,
			ReleaseDate: m.ReleaseDate,
			VoteAverage: m.VoteAverage,
			VoteCount:   m.VoteCount,
			Genres:      []models.Genre{},
			PosterURL:   posterURL(m.PosterPath),
		})
	}

	return &SearchResult{
		Query:      query,
		Page:       page,
		TotalPages: totalPages,
		Results:    results,
	}, nil
}

// Genres returns the catalog genre list, cached in Redis for the filter
// form.
func (s *Movies) Genres(ctx context.Context) ([]models.Genre, error) {
	const cacheKey = "genres:list"

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var genres []models.Genre
			if json.Unmarshal([]byte(cached), &genres) == nil {
				slog.Debug("genre list cache hit")
				return genres, nil
			}
		}
	}

	genres, err := s.catalog.Genres(ctx)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(genres); err == nil {
			if err := s.redis.Set(ctx, cacheKey, data, genreListCacheTTL).Err(); err != nil {
				slog.Error("failed to cache genre list", "error", err)
			}
		}
	}

	return genres, nil
}
