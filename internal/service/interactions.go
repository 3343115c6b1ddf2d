package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"flickfinder-backend/internal/models"
)

// Recorder persists user reactions to movies and maintains the invariants
// around them: closed kind set, one row per (user, movie, kind), and the
// composite watchlist-removal rule.
type Recorder struct {
	catalog      Catalog
	movies       MovieStore
	interactions InteractionStore
}

// NewRecorder creates a Recorder.
func NewRecorder(catalog Catalog, movies MovieStore, interactions InteractionStore) *Recorder {
	return &Recorder{
		catalog:      catalog,
		movies:       movies,
		interactions: interactions,
	}
}

// Record validates and upserts a (user, movie, kind) interaction, creating
// the local movie record from the catalog on first sight. Re-recording the
// same kind only refreshes its timestamp.
func (s *Recorder) Record(ctx context.Context, userID, tmdbID int, kind string) (*models.Interaction, error) {
	if !models.ValidInteractionKinds[kind] {
		return nil, NewValidationError("kind", fmt.Sprintf("unknown interaction kind %q", kind))
	}
	if tmdbID <= 0 {
		return nil, NewValidationError("movie_id", "must be a positive catalog ID")
	}

	if err := s.materialize(ctx, tmdbID); err != nil {
		return nil, err
	}

	inter, err := s.interactions.Upsert(userID, tmdbID, kind)
	if err != nil {
		slog.Error("failed to record interaction",
			"user_id", userID, "tmdb_id", tmdbID, "kind", kind, "error", err)
		return nil, err
	}
	return inter, nil
}

// RemoveFromWatchlist removes a movie from the user's positive lists and
// replaces them with a "skip" so it is permanently excluded from future
// recommendations. The removal and the skip commit together. Removing an
// entry that does not exist reports found = false but is not an error; the
// operation is idempotent.
func (s *Recorder) RemoveFromWatchlist(ctx context.Context, userID, tmdbID int) (found bool, err error) {
	deleted, err := s.interactions.ReplaceWithSkip(userID, tmdbID)
	if err != nil {
		slog.Error("failed to remove watchlist entry",
			"user_id", userID, "tmdb_id", tmdbID, "error", err)
		return false, err
	}
	return deleted > 0, nil
}

// Watchlist assembles the watchlist page payload: the user's watchlisted
// movies plus a genre-preference summary counted over their favorite and
// watchlist interactions.
func (s *Recorder) Watchlist(ctx context.Context, userID int) (*models.WatchlistResponse, error) {
	entries, err := s.interactions.Watchlist(userID)
	if err != nil {
		return nil, err
	}

	items := make([]models.WatchlistItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, models.WatchlistItem{
			Movie:   *detailResponse(&e.Movie),
			AddedAt: e.AddedAt,
		})
	}

	summary, err := s.interactions.GenreCounts(userID, []string{
		models.InteractionFavorite,
		models.InteractionWatchlist,
	})
	if err != nil {
		return nil, err
	}

	return &models.WatchlistResponse{Items: items, GenreSummary: summary}, nil
}

// materialize ensures a local movie record exists for the catalog ID,
// fetching full details on first sight.
func (s *Recorder) materialize(ctx context.Context, tmdbID int) error {
	_, err := s.movies.GetByTMDBID(tmdbID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	detail, err := s.catalog.Details(ctx, tmdbID)
	if err != nil {
		return err
	}
	if detail == nil {
		return fmt.Errorf("movie %d: %w", tmdbID, ErrNotFound)
	}

	if _, err := s.movies.Upsert(movieFromDetail(detail)); err != nil {
		return err
	}
	return nil
}
