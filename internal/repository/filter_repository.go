package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"flickfinder-backend/internal/models"
)

// FilterRepository handles database operations for user filters.
type FilterRepository struct {
	db *sql.DB
}

// NewFilterRepository creates a new FilterRepository.
func NewFilterRepository(db *sql.DB) *FilterRepository {
	return &FilterRepository{db: db}
}

// Get returns the user's saved filters, or sql.ErrNoRows if none were saved.
func (r *FilterRepository) Get(userID int) (*models.UserFilter, error) {
	var f models.UserFilter
	var genreIDs pq.Int64Array
	err := r.db.QueryRow(`
		SELECT user_id, genre_ids, min_release_year, max_release_year, min_rating, updated_at
		FROM user_filters WHERE user_id = $1
	`, userID).Scan(
		&f.UserID, &genreIDs, &f.MinReleaseYear, &f.MaxReleaseYear, &f.MinRating, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.GenreIDs = make([]int, 0, len(genreIDs))
	for _, id := range genreIDs {
		f.GenreIDs = append(f.GenreIDs, int(id))
	}
	return &f, nil
}

// Upsert creates or replaces the user's filters.
func (r *FilterRepository) Upsert(userID int, req models.SaveFiltersRequest) (*models.UserFilter, error) {
	genreIDs := make(pq.Int64Array, 0, len(req.GenreIDs))
	for _, id := range req.GenreIDs {
		genreIDs = append(genreIDs, int64(id))
	}

	var f models.UserFilter
	var stored pq.Int64Array
	err := r.db.QueryRow(`
		INSERT INTO user_filters (user_id, genre_ids, min_release_year, max_release_year, min_rating, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			genre_ids = EXCLUDED.genre_ids,
			min_release_year = EXCLUDED.min_release_year,
			max_release_year = EXCLUDED.max_release_year,
			min_rating = EXCLUDED.min_rating,
			updated_at = NOW()
		RETURNING user_id, genre_ids, min_release_year, max_release_year, min_rating, updated_at
	`, userID, genreIDs, req.MinReleaseYear, req.MaxReleaseYear, req.MinRating).Scan(
		&f.UserID, &stored, &f.MinReleaseYear, &f.MaxReleaseYear, &f.MinRating, &f.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert filters: %w", err)
	}

	f.GenreIDs = make([]int, 0, len(stored))
	for _, id := range stored {
		f.GenreIDs = append(f.GenreIDs, int(id))
	}
	return &f, nil
}
