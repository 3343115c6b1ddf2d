package repository

import (
	"database/sql"
	"fmt"
	"time"

	"flickfinder-backend/internal/models"
)

// MovieRepository handles database operations for movies.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// Upsert inserts a movie or updates it in place, returning the internal ID.
// Genre links are replaced only when the incoming record carries genres, so
// an upsert from a list payload never wipes previously backfilled genres.
func (r *MovieRepository) Upsert(m *models.Movie) (int, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO movies (tmdb_id, title, poster_path, overview, release_date,
			vote_average, vote_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tmdb_id) DO UPDATE SET
			title = EXCLUDED.title,
			poster_path = EXCLUDED.poster_path,
			overview = EXCLUDED.overview,
			release_date = EXCLUDED.release_date,
			vote_average = EXCLUDED.vote_average,
			vote_count = EXCLUDED.vote_count,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`, m.TMDBId, m.Title, m.PosterPath, m.Overview, m.ReleaseDate,
		m.VoteAverage, m.VoteCount, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert movie: %w", err)
	}

	if len(m.Genres) > 0 {
		if err := r.ReplaceGenres(id, m.Genres); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// ReplaceGenres rewrites the ordered genre set for a movie.
func (r *MovieRepository) ReplaceGenres(movieID int, genres []models.Genre) error {
	if _, err := r.db.Exec(`DELETE FROM movie_genres WHERE movie_id = $1`, movieID); err != nil {
		return fmt.Errorf("clear movie genres: %w", err)
	}
	for i, g := range genres {
		if _, err := r.db.Exec(`
			INSERT INTO movie_genres (movie_id, genre_tmdb_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, movieID, g.ID, i); err != nil {
			return fmt.Errorf("link movie genre: %w", err)
		}
		if _, err := r.db.Exec(`
			INSERT INTO genres (tmdb_id, name) VALUES ($1, $2)
			ON CONFLICT (tmdb_id) DO UPDATE SET name = EXCLUDED.name
		`, g.ID, g.Name); err != nil {
			return fmt.Errorf("upsert genre: %w", err)
		}
	}
	return nil
}

// GetByTMDBID returns a stored movie with its ordered genres, or
// sql.ErrNoRows if the movie has never been fetched.
func (r *MovieRepository) GetByTMDBID(tmdbID int) (*models.Movie, error) {
	var m models.Movie
	err := r.db.QueryRow(`
		SELECT id, tmdb_id, title, COALESCE(poster_path, ''), COALESCE(overview, ''),
			COALESCE(release_date, ''), vote_average, vote_count, created_at, updated_at
		FROM movies WHERE tmdb_id = $1
	`, tmdbID).Scan(
		&m.ID, &m.TMDBId, &m.Title, &m.PosterPath, &m.Overview,
		&m.ReleaseDate, &m.VoteAverage, &m.VoteCount, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	genres, err := r.genresFor(m.ID)
	if err != nil {
		return nil, err
	}
	m.Genres = genres
	return &m, nil
}

func (r *MovieRepository) genresFor(movieID int) ([]models.Genre, error) {
	rows, err := r.db.Query(`
		SELECT g.tmdb_id, g.name
		FROM genres g
		INNER JOIN movie_genres mg ON mg.genre_tmdb_id = g.tmdb_id
		WHERE mg.movie_id = $1
		ORDER BY mg.position
	`, movieID)
	if err != nil {
		return nil, fmt.Errorf("query movie genres: %w", err)
	}
	defer rows.Close()

	genres := make([]models.Genre, 0)
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
