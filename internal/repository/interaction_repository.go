package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"flickfinder-backend/internal/models"
)

// InteractionRepository handles database operations for user interactions.
type InteractionRepository struct {
	db *sql.DB
}

// NewInteractionRepository creates a new InteractionRepository.
func NewInteractionRepository(db *sql.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Upsert records an interaction. Re-recording the same (user, movie, kind)
// refreshes the timestamp instead of inserting a second row.
func (r *InteractionRepository) Upsert(userID, tmdbID int, kind string) (*models.Interaction, error) {
	var inter models.Interaction
	err := r.db.QueryRow(`
		INSERT INTO user_interactions (user_id, tmdb_id, kind, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, tmdb_id, kind)
		DO UPDATE SET created_at = NOW()
		RETURNING id, user_id, tmdb_id, kind, created_at
	`, userID, tmdbID, kind).Scan(
		&inter.ID, &inter.UserID, &inter.TMDBId, &inter.Kind, &inter.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert interaction: %w", err)
	}
	return &inter, nil
}

// ReplaceWithSkip removes the movie from the user's positive lists and
// records a skip, both inside one transaction: a movie is either still
// listed or permanently excluded, never in between. Reports how many
// positive rows were removed.
func (r *InteractionRepository) ReplaceWithSkip(userID, tmdbID int) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin watchlist removal: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		DELETE FROM user_interactions
		WHERE user_id = $1 AND tmdb_id = $2 AND kind = ANY($3)
	`, userID, tmdbID, pq.Array([]string{models.InteractionWatchlist, models.InteractionFavorite}))
	if err != nil {
		return 0, fmt.Errorf("delete interactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete interactions: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO user_interactions (user_id, tmdb_id, kind, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, tmdb_id, kind)
		DO UPDATE SET created_at = NOW()
	`, userID, tmdbID, models.InteractionSkip); err != nil {
		return 0, fmt.Errorf("record skip: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit watchlist removal: %w", err)
	}
	return int(n), nil
}

// NonBlockExclusions returns the distinct catalog IDs of every interaction
// the user has recorded except blocks. Blocks are handled separately so that
// an expired block does not permanently exclude its movie.
func (r *InteractionRepository) NonBlockExclusions(userID int) ([]int, error) {
	return r.queryIDs(`
		SELECT DISTINCT tmdb_id FROM user_interactions
		WHERE user_id = $1 AND kind <> $2
	`, userID, models.InteractionBlock)
}

// ActiveBlocks returns catalog IDs of block interactions newer than since.
func (r *InteractionRepository) ActiveBlocks(userID int, since time.Time) ([]int, error) {
	return r.queryIDs(`
		SELECT tmdb_id FROM user_interactions
		WHERE user_id = $1 AND kind = $2 AND created_at > $3
	`, userID, models.InteractionBlock, since)
}

func (r *InteractionRepository) queryIDs(query string, args ...any) ([]int, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interaction ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan interaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// WatchlistEntry pairs a stored movie with the time it was watchlisted.
type WatchlistEntry struct {
	Movie   models.Movie
	AddedAt time.Time
}

// Watchlist returns the user's watchlisted movies, newest first.
func (r *InteractionRepository) Watchlist(userID int) ([]WatchlistEntry, error) {
	rows, err := r.db.Query(`
		SELECT m.id, m.tmdb_id, m.title, COALESCE(m.poster_path, ''),
			COALESCE(m.overview, ''), COALESCE(m.release_date, ''),
			m.vote_average, m.vote_count, i.created_at
		FROM user_interactions i
		INNER JOIN movies m ON m.tmdb_id = i.tmdb_id
		WHERE i.user_id = $1 AND i.kind = $2
		ORDER BY i.created_at DESC
	`, userID, models.InteractionWatchlist)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	entries := make([]WatchlistEntry, 0)
	for rows.Next() {
		var e WatchlistEntry
		if err := rows.Scan(
			&e.Movie.ID, &e.Movie.TMDBId, &e.Movie.Title, &e.Movie.PosterPath,
			&e.Movie.Overview, &e.Movie.ReleaseDate, &e.Movie.VoteAverage,
			&e.Movie.VoteCount, &e.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scan watchlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		genres, err := r.movieGenres(entries[i].Movie.ID)
		if err != nil {
			return nil, err
		}
		entries[i].Movie.Genres = genres
	}
	return entries, nil
}

// GenreCounts aggregates genre names across the user's interactions of the
// given kinds, feeding the watchlist page's preference summary.
func (r *InteractionRepository) GenreCounts(userID int, kinds []string) ([]models.GenreCount, error) {
	rows, err := r.db.Query(`
		SELECT g.name, COUNT(DISTINCT i.tmdb_id) AS cnt
		FROM user_interactions i
		INNER JOIN movies m ON m.tmdb_id = i.tmdb_id
		INNER JOIN movie_genres mg ON mg.movie_id = m.id
		INNER JOIN genres g ON g.tmdb_id = mg.genre_tmdb_id
		WHERE i.user_id = $1 AND i.kind = ANY($2)
		GROUP BY g.name
		ORDER BY cnt DESC, g.name
	`, userID, pq.Array(kinds))
	if err != nil {
		return nil, fmt.Errorf("query genre counts: %w", err)
	}
	defer rows.Close()

	counts := make([]models.GenreCount, 0)
	for rows.Next() {
		var gc models.GenreCount
		if err := rows.Scan(&gc.Name, &gc.Count); err != nil {
			return nil, fmt.Errorf("scan genre count: %w", err)
		}
		counts = append(counts, gc)
	}
	return counts, rows.Err()
}

func (r *InteractionRepository) movieGenres(movieID int) ([]models.Genre, error) {
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
