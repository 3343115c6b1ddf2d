package models

import "time"

// Movie represents a movie stored in our database. Identity is the TMDB ID;
// rows are created on first fetch from the catalog and never deleted.
type Movie struct {
	ID          int       `json:"id"`
	TMDBId      int       `json:"tmdb_id"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"poster_path"`
	Overview    string    `json:"overview"`
	ReleaseDate string    `json:"release_date"`
	VoteAverage float64   `json:"vote_average"`
	VoteCount   int       `json:"vote_count"`
	Genres      []Genre   `json:"genres"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasGenres reports whether genre data has been populated for this movie.
// Discover results only carry genre IDs, so a movie first seen through a
// list endpoint may be stored without genres until the detail backfill runs.
func (m *Movie) HasGenres() bool {
	return len(m.Genres) > 0
}

// Genre is a TMDB genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetail is the response shape served to the UI.
type MovieDetail struct {
	TMDBId      int     `json:"tmdb_id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Genres      []Genre `json:"genres"`
	PosterURL   string  `json:"poster_url"`
}

// WatchlistItem is a single entry on the watchlist page.
type WatchlistItem struct {
	Movie   MovieDetail `json:"movie"`
	AddedAt time.Time   `json:"added_at"`
}

// GenreCount is one row of the watchlist page's genre-preference summary.
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// WatchlistResponse is the watchlist page payload.
type WatchlistResponse struct {
	Items        []WatchlistItem `json:"items"`
	GenreSummary []GenreCount    `json:"genre_summary"`
}

const TMDBImageBaseW500 = "https://image.tmdb.org/t/p/w500"
