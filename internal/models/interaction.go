package models

import "time"

// Interaction kinds. Exactly one row may exist per (user, movie, kind);
// re-recording the same kind refreshes its timestamp.
const (
	InteractionFavorite  = "favorite"
	InteractionBlock     = "block"
	InteractionWatchlist = "watchlist"
	InteractionSkip      = "skip"
	InteractionUnwatch   = "unwatch"
)

// ValidInteractionKinds is the closed set of accepted interaction kinds.
var ValidInteractionKinds = map[string]bool{
	InteractionFavorite:  true,
	InteractionBlock:     true,
	InteractionWatchlist: true,
	InteractionSkip:      true,
	InteractionUnwatch:   true,
}

// Interaction records a user's reaction to a movie.
type Interaction struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	TMDBId    int       `json:"tmdb_id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordInteractionRequest is the request body for recording an interaction.
type RecordInteractionRequest struct {
	MovieID int    `json:"movie_id"`
	Kind    string `json:"kind"`
}

// RemoveWatchlistRequest is the request body for removing a watchlist entry.
type RemoveWatchlistRequest struct {
	MovieID int `json:"movie_id"`
}
