package models

import "time"

// UserFilter holds a user's saved discovery preferences. One row per user,
// created lazily on first save; nil pointer fields mean "not set".
type UserFilter struct {
	UserID         int       `json:"user_id"`
	GenreIDs       []int     `json:"genre_ids"`
	MinReleaseYear *int      `json:"min_release_year"`
	MaxReleaseYear *int      `json:"max_release_year"`
	MinRating      *float64  `json:"min_rating"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsEmpty reports whether no filter field is set. An empty filter puts the
// recommender in popular mode instead of filtered discovery.
func (f *UserFilter) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.GenreIDs) == 0 && f.MinReleaseYear == nil && f.MaxReleaseYear == nil && f.MinRating == nil
}

// SaveFiltersRequest is the request body for saving filters. Pointer fields
// distinguish "clear this filter" (absent) from a zero value.
type SaveFiltersRequest struct {
	GenreIDs       []int    `json:"genre_ids"`
	MinReleaseYear *int     `json:"min_release_year"`
	MaxReleaseYear *int     `json:"max_release_year"`
	MinRating      *float64 `json:"min_rating"`
}

// Validate checks field ranges and cross-field consistency. It returns a map
// of field name to reason; an empty map means the request is valid.
func (r *SaveFiltersRequest) Validate() map[string]string {
	problems := map[string]string{}

	if r.MinReleaseYear != nil && (*r.MinReleaseYear < 1900 || *r.MinReleaseYear > 2030) {
		problems["min_release_year"] = "must be between 1900 and 2030"
	}
	if r.MaxReleaseYear != nil && (*r.MaxReleaseYear < 1900 || *r.MaxReleaseYear > 2030) {
		problems["max_release_year"] = "must be between 1900 and 2030"
	}
	if r.MinReleaseYear != nil && r.MaxReleaseYear != nil && *r.MinReleaseYear > *r.MaxReleaseYear {
		problems["min_release_year"] = "must not be greater than max_release_year"
	}
	if r.MinRating != nil && (*r.MinRating < 0 || *r.MinRating > 10) {
		problems["min_rating"] = "must be between 0 and 10"
	}
	for _, id := range r.GenreIDs {
		if id <= 0 {
			problems["genre_ids"] = "genre IDs must be positive"
			break
		}
	}

	return problems
}
