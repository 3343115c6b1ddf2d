package service

import (
	"context"
	"log/slog"
	"time"
)

// BlockRetention is how long a "block" interaction keeps a movie out of
// recommendations. A block older than this has expired and no longer
// excludes its movie.
const BlockRetention = 72 * time.Hour

// ExclusionCalculator derives the set of catalog IDs a user must never be
// shown again: every non-block interaction permanently excludes its movie,
// and blocks exclude only while still inside the retention window.
type ExclusionCalculator struct {
	interactions InteractionStore
	now          func() time.Time
}

// NewExclusionCalculator creates an ExclusionCalculator.
func NewExclusionCalculator(interactions InteractionStore) *ExclusionCalculator {
	return &ExclusionCalculator{
		interactions: interactions,
		now:          time.Now,
	}
}

// ExcludedIDs returns the union of the user's permanent and active-block
// exclusions. Storage failures degrade to an empty set so that exclusion
// computation can never stop recommendations from being served.
func (e *ExclusionCalculator) ExcludedIDs(ctx context.Context, userID int) map[int]struct{} {
	excluded := make(map[int]struct{})

	permanent, err := e.interactions.NonBlockExclusions(userID)
	if err != nil {
		slog.Warn("exclusion computation degraded to empty set", "user_id", userID, "error", err)
		return map[int]struct{}{}
	}
	for _, id := range permanent {
		excluded[id] = struct{}{}
	}

	cutoff := e.now().Add(-BlockRetention)
	blocked, err := e.interactions.ActiveBlocks(userID, cutoff)
	if err != nil {
		slog.Warn("exclusion computation degraded to empty set", "user_id", userID, "error", err)
		return map[int]struct{}{}
	}
	for _, id := range blocked {
		excluded[id] = struct{}{}
	}

	return excluded
}
