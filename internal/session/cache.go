// Package session holds per-user server-side session state. The only state
// kept here is the recommendation cache: an ordered queue of candidate
// catalog IDs not yet shown to the user.
package session

// Source records how a cached batch of candidates was produced.
type Source string

const (
	SourceFiltered Source = "filtered"
	SourcePopular  Source = "popular"
	SourceUnknown  Source = "unknown"
)

// RecommendationCache is the per-user queue of not-yet-served candidate
// catalog IDs. It is session-scoped and never persisted to durable storage.
// All mutations go through its methods; callers read-modify-write the whole
// value through the Store within a single request.
type RecommendationCache struct {
	IDs    []int  `json:"ids"`
	Source Source `json:"source"`
}

// Empty reports whether the queue holds no candidates.
func (c *RecommendationCache) Empty() bool {
	return c == nil || len(c.IDs) == 0
}

// Pop removes and returns the head of the queue.
func (c *RecommendationCache) Pop() (int, bool) {
	if c.Empty() {
		return 0, false
	}
	id := c.IDs[0]
	c.IDs = c.IDs[1:]
	return id, true
}

// Len returns the number of queued candidates.
func (c *RecommendationCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.IDs)
}
