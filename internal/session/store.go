package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps recommendation caches in Redis, one key per user, expiring
// with the session TTL. A nil Redis client degrades to an always-empty
// cache: every serve triggers a refill, which is slower but correct.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a session store.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func cacheKey(userID int) string {
	return fmt.Sprintf("session:reccache:%d", userID)
}

// Cache loads the user's recommendation cache. A missing or unreadable key
// yields an empty cache, never an error.
func (s *Store) Cache(ctx context.Context, userID int) *RecommendationCache {
	empty := &RecommendationCache{IDs: []int{}, Source: SourceUnknown}
	if s.rdb == nil {
		return empty
	}

	raw, err := s.rdb.Get(ctx, cacheKey(userID)).Result()
	if err == redis.Nil {
		return empty
	}
	if err != nil {
		slog.Warn("failed to load session cache", "user_id", userID, "error", err)
		return empty
	}

	var cache RecommendationCache
	if err := json.Unmarshal([]byte(raw), &cache); err != nil {
		slog.Warn("corrupt session cache, resetting", "user_id", userID, "error", err)
		return empty
	}
	return &cache
}

// Save stores the user's recommendation cache, refreshing the session TTL.
func (s *Store) Save(ctx context.Context, userID int, cache *RecommendationCache) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(cache)
	if err != nil {
		slog.Error("failed to marshal session cache", "user_id", userID, "error", err)
		return
	}
	if err := s.rdb.Set(ctx, cacheKey(userID), data, s.ttl).Err(); err != nil {
		slog.Warn("failed to save session cache", "user_id", userID, "error", err)
	}
}

// Clear invalidates the user's recommendation cache.
func (s *Store) Clear(ctx context.Context, userID int) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cacheKey(userID)).Err(); err != nil {
		slog.Warn("failed to clear session cache", "user_id", userID, "error", err)
	}
}
