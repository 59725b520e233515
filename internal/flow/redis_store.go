package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/iRatG/rasprav-bot/internal/repository"
)

// flowStateTTL bounds how long an abandoned mid-booking session lingers —
// generous next to the single-digit-minute wizard the teacher's source
// expects a user to complete, but enough for someone to get distracted
// and come back.
const flowStateTTL = 2 * time.Hour

// RedisStore backs per-user flow state with Redis instead of an in-process
// map, for a horizontally-scaled deployment where two webhook handlers
// might see consecutive updates from the same user. Built on the cache
// repository the teacher left as a dead stub; here it does real work.
type RedisStore struct {
	cache *repository.CacheRepository
}

// NewRedisStore creates a Redis-backed flow store.
func NewRedisStore(cache *repository.CacheRepository) *RedisStore {
	return &RedisStore{cache: cache}
}

func flowKey(userID int64) string {
	return "flow:state:" + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) Get(userID int64) (*State, error) {
	ctx := context.Background()
	raw, found, err := s.cache.Get(ctx, flowKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to read flow state: %w", err)
	}
	if !found {
		return idleState(), nil
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode flow state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Set(userID int64, state *State) error {
	ctx := context.Background()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode flow state: %w", err)
	}
	if err := s.cache.Set(ctx, flowKey(userID), string(raw), flowStateTTL); err != nil {
		return fmt.Errorf("failed to write flow state: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(userID int64) error {
	ctx := context.Background()
	if err := s.cache.Delete(ctx, flowKey(userID)); err != nil {
		return fmt.Errorf("failed to clear flow state: %w", err)
	}
	return nil
}
