package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nmkrspvl/interviewprep/internal/models"
)

// Only sealed transcripts enter the cache, and sealed transcripts are
// immutable, so the TTL bounds memory use rather than staleness.
const transcriptTTL = 10 * time.Minute

const keyPrefix = "interview:transcript:"

func transcriptKey(sessionID string) string {
	return keyPrefix + sessionID
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, sessionID string) (*models.InterviewTranscript, bool) {
	s, err := c.rdb.Get(ctx, transcriptKey(sessionID)).Result()
	if err != nil {
		return nil, false
	}
	var t models.InterviewTranscript
	if err := json.Unmarshal([]byte(s), &t); err != nil {
		// data corrupt: treat as miss by deleting
		_ = c.rdb.Del(ctx, transcriptKey(sessionID)).Err()
		return nil, false
	}
	return &t, true
}

func (c *RedisCache) Put(ctx context.Context, t *models.InterviewTranscript) {
	b, err := json.Marshal(t)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, transcriptKey(t.SessionID), b, transcriptTTL).Err()
}
