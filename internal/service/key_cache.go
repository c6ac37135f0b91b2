package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader-api/internal/grading"
)

// KeyCache keeps answer keys built for an assignment so later submissions
// skip the key building stage.
type KeyCache interface {
	Get(ctx context.Context, assignmentID, solutionRef string) (grading.AnswerKey, bool)
	Set(ctx context.Context, assignmentID, solutionRef string, key grading.AnswerKey)
}

type redisKeyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisKeyCache returns a redis backed cache, or nil when client is nil.
func NewRedisKeyCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) KeyCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &redisKeyCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "key_cache").Logger(),
	}
}

func (c *redisKeyCache) Get(ctx context.Context, assignmentID, solutionRef string) (grading.AnswerKey, bool) {
	cached, err := c.client.Get(ctx, cacheKey(assignmentID, solutionRef)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("failed to read answer key cache")
		}
		return nil, false
	}

	var key grading.AnswerKey
	if err := json.Unmarshal([]byte(cached), &key); err != nil {
		c.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("discarding corrupt answer key cache entry")
		return nil, false
	}

	c.logger.Debug().Str("assignment_id", assignmentID).Msg("answer key cache hit")
	return key, true
}

func (c *redisKeyCache) Set(ctx context.Context, assignmentID, solutionRef string, key grading.AnswerKey) {
	payload, err := json.Marshal(key)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(assignmentID, solutionRef), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("assignment_id", assignmentID).Msg("failed to store answer key cache")
	}
}

func cacheKey(assignmentID, solutionRef string) string {
	sum := sha256.Sum256([]byte(solutionRef))
	return fmt.Sprintf("grader:answer_key:%s:%s", assignmentID, hex.EncodeToString(sum[:8]))
}
