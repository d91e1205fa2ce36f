package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nattapong2005/codementorai/internal/dto"
	"github.com/nattapong2005/codementorai/internal/observability"
)

// AnalysisCache keeps stored class analyses in Redis. A nil client disables caching.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewAnalysisCache builds the cache; ttl <= 0 falls back to ten minutes.
func NewAnalysisCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *AnalysisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AnalysisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "analysis_cache").Logger(),
	}
}

func analysisCacheKey(assignmentID uint) string {
	return fmt.Sprintf("analysis:assignment:%d", assignmentID)
}

// Get returns the cached analysis and whether it was found.
func (c *AnalysisCache) Get(ctx context.Context, assignmentID uint) (dto.AnalysisResponse, bool) {
	if c == nil || c.client == nil {
		return dto.AnalysisResponse{}, false
	}

	cached, err := c.client.Get(ctx, analysisCacheKey(assignmentID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("failed to read analysis cache")
		}
		observability.AnalysisCacheLookups().WithLabelValues("miss").Inc()
		return dto.AnalysisResponse{}, false
	}

	var response dto.AnalysisResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		c.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("discarding corrupt analysis cache entry")
		observability.AnalysisCacheLookups().WithLabelValues("miss").Inc()
		return dto.AnalysisResponse{}, false
	}

	observability.AnalysisCacheLookups().WithLabelValues("hit").Inc()
	return response, true
}

// Set stores the analysis. Errors are logged only.
func (c *AnalysisCache) Set(ctx context.Context, response dto.AnalysisResponse) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, analysisCacheKey(response.AssignmentID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store analysis cache")
	}
}

// Invalidate drops the cached analyses of the given assignments.
func (c *AnalysisCache) Invalidate(ctx context.Context, assignmentIDs ...uint) {
	if c == nil || c.client == nil || len(assignmentIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(assignmentIDs))
	for _, id := range assignmentIDs {
		keys = append(keys, analysisCacheKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate analysis cache")
	}
}
