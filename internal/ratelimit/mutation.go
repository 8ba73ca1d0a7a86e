package ratelimit

import (
	"context"
	"errors"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/donare/internal/config"
	"go.uber.org/zap"
)

const keyMutationActor = "donare:mutations:actor:"

// MutationLimiter throttles state-changing requests per actor. A nil limiter
// allows everything.
type MutationLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewMutationLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) (*MutationLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if client == nil {
		log.Warn("rate limiting enabled without redis, mutations are not throttled")
		return nil, nil
	}
	if limitCfg.MutationRate <= 0 || limitCfg.MutationBurst <= 0 {
		return nil, errors.New("mutation rate limit must be positive")
	}
	return &MutationLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.MutationRate,
		burst:  limitCfg.MutationBurst,
	}, nil
}

func (l *MutationLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *MutationLimiter) Allow(ctx context.Context, actorID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		actorID = "anonymous"
	}
	return l.bucket.Allow(ctx, keyMutationActor+actorID, l.rate, l.burst)
}
