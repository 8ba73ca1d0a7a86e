package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("AUDIT_DESTINATION", "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, "X-Actor-Id", cfg.Identity.ActorIDHeader)
	assert.Equal(t, "X-Actor-Role", cfg.Identity.ActorRoleHeader)
	assert.Equal(t, AuditDestinationAll, cfg.Audit.Destination)
	assert.Equal(t, 3, cfg.Audit.RetryMaxTries)
	assert.Equal(t, 5*time.Minute, cfg.ImpactCacheTTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SNOWFLAKE_NODE", "7")
	t.Setenv("REDIS_ADDR", " redis:6379 ")
	t.Setenv("AUDIT_DESTINATION", "LOG")
	t.Setenv("AUDIT_RELAY_INTERVAL", "2s")
	t.Setenv("IMPACT_CACHE_TTL", "30s")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_MUTATION_RATE", "0.5")
	t.Setenv("IDENTITY_ACTOR_ROLE_HEADER", "X-Gateway-Role")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, int64(7), cfg.SnowflakeNode)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, AuditDestinationLog, cfg.Audit.Destination)
	assert.Equal(t, 2*time.Second, cfg.Audit.RelayInterval)
	assert.Equal(t, 30*time.Second, cfg.ImpactCacheTTL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.InDelta(t, 0.5, cfg.RateLimit.MutationRate, 1e-9)
	assert.Equal(t, "X-Gateway-Role", cfg.Identity.ActorRoleHeader)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("AUDIT_RETRY_MAX_TRIES", "many")
	t.Setenv("IMPACT_CACHE_TTL", "-1s")
	t.Setenv("AUDIT_DESTINATION", "kafka")
	t.Setenv("RATE_LIMIT_ENABLED", "sometimes")

	cfg := Load()

	assert.Equal(t, 3, cfg.Audit.RetryMaxTries)
	assert.Equal(t, 5*time.Minute, cfg.ImpactCacheTTL)
	assert.Equal(t, AuditDestinationAll, cfg.Audit.Destination)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestIsProduction(t *testing.T) {
	assert.True(t, Config{Environment: " Production "}.IsProduction())
	assert.False(t, Config{Environment: "staging"}.IsProduction())
}
