package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/donare/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{`SELECT * FROM "donations" WHERE id = $1`, "SELECT", "donations"},
		{"UPDATE donations SET status = ? WHERE id = ?", "UPDATE", "donations"},
		{"INSERT INTO `admin_actions` (id) VALUES (?)", "INSERT", "admin_actions"},
		{"DELETE FROM donation_events WHERE donation_id = ?", "DELETE", "donation_events"},
		{"", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		operation, table := describeSQL(tc.sql)
		assert.Equal(t, tc.operation, operation, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "staff", "staff-7")

	WithContext(ctx, zap.New(core)).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "staff", fields["actor_role"])
		assert.Equal(t, "staff-7", fields["actor_id"])
	}
}

func TestIsExpectedRejection(t *testing.T) {
	assert.True(t, isExpectedRejection("invalid_transition"))
	assert.True(t, isExpectedRejection("forbidden"))
	assert.False(t, isExpectedRejection("infrastructure_error"))
}

func TestWithContextOmitsAbsentFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := obscontext.WithActor(context.Background(), "visitor", "")

	WithContext(ctx, zap.New(core)).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "visitor", fields["actor_role"])
		assert.NotContains(t, fields, "actor_id")
		assert.NotContains(t, fields, "request_id")
		assert.NotContains(t, fields, "trace_id")
	}
}

func TestBuildZapConfigRejectsUnknownLevel(t *testing.T) {
	_, err := buildZapConfig(Config{Level: "chatty"})
	assert.Error(t, err)

	cfg, err := buildZapConfig(Config{Level: "debug", Format: "Console"})
	assert.NoError(t, err)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Nil(t, cfg.Sampling)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, levelFor("/metrics", 200, ""))
	assert.Equal(t, zap.InfoLevel, levelFor("/api/donations", 200, ""))
	assert.Equal(t, zap.DebugLevel, levelFor("/api/donations/:id/accept", 409, "invalid_transition"))
	assert.Equal(t, zap.WarnLevel, levelFor("/api/donations", 401, "unauthorized"))
	assert.Equal(t, zap.ErrorLevel, levelFor("/api/impact", 503, "infrastructure_error"))
}
