package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	"github.com/smallbiznis/donare/internal/audit/repository"
	"github.com/smallbiznis/donare/internal/clock"
	"github.com/smallbiznis/donare/internal/config"
	"github.com/smallbiznis/donare/internal/dbtest"
	obscontext "github.com/smallbiznis/donare/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type fixture struct {
	svc   auditdomain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	logs  *observer.ObservedLogs
}

func newFixture(t *testing.T, destination string) fixture {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	core, logs := observer.New(zap.InfoLevel)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:     db,
		Log:    zap.New(core),
		GenID:  node,
		Repo:   repository.Provide(),
		Config: config.Config{Audit: config.AuditConfig{Destination: destination}},
		Clock:  clk,
	})
	return fixture{svc: svc, db: db, clock: clk, logs: logs}
}

func countEntries(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&auditdomain.Entry{}).Count(&count).Error)
	return count
}

func TestRecordPersistsAndMirrors(t *testing.T) {
	f := newFixture(t, config.AuditDestinationAll)
	ctx := obscontext.WithRequestID(context.Background(), "req-42")

	entry, err := f.svc.Record(ctx, auditdomain.RecordRequest{
		ActorID:    "staff-1",
		ActorRole:  "staff",
		ActionType: "donation.accepted",
		TargetType: auditdomain.TargetTypeDonation,
		TargetID:   "1001",
		Metadata: map[string]any{
			"old_status":      "registered",
			"new_status":      "accepted",
			"endereco_coleta": "Rua das Flores, 10",
		},
	})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "req-42", entry.Metadata["request_id"])

	var stored auditdomain.Entry
	require.NoError(t, f.db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, "staff-1", stored.ActorID)
	assert.Equal(t, "donation.accepted", stored.ActionType)
	assert.Equal(t, "accepted", stored.Metadata["new_status"])

	mirrored := f.logs.FilterField(zap.Bool("audit", true)).All()
	require.Len(t, mirrored, 1)
	metadata := mirrored[0].ContextMap()["metadata"].(map[string]interface{})
	assert.Equal(t, "****, 10", metadata["endereco_coleta"])
}

func TestRecordWithPreallocatedIDIsIdempotent(t *testing.T) {
	f := newFixture(t, config.AuditDestinationAll)
	req := auditdomain.RecordRequest{
		ID:         snowflake.ID(777),
		ActorID:    "admin-1",
		ActorRole:  "admin",
		ActionType: "donation.deleted",
		TargetType: auditdomain.TargetTypeDonation,
		TargetID:   "55",
	}

	_, err := f.svc.Record(context.Background(), req)
	require.NoError(t, err)
	_, err = f.svc.Record(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countEntries(t, f.db))
	assert.Len(t, f.logs.FilterField(zap.Bool("audit", true)).All(), 1)
}

func TestRecordDestinations(t *testing.T) {
	t.Run("log only never persists", func(t *testing.T) {
		f := newFixture(t, config.AuditDestinationLog)
		_, err := f.svc.Record(context.Background(), auditdomain.RecordRequest{
			ActorID: "staff-1", ActorRole: "staff", ActionType: "donation.cancelled", TargetID: "9",
		})
		require.NoError(t, err)
		assert.Zero(t, countEntries(t, f.db))
		assert.Len(t, f.logs.All(), 1)
	})

	t.Run("db only skips the mirror", func(t *testing.T) {
		f := newFixture(t, config.AuditDestinationDB)
		_, err := f.svc.Record(context.Background(), auditdomain.RecordRequest{
			ActorID: "staff-1", ActorRole: "staff", ActionType: "donation.cancelled", TargetID: "9",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), countEntries(t, f.db))
		assert.Empty(t, f.logs.All())
	})
}

func TestRecordValidation(t *testing.T) {
	f := newFixture(t, config.AuditDestinationAll)

	_, err := f.svc.Record(context.Background(), auditdomain.RecordRequest{TargetID: "1"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	_, err = f.svc.Record(context.Background(), auditdomain.RecordRequest{ActionType: "donation.accepted"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTarget)
}

func TestRecordFallsBackToContextActor(t *testing.T) {
	f := newFixture(t, config.AuditDestinationDB)
	ctx := obscontext.WithActor(context.Background(), "admin", "admin-9")

	entry, err := f.svc.Record(ctx, auditdomain.RecordRequest{ActionType: "category.created", TargetID: "3"})
	require.NoError(t, err)
	assert.Equal(t, "admin-9", entry.ActorID)
	assert.Equal(t, "admin", entry.ActorRole)

	entry, err = f.svc.Record(context.Background(), auditdomain.RecordRequest{ActionType: "category.created", TargetID: "4"})
	require.NoError(t, err)
	assert.Equal(t, auditdomain.ActorSystem, entry.ActorID)
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture(t, config.AuditDestinationDB)
	ctx := context.Background()

	for i, target := range []string{"1", "2", "1", "1"} {
		_, err := f.svc.Record(ctx, auditdomain.RecordRequest{
			ActorID:    "staff-1",
			ActorRole:  "staff",
			ActionType: "donation.accepted",
			TargetType: auditdomain.TargetTypeDonation,
			TargetID:   target,
			Metadata:   map[string]any{"seq": i},
		})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	t.Run("ascending by target", func(t *testing.T) {
		resp, err := f.svc.List(ctx, auditdomain.ListRequest{TargetID: "1", Order: "asc"})
		require.NoError(t, err)
		require.Len(t, resp.Entries, 3)
		assert.False(t, resp.HasMore)
		for i := 1; i < len(resp.Entries); i++ {
			assert.True(t, resp.Entries[i-1].CreatedAt.Before(resp.Entries[i].CreatedAt))
		}
	})

	t.Run("descending pages", func(t *testing.T) {
		req := auditdomain.ListRequest{ActorID: "staff-1"}
		req.PageSize = 3
		first, err := f.svc.List(ctx, req)
		require.NoError(t, err)
		require.Len(t, first.Entries, 3)
		assert.True(t, first.HasMore)

		req.PageToken = first.NextPageToken
		second, err := f.svc.List(ctx, req)
		require.NoError(t, err)
		require.Len(t, second.Entries, 1)
		assert.False(t, second.HasMore)
		assert.True(t, second.Entries[0].CreatedAt.Before(first.Entries[2].CreatedAt))
	})

	t.Run("rejects bad order and token", func(t *testing.T) {
		_, err := f.svc.List(ctx, auditdomain.ListRequest{Order: "sideways"})
		assert.ErrorIs(t, err, auditdomain.ErrInvalidOrder)

		req := auditdomain.ListRequest{}
		req.PageToken = "!!"
		_, err = f.svc.List(ctx, req)
		assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
	})
}

func TestStorageFailuresAreUnavailable(t *testing.T) {
	f := newFixture(t, config.AuditDestinationDB)
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	ctx := context.Background()

	_, err = f.svc.List(ctx, auditdomain.ListRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrUnavailable)

	_, err = f.svc.Record(ctx, auditdomain.RecordRequest{
		ActorID:    "staff-1",
		ActorRole:  "staff",
		ActionType: "donation.accepted",
		TargetType: auditdomain.TargetTypeDonation,
		TargetID:   "1",
	})
	assert.ErrorIs(t, err, auditdomain.ErrUnavailable)
}
