package auditrelay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	auditrepository "github.com/smallbiznis/donare/internal/audit/repository"
	auditservice "github.com/smallbiznis/donare/internal/audit/service"
	"github.com/smallbiznis/donare/internal/clock"
	"github.com/smallbiznis/donare/internal/config"
	"github.com/smallbiznis/donare/internal/dbtest"
	donationdomain "github.com/smallbiznis/donare/internal/donation/domain"
	"github.com/smallbiznis/donare/internal/donation/event"
	obsmetrics "github.com/smallbiznis/donare/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	relay    *Relay
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	auditSvc auditdomain.Service
	registry *prometheus.Registry
}

type failingAudit struct{ auditdomain.Service }

func (failingAudit) Record(context.Context, auditdomain.RecordRequest) (*auditdomain.Entry, error) {
	return nil, errors.New("audit store unavailable")
}

func newFixture(t *testing.T, override auditdomain.Service) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{Audit: config.AuditConfig{
		Destination:   config.AuditDestinationDB,
		RelayInterval: time.Second,
		RelayGrace:    30 * time.Second,
	}}

	var auditSvc auditdomain.Service = auditservice.NewService(auditservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   auditrepository.Provide(),
		Config: cfg,
		Clock:  clk,
	})
	if override != nil {
		auditSvc = override
	}

	registry := prometheus.NewRegistry()
	relayMetrics, err := obsmetrics.NewRelayMetrics(registry, obsmetrics.Config{ServiceName: "donare", Environment: "test"})
	require.NoError(t, err)

	relay := NewRelay(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Outbox:   event.ProvideOutbox(),
		AuditSvc: auditSvc,
		Clock:    clk,
		Config:   cfg,
		Metrics:  relayMetrics,
	})
	return &fixture{relay: relay, db: db, node: node, clock: clk, auditSvc: auditSvc, registry: registry}
}

func (f *fixture) appendEvent(t *testing.T, createdAt time.Time) *donationdomain.Event {
	t.Helper()
	evt := &donationdomain.Event{
		ID:           event.NewID(createdAt),
		DonationID:   f.node.Generate(),
		EventType:    donationdomain.EventAccepted,
		FromStatus:   donationdomain.StatusRegistered,
		ToStatus:     donationdomain.StatusAccepted,
		ActorID:      "staff-1",
		ActorRole:    "staff",
		Payload:      datatypes.JSONMap{"note": "triagem"},
		AuditEntryID: f.node.Generate(),
		CreatedAt:    createdAt,
	}
	require.NoError(t, event.ProvideOutbox().Append(context.Background(), f.db, evt))
	return evt
}

func (f *fixture) auditCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&auditdomain.Entry{}).Count(&count).Error)
	return count
}

func (f *fixture) gauge(t *testing.T, name string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name && len(family.GetMetric()) > 0 {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestRelayWritesPendingEntries(t *testing.T) {
	f := newFixture(t, nil)
	old := f.appendEvent(t, f.clock.Now().Add(-time.Minute))
	fresh := f.appendEvent(t, f.clock.Now().Add(-time.Second))

	relayed, err := f.relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, relayed)

	var entry auditdomain.Entry
	require.NoError(t, f.db.First(&entry, "id = ?", old.AuditEntryID).Error)
	assert.Equal(t, "donation.accepted", entry.ActionType)
	assert.Equal(t, old.DonationID.String(), entry.TargetID)
	assert.Equal(t, "triagem", entry.Metadata["note"])
	assert.Equal(t, old.ID, entry.Metadata["event_id"])

	var stored donationdomain.Event
	require.NoError(t, f.db.First(&stored, "id = ?", old.ID).Error)
	assert.NotNil(t, stored.AuditedAt)
	require.NoError(t, f.db.First(&stored, "id = ?", fresh.ID).Error)
	assert.Nil(t, stored.AuditedAt)

	assert.Equal(t, float64(1), f.gauge(t, "donare_audit_relay_pending"))
}

func TestRelayIsIdempotentWithSynchronousWrite(t *testing.T) {
	f := newFixture(t, nil)
	evt := f.appendEvent(t, f.clock.Now().Add(-time.Minute))

	// The request wrote the entry but crashed before marking the event.
	_, err := f.auditSvc.Record(context.Background(), evt.AuditRecord())
	require.NoError(t, err)
	require.Equal(t, int64(1), f.auditCount(t))

	relayed, err := f.relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, relayed)
	assert.Equal(t, int64(1), f.auditCount(t))

	relayed, err = f.relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, relayed)
}

func TestRelayLeavesEventPendingOnAuditFailure(t *testing.T) {
	f := newFixture(t, failingAudit{})
	evt := f.appendEvent(t, f.clock.Now().Add(-time.Minute))

	relayed, err := f.relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, relayed)

	var stored donationdomain.Event
	require.NoError(t, f.db.First(&stored, "id = ?", evt.ID).Error)
	assert.Nil(t, stored.AuditedAt)
	assert.Equal(t, float64(1), f.gauge(t, "donare_audit_relay_pending"))
}
