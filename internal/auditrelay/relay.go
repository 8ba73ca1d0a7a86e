package auditrelay

import (
	"context"
	"time"

	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	"github.com/smallbiznis/donare/internal/clock"
	"github.com/smallbiznis/donare/internal/config"
	donationdomain "github.com/smallbiznis/donare/internal/donation/domain"
	obsmetrics "github.com/smallbiznis/donare/internal/observability/metrics"
	"github.com/smallbiznis/donare/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	batchSize = 50
	lockKey   = "donare:auditrelay:lock"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Outbox   donationdomain.Outbox
	AuditSvc auditdomain.Service
	Clock    clock.Clock
	Config   config.Config
	Locker   *ratelimit.Locker        `optional:"true"`
	Metrics  *obsmetrics.RelayMetrics `optional:"true"`
}

// Relay writes the audit entries of lifecycle events whose synchronous audit
// write did not complete.
type Relay struct {
	db       *gorm.DB
	log      *zap.Logger
	outbox   donationdomain.Outbox
	auditSvc auditdomain.Service
	clock    clock.Clock
	locker   *ratelimit.Locker
	metrics  *obsmetrics.RelayMetrics
	interval time.Duration
	grace    time.Duration
}

func NewRelay(p Params) *Relay {
	return &Relay{
		db:       p.DB,
		log:      p.Log.Named("audit.relay"),
		outbox:   p.Outbox,
		auditSvc: p.AuditSvc,
		clock:    p.Clock,
		locker:   p.Locker,
		metrics:  p.Metrics,
		interval: p.Config.Audit.RelayInterval,
		grace:    p.Config.Audit.RelayGrace,
	}
}

// ProcessPending relays one batch and reports how many events it audited.
// Events younger than the grace period are left to the request that wrote them.
func (r *Relay) ProcessPending(ctx context.Context) (int, error) {
	if r.locker != nil {
		lease, ok, err := r.locker.TryLock(ctx, lockKey, r.leaseTTL())
		switch {
		case err != nil:
			r.log.Warn("relay lock unavailable, relaying without it", zap.Error(err))
		case !ok:
			return 0, nil
		default:
			defer func() {
				if err := r.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
					r.log.Warn("failed to release relay lock", zap.Error(err))
				}
			}()
		}
	}

	started := time.Now()
	now := r.clock.Now()
	events, err := r.outbox.Pending(ctx, r.db, now.Add(-r.grace), batchSize)
	if err != nil {
		r.metrics.RecordFailure(err)
		return 0, err
	}

	relayed := 0
	for _, event := range events {
		if _, err := r.auditSvc.Record(ctx, event.AuditRecord()); err != nil {
			r.metrics.RecordFailure(err)
			r.log.Error("failed to relay audit entry",
				zap.String("event_id", event.ID),
				zap.String("donation_id", event.DonationID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := r.outbox.MarkAudited(ctx, r.db, event.ID, r.clock.Now()); err != nil {
			r.metrics.RecordFailure(err)
			r.log.Error("failed to mark event audited", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		relayed++
	}

	pending, err := r.outbox.CountPending(ctx, r.db, r.clock.Now())
	if err != nil {
		r.log.Warn("failed to count pending events", zap.Error(err))
	}
	r.metrics.ObserveRun(time.Since(started).Seconds(), relayed, int(pending))
	if relayed > 0 {
		r.log.Info("relayed deferred audit entries", zap.Int("relayed", relayed), zap.Int64("pending", pending))
	}
	return relayed, nil
}

func (r *Relay) leaseTTL() time.Duration {
	if r.interval <= 0 {
		return 10 * time.Second
	}
	return 2 * r.interval
}
