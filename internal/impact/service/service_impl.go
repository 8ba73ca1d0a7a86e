package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/smallbiznis/donare/internal/authorization"
	categorydomain "github.com/smallbiznis/donare/internal/category/domain"
	"github.com/smallbiznis/donare/internal/clock"
	donationdomain "github.com/smallbiznis/donare/internal/donation/domain"
	"github.com/smallbiznis/donare/internal/impact/domain"
	obsmetrics "github.com/smallbiznis/donare/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// maxAttempts bounds how often a recompute is retried while the version
// keeps moving underneath it.
const maxAttempts = 3

var errStale = errors.New("impact snapshot computed against an old version")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Store       domain.Store
	Donations   donationdomain.Repository
	CategorySvc categorydomain.Service
	Policy      *authorization.Policy
	Clock       clock.Clock
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	store       domain.Store
	donations   donationdomain.Repository
	categorySvc categorydomain.Service
	policy      *authorization.Policy
	clock       clock.Clock
	metrics     *obsmetrics.Metrics
	group       singleflight.Group
}

func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("impact.service"),
		store:       p.Store,
		donations:   p.Donations,
		categorySvc: p.CategorySvc,
		policy:      p.Policy,
		clock:       p.Clock,
		metrics:     p.Metrics,
	}
}

func (s *Service) Snapshot(ctx context.Context, actor authorization.Subject) (*domain.Snapshot, error) {
	if !s.policy.Allows(actor, authorization.ActionImpactView) {
		return nil, domain.ErrForbidden
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		version, err := s.store.Version(ctx)
		if err != nil {
			s.log.Warn("impact store unavailable, computing without cache", zap.Error(err))
			s.metrics.RecordImpactRecompute(ctx, "store_unavailable")
			return s.compute(ctx, -1)
		}

		cached, err := s.store.Load(ctx)
		if err != nil {
			s.log.Warn("failed to load cached impact snapshot", zap.Error(err))
		}
		if cached != nil && cached.Version == version {
			return cached, nil
		}

		result, err, _ := s.group.Do(strconv.FormatInt(version, 10), func() (any, error) {
			return s.recompute(context.WithoutCancel(ctx), version)
		})
		if errors.Is(err, errStale) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result.(*domain.Snapshot), nil
	}
	return nil, domain.ErrSnapshotContended
}

func (s *Service) Invalidate(ctx context.Context) error {
	return s.store.Invalidate(ctx)
}

func (s *Service) recompute(ctx context.Context, version int64) (*domain.Snapshot, error) {
	snapshot, err := s.compute(ctx, version)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordImpactRecompute(ctx, "cache_miss")

	saved, err := s.store.Save(ctx, snapshot)
	if err != nil {
		s.log.Warn("failed to cache impact snapshot", zap.Error(err))
		return snapshot, nil
	}
	if !saved {
		return nil, errStale
	}
	return snapshot, nil
}

func (s *Service) compute(ctx context.Context, version int64) (*domain.Snapshot, error) {
	donations, err := s.donations.ListDelivered(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("%w: load delivered donations: %w", domain.ErrUnavailable, err)
	}
	names, err := s.categorySvc.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load categories: %w", domain.ErrUnavailable, err)
	}

	snapshot := domain.Aggregate(donations, names)
	snapshot.Version = version
	snapshot.ComputedAt = s.clock.Now().UTC()
	return &snapshot, nil
}
