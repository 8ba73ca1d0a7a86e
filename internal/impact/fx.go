package impact

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/donare/internal/clock"
	"github.com/smallbiznis/donare/internal/config"
	donationdomain "github.com/smallbiznis/donare/internal/donation/domain"
	"github.com/smallbiznis/donare/internal/impact/domain"
	"github.com/smallbiznis/donare/internal/impact/service"
	"github.com/smallbiznis/donare/internal/impact/store"
	"go.uber.org/fx"
)

var Module = fx.Module("impact.service",
	fx.Provide(NewStore),
	fx.Provide(service.NewService),
	fx.Provide(
		func(svc *service.Service) domain.Service { return svc },
		func(svc *service.Service) donationdomain.SnapshotInvalidator { return svc },
	),
)

// NewStore shares the snapshot through Redis when a client is configured so
// every replica observes invalidations.
func NewStore(cfg config.Config, clk clock.Clock, client *redis.Client) domain.Store {
	if client != nil {
		return store.NewRedis(client, cfg.ImpactCacheTTL)
	}
	return store.NewMemory(clk, cfg.ImpactCacheTTL)
}
