package donation

import (
	"github.com/smallbiznis/donare/internal/donation/event"
	"github.com/smallbiznis/donare/internal/donation/repository"
	"github.com/smallbiznis/donare/internal/donation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("donation.service",
	fx.Provide(repository.Provide),
	fx.Provide(event.ProvideOutbox),
	fx.Provide(service.NewService),
)
