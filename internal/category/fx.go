package category

import (
	"github.com/smallbiznis/donare/internal/category/repository"
	"github.com/smallbiznis/donare/internal/category/service"
	"go.uber.org/fx"
)

var Module = fx.Module("category.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
