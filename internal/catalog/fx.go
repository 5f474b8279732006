package catalog

import (
	"github.com/smallbiznis/cielo/internal/cache"
	"github.com/smallbiznis/cielo/internal/catalog/repository"
	"github.com/smallbiznis/cielo/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(cache.NewPointsResolverCache),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
