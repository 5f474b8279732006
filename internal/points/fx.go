package points

import (
	"github.com/smallbiznis/cielo/internal/points/repository"
	"github.com/smallbiznis/cielo/internal/points/service"
	"go.uber.org/fx"
)

var Module = fx.Module("points.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
