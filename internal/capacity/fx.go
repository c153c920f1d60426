package capacity

import (
	"github.com/clubnite/doorman/internal/capacity/repository"
	"github.com/clubnite/doorman/internal/capacity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("capacity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
