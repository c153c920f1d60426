package club

import (
	"github.com/clubnite/doorman/internal/club/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("club.registry",
	fx.Provide(repository.Provide),
)
