package room

import (
	"github.com/clubnite/doorman/internal/room/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("room.registry",
	fx.Provide(repository.Provide),
)
