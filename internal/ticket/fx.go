package ticket

import (
	"github.com/clubnite/doorman/internal/ticket/repository"
	"github.com/clubnite/doorman/internal/ticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
