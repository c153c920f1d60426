package reconciliation

import (
	"github.com/clubnite/doorman/internal/reconciliation/repository"
	"github.com/clubnite/doorman/internal/reconciliation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciliation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
