package audit

import (
	"github.com/clubnite/doorman/internal/audit/repository"
	"github.com/clubnite/doorman/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
