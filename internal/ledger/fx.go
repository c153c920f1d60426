package ledger

import (
	"github.com/clubnite/doorman/internal/ledger/repository"
	"github.com/clubnite/doorman/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
