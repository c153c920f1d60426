package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"github.com/clubnite/doorman/internal/audit"
	"github.com/clubnite/doorman/internal/capacity"
	"github.com/clubnite/doorman/internal/clock"
	"github.com/clubnite/doorman/internal/club"
	"github.com/clubnite/doorman/internal/config"
	"github.com/clubnite/doorman/internal/ledger"
	"github.com/clubnite/doorman/internal/migration"
	"github.com/clubnite/doorman/internal/observability"
	"github.com/clubnite/doorman/internal/reconciliation"
	"github.com/clubnite/doorman/internal/room"
	"github.com/clubnite/doorman/internal/server"
	"github.com/clubnite/doorman/internal/ticket"
	"github.com/clubnite/doorman/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		room.Module,
		club.Module,
		audit.Module,
		ledger.Module,
		capacity.Module,
		ticket.Module,
		reconciliation.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		log.Printf("snowflake node init failed: %v", err)
		return nil, err
	}
	return node, nil
}
