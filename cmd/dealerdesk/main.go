package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/rubicondrive/dealerdesk/internal/clock"
	"github.com/rubicondrive/dealerdesk/internal/config"
	"github.com/rubicondrive/dealerdesk/internal/migration"
	"github.com/rubicondrive/dealerdesk/internal/observability"
	"github.com/rubicondrive/dealerdesk/internal/server"
	"github.com/rubicondrive/dealerdesk/internal/viewcache"
	"github.com/rubicondrive/dealerdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		viewcache.Module,
		migration.Module,

		// HTTP API and the domain modules behind it
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
