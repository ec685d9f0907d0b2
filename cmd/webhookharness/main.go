package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/webhookharness/internal/clock"
	"github.com/smallbiznis/webhookharness/internal/config"
	"github.com/smallbiznis/webhookharness/internal/liveevents"
	"github.com/smallbiznis/webhookharness/internal/migration"
	"github.com/smallbiznis/webhookharness/internal/observability"
	"github.com/smallbiznis/webhookharness/internal/secret"
	"github.com/smallbiznis/webhookharness/internal/server"
	"github.com/smallbiznis/webhookharness/internal/webhookevent"
	"github.com/smallbiznis/webhookharness/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// Functional Domains
		secret.Module,
		liveevents.Module,
		webhookevent.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
