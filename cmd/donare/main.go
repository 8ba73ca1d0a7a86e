package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donare/internal/audit"
	"github.com/smallbiznis/donare/internal/auditrelay"
	"github.com/smallbiznis/donare/internal/authorization"
	"github.com/smallbiznis/donare/internal/category"
	"github.com/smallbiznis/donare/internal/clock"
	"github.com/smallbiznis/donare/internal/config"
	"github.com/smallbiznis/donare/internal/donation"
	"github.com/smallbiznis/donare/internal/impact"
	"github.com/smallbiznis/donare/internal/migration"
	"github.com/smallbiznis/donare/internal/observability"
	"github.com/smallbiznis/donare/internal/ratelimit"
	"github.com/smallbiznis/donare/internal/server"
	"github.com/smallbiznis/donare/pkg/db"
	"github.com/smallbiznis/donare/pkg/redisclient"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.WithLogger(observability.FxLogger),

		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redisclient.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		authorization.Module,
		audit.Module,
		category.Module,
		donation.Module,
		impact.Module,
		ratelimit.Module,
		auditrelay.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
