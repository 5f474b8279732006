package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cielo/internal/clock"
	"github.com/smallbiznis/cielo/internal/config"
	"github.com/smallbiznis/cielo/internal/logger"
	"github.com/smallbiznis/cielo/internal/migration"
	"github.com/smallbiznis/cielo/internal/server"
	"github.com/smallbiznis/cielo/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
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
