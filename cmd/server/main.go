package main

import (
	"wikigraph/internal/server"
	"wikigraph/internal/util"
	"wikigraph/pkg/logger"
	"wikigraph/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
