package main

import (
	"context"
	"os"

	"github.com/locvowork/wage_calculator/internal/bootstrap"
	"github.com/locvowork/wage_calculator/internal/config"
	"github.com/locvowork/wage_calculator/internal/logger"
)

func main() {
	ctx := context.Background()

	app := bootstrap.NewApp()
	if err := app.Initialize(ctx); err != nil {
		logger.ErrorLog(ctx, "Failed to initialize application: %v", err)
		os.Exit(1)
	}

	logger.InfoLog(ctx, "Wage calculator listening on port %s", config.DefaultEnvConfig.APP_PORT)
	if err := app.Run(ctx); err != nil {
		logger.ErrorLog(ctx, "Server stopped: %v", err)
		os.Exit(1)
	}
	logger.InfoLog(ctx, "Server stopped")
}
