package main

import (
	"context"
	"os"

	"github.com/keygate/keygate/adapter/cli"
	cliAdmin "github.com/keygate/keygate/adapter/cli/admin"
	cliLicense "github.com/keygate/keygate/adapter/cli/license"
	"github.com/keygate/keygate/internal/app"
	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			// Commands that do not touch storage still work.
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()
		cli.SetContainer(container)
		cliLicense.SetService(container.LicenseService)
		cliAdmin.SetRepository(container.AdminRepo)
	}

	cli.SetLogger(logger)
	cli.AddCommand(cliLicense.Cmd)
	cli.AddCommand(cliAdmin.Cmd)
	cli.Execute()
}
