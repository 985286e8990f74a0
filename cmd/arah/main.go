// Command arah is the academic assistant CLI.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/arah-ai/arah/internal/adapters/driven/config"
	"github.com/arah-ai/arah/internal/adapters/driving/cli"
	"github.com/arah-ai/arah/internal/bootstrap"
	"github.com/arah-ai/arah/internal/logger"
)

// version is set by the release build via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetLoader(load)
	cli.SetConfigWriter(config.SetAt)

	if err := cli.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("%v", err)
		}
		os.Exit(1)
	}
}

// load assembles the application and exposes it to the commands.
func load(ctx context.Context, configPath string) (*cli.Services, error) {
	app, err := bootstrap.New(ctx, bootstrap.Options{ConfigPath: configPath})
	if err != nil {
		return nil, err
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	if _, err := app.Prompts.Watch(watchCtx); err != nil {
		logger.Debug("prompt hot reload disabled: %v", err)
	}

	entries := config.Describe(app.Config)
	cfgEntries := make([]cli.ConfigEntry, len(entries))
	for i, e := range entries {
		cfgEntries[i] = cli.ConfigEntry{Key: e.Key, Value: e.Value}
	}

	return &cli.Services{
		Answer:    app.Answer,
		Documents: app.Documents,
		Grade:     app.Grade,
		Reports:   app.Reports,
		Config:    cfgEntries,
		Warnings:  app.Warnings,
		Check: func(ctx context.Context) ([]cli.ProviderStatus, error) {
			results, err := app.CheckProviders(ctx)
			out := make([]cli.ProviderStatus, len(results))
			for i, r := range results {
				out[i] = cli.ProviderStatus{Provider: string(r.Provider), Err: r.Err}
			}
			return out, err
		},
		Close: func() error {
			stopWatch()
			return app.Close()
		},
	}, nil
}
