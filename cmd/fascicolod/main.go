package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/studiolegale/fascicolo/internal/config"
	"github.com/studiolegale/fascicolo/internal/extract"
	"github.com/studiolegale/fascicolo/internal/llm/openai"
	"github.com/studiolegale/fascicolo/internal/pipeline"
	"github.com/studiolegale/fascicolo/internal/repository"
	"github.com/studiolegale/fascicolo/internal/web"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:    "fascicolod",
		Usage:   "Legal assistant backend: interview chat, document generation, billing",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(logger),
			migrateCmd(logger),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Action: func(c *cli.Context) error {
			cfg := config.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := repository.Open(c.Context, repository.Config{
				Driver:        cfg.Database.Driver,
				DSN:           cfg.Database.DSN,
				AutoMigrate:   cfg.Database.AutoMigrate,
				MigrationsDir: cfg.Database.MigrationsDir,
				DialTimeout:   cfg.Database.DialTimeout,
			}, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			provider := openai.NewClient(openai.Config{
				APIKey:  cfg.LLM.APIKey,
				BaseURL: cfg.LLM.BaseURL,
				Timeout: cfg.LLM.Timeout,
			}, logger)

			orch := pipeline.NewOrchestrator(provider, store, logger)
			orch.SelectModel(c.Context, cfg.LLM.PreferredModels)
			if orch.Model() == "" {
				logger.Warn("main.no_model", "hint", "chat and generation will answer with error payloads")
			}

			extractor := extract.NewExtractor(extract.Config{
				Pdftotext: cfg.Extract.Pdftotext,
				MaxBytes:  cfg.Extract.MaxBytes,
			}, logger)

			srv := web.NewServer(store, orch, extractor, cfg.Server.Addr, logger)
			return web.Run(srv, logger)
		},
	}
}

func migrateCmd(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg := config.LoadConfig()
			if cfg.Database.DSN == "" {
				return fmt.Errorf("DB_DSN is required")
			}

			store, err := repository.Open(context.Background(), repository.Config{
				Driver:        cfg.Database.Driver,
				DSN:           cfg.Database.DSN,
				AutoMigrate:   true,
				MigrationsDir: cfg.Database.MigrationsDir,
				DialTimeout:   cfg.Database.DialTimeout,
			}, logger)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer store.Close()

			logger.Info("main.migrated", "driver", cfg.Database.Driver)
			return nil
		},
	}
}
