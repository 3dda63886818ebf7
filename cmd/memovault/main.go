package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/memovault/memovault/internal/app"
	"github.com/memovault/memovault/internal/config"
	"github.com/memovault/memovault/internal/http/handler"
	"github.com/memovault/memovault/internal/http/router"
	"github.com/memovault/memovault/internal/observability"
	"github.com/memovault/memovault/internal/repository"
	"github.com/memovault/memovault/internal/security"
	"github.com/memovault/memovault/internal/service"
	"github.com/memovault/memovault/internal/storage"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "memovault",
		Short:         "Multi-tenant note service with signed sessions and share links",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to an optional env file")
	cmd.AddCommand(newServeCommand(&envFile))
	return cmd
}

func newServeCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnvFile(*envFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	var runtime *observability.Runtime
	if cfg.OTELMetricsEnabled {
		runtime, err = observability.InitRuntime(ctx, observability.MetricsConfig{
			Enabled:        true,
			Endpoint:       cfg.OTELExporterOTLPEndpoint,
			Insecure:       cfg.OTELExporterOTLPInsecure,
			ServiceName:    cfg.OTELServiceName,
			Environment:    cfg.OTELEnvironment,
			ExportInterval: cfg.OTELMetricsExportInterval,
		}, logger)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
	}

	users := repository.NewUserRepository(db)
	notes := repository.NewNoteRepository(db)
	shares := repository.NewShareRepository(db)
	codes := repository.NewTransferCodeRepository(db)
	meta := repository.NewMetaRepository(db)

	codec := security.NewTokenCodec(cfg.TokenSecret)
	authSvc := service.NewAuthService(users, notes, codes, codec, cfg.AdminBootstrapUser, cfg.AdminBootstrapPasscode)
	noteSvc := service.NewNoteService(notes)
	shareSvc := service.NewShareService(shares, notes, newShareLookupCache(cfg, logger), cfg.PublicBaseURL)
	adminSvc := service.NewAdminService(users, notes)
	cleanupSvc := service.NewCleanupService(shares, meta, cfg.CleanupInterval, cfg.CleanupRetention, logger)

	h := router.New(router.Dependencies{
		Logger:         logger,
		TokenCodec:     codec,
		AuthHandler:    handler.NewAuthHandler(authSvc),
		NoteHandler:    handler.NewNoteHandler(noteSvc),
		ShareHandler:   handler.NewShareHandler(shareSvc),
		AdminHandler:   handler.NewAdminHandler(adminSvc, authSvc, noteSvc, cleanupSvc),
		Sweeper:        cleanupSvc,
		EnableOTelHTTP: cfg.EnableOTelHTTP,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return app.New(cfg, logger, server, runtime).Run(ctx)
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Dev {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newShareLookupCache(cfg *config.Config, logger *slog.Logger) service.ShareLookupCache {
	switch cfg.ShareCacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		logger.Info("share lookup cache", "backend", "redis", "addr", cfg.RedisAddr)
		return service.NewRedisShareLookupCache(client, "")
	case "none":
		return service.NewNoopShareLookupCache()
	default:
		return service.NewInMemoryShareLookupCache()
	}
}
