package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/astroclash/server/internal/api"
	"github.com/astroclash/server/internal/factory"
	redisstorage "github.com/astroclash/server/internal/storage/redis"
)

func newServeCmd() *cobra.Command {
	var (
		port        int
		storageType string
		redisURL    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, storageType, redisURL)
		},
	}

	cmd.Flags().IntVar(&port, "port", defaultPort(), "Listen port (env: PORT)")
	cmd.Flags().StringVar(&storageType, "storage", getEnvOrDefault("STORAGE_TYPE", factory.StorageTypeMemory),
		"Storage backend: memory, redis (env: STORAGE_TYPE)")
	cmd.Flags().StringVar(&redisURL, "redis-url", os.Getenv("REDIS_URL"),
		"Redis connection URL, required with --storage=redis (env: REDIS_URL)")

	return cmd
}

func runServe(port int, storageType, redisURL string) error {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := factory.Config{
		Logger:      logger,
		StorageType: storageType,
	}
	if storageType == factory.StorageTypeRedis {
		if redisURL == "" {
			logger.Error("redis URL required when storage is redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		WSHandler: app.WSHandler,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = port
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Reap idle rooms and dead connections in the background
	go app.Reaper.Run(ctx)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		app.Spawner.Shutdown()
		app.Reaper.Wait()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
	return nil
}

func defaultPort() int {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			return port
		}
	}
	return 8080
}
