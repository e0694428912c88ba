package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/astroclash/server/internal/dependencies/clock"
	"github.com/astroclash/server/internal/dependencies/random"
	"github.com/astroclash/server/internal/registry"
	"github.com/astroclash/server/internal/services/reaper"
	"github.com/astroclash/server/internal/services/rooms"
	"github.com/astroclash/server/internal/services/spawner"
	"github.com/astroclash/server/internal/storage"
	"github.com/astroclash/server/internal/storage/memory"
	redisstorage "github.com/astroclash/server/internal/storage/redis"
	"github.com/astroclash/server/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry    *registry.Registry
	RoomManager *rooms.Manager
	Spawner     *spawner.Spawner
	Reaper      *reaper.Reaper
	HubManager  *ws.HubManager
	WSHandler   *ws.Handler
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	return newWithDependencies(store, clk, rnd, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	reg := registry.New()
	manager := rooms.NewManager(store, reg, clk, rnd, logger)
	hubManager := ws.NewHubManager(logger)
	wsHandler := ws.NewHandler(manager, reg, hubManager, logger)
	manager.SetEventSink(wsHandler)
	spawn := spawner.New(manager, logger)
	wsHandler.SetSpawnStarter(spawn)
	reap := reaper.New(manager, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Registry:    reg,
		RoomManager: manager,
		Spawner:     spawn,
		Reaper:      reap,
		HubManager:  hubManager,
		WSHandler:   wsHandler,
	}
}
