package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/astroclash/server/internal/services/rooms"
)

const (
	// DefaultInterval is how often the reaper sweeps
	DefaultInterval = 5 * time.Minute

	// DefaultRetention is how long an idle room may sit before it is
	// reclaimed
	DefaultRetention = 2 * time.Hour
)

// Reaper periodically sweeps the room store, departing players whose
// connections are gone and closing rooms idle past the retention window.
// Whatever a sweep reclaims reaches clients through the manager's event
// sink.
type Reaper struct {
	manager   *rooms.Manager
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	done      chan struct{}
}

// New creates a reaper with the default interval and retention
func New(manager *rooms.Manager, logger *slog.Logger) *Reaper {
	return &Reaper{
		manager:   manager,
		logger:    logger.With(slog.String("component", "reaper")),
		interval:  DefaultInterval,
		retention: DefaultRetention,
		done:      make(chan struct{}),
	}
}

// Run sweeps on the configured interval until the context is cancelled
func (r *Reaper) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reaper started",
		slog.Duration("interval", r.interval),
		slog.Duration("retention", r.retention))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep
func (r *Reaper) SweepOnce(ctx context.Context) {
	events, err := r.manager.Sweep(ctx, r.retention)
	if err != nil {
		r.logger.Error("sweep failed", slog.Any("error", err))
		return
	}
	if len(events) > 0 {
		r.logger.Info("sweep reclaimed state", slog.Int("events", len(events)))
	}
}

// Wait blocks until a running reaper has exited
func (r *Reaper) Wait() {
	<-r.done
}
