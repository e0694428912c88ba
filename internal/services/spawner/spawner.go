package spawner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/astroclash/server/internal/model"
	"github.com/astroclash/server/internal/services/rooms"
)

// TickInterval is how often a room's spawn loop wakes up.
const TickInterval = 500 * time.Millisecond

// loop identifies one spawn loop instance. Begin may replace a room's loop
// while the old one is still winding down, so deregistration compares
// handles rather than going by room id alone.
type loop struct {
	cancel context.CancelFunc
}

// Spawner runs one spawn loop per room with a game underway. A loop ticks
// every TickInterval, asks the room manager to spawn entities, and stops
// itself as soon as the room no longer has an active game. Spawned powerups
// are expired on a timer matching their lifetime. Spawn and expiry events
// reach clients through the manager's event sink.
type Spawner struct {
	manager *rooms.Manager
	logger  *slog.Logger

	mu     sync.Mutex
	active map[model.RoomID]*loop

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Spawner.
func New(manager *rooms.Manager, logger *slog.Logger) *Spawner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Spawner{
		manager: manager,
		logger:  logger.With(slog.String("component", "spawner")),
		active:  make(map[model.RoomID]*loop),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Begin starts the spawn loop for a room. Any loop already registered for
// the room is cancelled and replaced; it may have watched the previous game
// end and be about to exit, and a new game must not be left without a loop.
func (s *Spawner) Begin(roomID model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, running := s.active[roomID]; running {
		old.cancel()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	l := &loop{cancel: cancel}
	s.active[roomID] = l
	s.wg.Add(1)
	go s.run(ctx, roomID, l)

	s.logger.Debug("spawn loop started", slog.String("room", string(roomID)))
}

// Shutdown cancels every loop and waits for them to finish
func (s *Spawner) Shutdown() {
	s.cancel()
	s.wg.Wait()
}

// LoopCount returns the number of live spawn loops
func (s *Spawner) LoopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Spawner) run(ctx context.Context, roomID model.RoomID, l *loop) {
	defer s.wg.Done()
	defer s.stop(roomID, l)

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events, alive := s.manager.SpawnTick(ctx, roomID)
			s.schedulePowerupExpiry(roomID, events)
			if !alive {
				s.logger.Debug("spawn loop stopped - game over",
					slog.String("room", string(roomID)))
				return
			}
		}
	}
}

// schedulePowerupExpiry arms a one-shot expiry timer for each powerup the
// tick produced. If the powerup was collected first, expiry is a no-op.
func (s *Spawner) schedulePowerupExpiry(roomID model.RoomID, events []model.Event) {
	for _, event := range events {
		p, ok := event.Payload.(model.PowerupSpawnedPayload)
		if !ok {
			continue
		}
		id := p.Powerup.ID
		time.AfterFunc(rooms.PowerupLifetime, func() {
			if s.ctx.Err() != nil {
				return
			}
			s.manager.ExpirePowerup(s.ctx, roomID, id)
		})
	}
}

// stop deregisters the loop, but only if it is still the room's current
// one. A replaced loop must not take its successor's registration with it.
func (s *Spawner) stop(roomID model.RoomID, l *loop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.active[roomID]; ok && cur == l {
		l.cancel()
		delete(s.active, roomID)
	}
}
