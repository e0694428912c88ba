package rooms

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/astroclash/server/internal/model"
)

// Spawn tuning. Coordinates are in the authoritative 800x600 play area.
const (
	// AsteroidSpawnInterval is the minimum time between asteroid spawns
	AsteroidSpawnInterval = 2 * time.Second
	// PowerupSpawnInterval is the minimum time between powerup spawn rolls
	PowerupSpawnInterval = 1 * time.Second
	// MaxAsteroids caps the live asteroid population per room
	MaxAsteroids = 15
	// PowerupLifetime is how long an uncollected powerup survives
	PowerupLifetime = 10 * time.Second

	asteroidMinSpeed  = 40.0
	asteroidMaxSpeed  = 120.0
	asteroidMinRadius = 15.0
	asteroidMaxRadius = 40.0
)

// SpawnTick runs one entity-spawner tick for the room. It returns the spawn
// events to broadcast and whether the spawner should keep ticking; once it
// returns false the room is gone or its game is over, permanently.
func (m *Manager) SpawnTick(ctx context.Context, roomID model.RoomID) ([]model.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, false
	}
	if !room.State.Active() {
		return nil, false
	}
	// Paused games keep their spawner alive but spawn nothing
	if room.State == model.RoomStatePaused {
		return nil, true
	}

	now := m.clock.Now()
	var events []model.Event

	if now.Sub(room.LastAsteroidSpawn) >= AsteroidSpawnInterval && len(room.Asteroids) < MaxAsteroids {
		asteroid := m.newAsteroidAtEdge(room.NextAsteroidID(), now)
		room.Asteroids[asteroid.ID] = asteroid
		room.LastAsteroidSpawn = now
		events = append(events, model.Event{
			Type:    model.EventAsteroidSpawned,
			RoomID:  room.ID,
			Payload: model.AsteroidSpawnedPayload{Asteroid: *asteroid},
		})
	}

	if now.Sub(room.LastPowerupSpawn) >= PowerupSpawnInterval {
		room.LastPowerupSpawn = now
		if m.random.Intn(2) == 0 {
			powerup := m.newPowerup(room.NextPowerupID(), now)
			room.Powerups[powerup.ID] = powerup
			events = append(events, model.Event{
				Type:    model.EventPowerupSpawned,
				RoomID:  room.ID,
				Payload: model.PowerupSpawnedPayload{Powerup: *powerup},
			})
		}
	}

	if err := m.store.SaveRoom(ctx, room); err != nil {
		m.logger.Error("failed to save room after spawn tick",
			slog.String("room", string(room.ID)),
			slog.Any("error", err))
		return nil, true
	}

	m.emit(events)
	return events, true
}

// ExpirePowerup removes a powerup that reached its lifetime. A no-op if the
// room is gone or the powerup was already collected.
func (m *Manager) ExpirePowerup(
	ctx context.Context,
	roomID model.RoomID,
	id model.EntityID,
) []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil
	}
	if _, ok := room.Powerups[id]; !ok {
		return nil
	}

	delete(room.Powerups, id)
	if err := m.store.SaveRoom(ctx, room); err != nil {
		m.logger.Error("failed to save room after powerup expiry",
			slog.String("room", string(room.ID)),
			slog.Any("error", err))
		return nil
	}

	events := []model.Event{{
		Type:   model.EventEntityExpired,
		RoomID: room.ID,
		Payload: model.EntityExpiredPayload{
			EntityType: model.EntityPowerup,
			ID:         id,
		},
	}}
	m.emit(events)
	return events
}

// newAsteroidAtEdge creates an asteroid at a random play-area edge, aimed
// roughly at the center with up to ±45° of variation.
func (m *Manager) newAsteroidAtEdge(id model.EntityID, now time.Time) *model.Asteroid {
	var x, y float64
	switch m.random.Intn(4) {
	case 0: // Top
		x = m.random.Float64() * model.WorldWidth
		y = 0
	case 1: // Bottom
		x = m.random.Float64() * model.WorldWidth
		y = model.WorldHeight
	case 2: // Left
		x = 0
		y = m.random.Float64() * model.WorldHeight
	case 3: // Right
		x = model.WorldWidth
		y = m.random.Float64() * model.WorldHeight
	}

	angle := math.Atan2(model.WorldHeight/2-y, model.WorldWidth/2-x)
	angle += (m.random.Float64() - 0.5) * math.Pi / 2

	speed := asteroidMinSpeed + m.random.Float64()*(asteroidMaxSpeed-asteroidMinSpeed)
	radius := asteroidMinRadius + m.random.Float64()*(asteroidMaxRadius-asteroidMinRadius)
	rotation := (m.random.Float64() - 0.5) * 2.0

	return &model.Asteroid{
		ID:            id,
		X:             x,
		Y:             y,
		VX:            math.Cos(angle) * speed,
		VY:            math.Sin(angle) * speed,
		Radius:        radius,
		RotationSpeed: rotation,
		SpawnedAt:     now,
	}
}

// newPowerup creates a powerup at a uniformly random interior position with
// a uniformly chosen type.
func (m *Manager) newPowerup(id model.EntityID, now time.Time) *model.Powerup {
	return &model.Powerup{
		ID:        id,
		X:         m.random.Float64() * model.WorldWidth,
		Y:         m.random.Float64() * model.WorldHeight,
		Type:      model.PowerupTypes[m.random.Intn(len(model.PowerupTypes))],
		SpawnedAt: now,
	}
}
