package rooms

import (
	"context"
	"log/slog"
	"time"

	"github.com/astroclash/server/internal/model"
)

// Sweep removes state the normal protocol flow failed to clean up: rooms
// past the retention window and roster entries whose connections are no
// longer live. Dead players are departed through the regular departure
// policy, so a sweep can never contradict it — ghost rooms drain to empty
// and get deleted, host departures promote the earliest live joiner, and
// waiting rooms left with one player close.
func (m *Manager) Sweep(ctx context.Context, retention time.Duration) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	var events []model.Event

	for _, room := range all {
		if !room.State.Active() && now.Sub(room.CreatedAt) > retention {
			events = append(events, m.closeRoom(ctx, room, model.CloseReasonExpired, ""))
			continue
		}

		var dead []model.ConnectionID
		for _, p := range room.Players {
			if !m.registry.IsLive(p.ID) {
				dead = append(dead, p.ID)
			}
		}
		if len(dead) == 0 {
			continue
		}

		m.logger.Info("sweeping dead connections",
			slog.String("room", string(room.ID)),
			slog.Int("dead", len(dead)),
			slog.Int("roster", len(room.Players)))

		for _, id := range dead {
			departEvents, deleted, err := m.depart(ctx, room, id, DepartDisconnect)
			if err != nil {
				return events, err
			}
			events = append(events, departEvents...)
			if deleted {
				break
			}
		}
	}

	m.emit(events)
	return events, nil
}
