package spawner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/astroclash/server/internal/dependencies/mocks"
	"github.com/astroclash/server/internal/model"
	"github.com/astroclash/server/internal/registry"
	"github.com/astroclash/server/internal/services/rooms"
	"github.com/astroclash/server/internal/storage/memory"
	"github.com/astroclash/server/internal/testutil"
)

// collectSink gathers published events for assertions
type collectSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *collectSink) PublishEvents(events []model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

func (c *collectSink) types() []model.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]model.EventType, len(c.events))
	for i, e := range c.events {
		types[i] = e.Type
	}
	return types
}

type SpawnerSuite struct {
	suite.Suite
	ctx     context.Context
	manager *rooms.Manager
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	sink    *collectSink
	spawner *Spawner
	roomID  model.RoomID
}

func TestSpawnerSuite(t *testing.T) {
	suite.Run(t, new(SpawnerSuite))
}

func (s *SpawnerSuite) SetupTest() {
	s.ctx = context.Background()
	store := memory.New()
	reg := registry.New()
	// A frozen clock keeps the spawn intervals unelapsed, so ticks are
	// observable without producing entities
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.manager = rooms.NewManager(store, reg, s.clock, s.random, testutil.NopLogger())
	s.spawner = New(s.manager, testutil.NopLogger())

	s.random.QueueString("ABCDEF")
	for _, id := range []model.ConnectionID{"alice", "bob"} {
		reg.Add(id)
	}
	res, err := s.manager.JoinRoom(s.ctx, "alice", "alice", "", "")
	s.Require().NoError(err)
	s.roomID = res.Room.ID
	_, err = s.manager.JoinRoom(s.ctx, "bob", "bob", "ABCDEF", "")
	s.Require().NoError(err)
	_, err = s.manager.StartGame(s.ctx, "alice")
	s.Require().NoError(err)

	// Attach the sink after setup so only spawn loop events are collected
	s.sink = &collectSink{}
	s.manager.SetEventSink(s.sink)
}

func (s *SpawnerSuite) TearDownTest() {
	s.spawner.Shutdown()
}

// A second Begin replaces the room's loop, and the cancelled one must not
// deregister its successor on the way out.
func (s *SpawnerSuite) TestBeginReplacesExistingLoop() {
	s.spawner.Begin(s.roomID)
	s.spawner.Begin(s.roomID)
	s.Equal(1, s.spawner.LoopCount())

	require.Never(s.T(), func() bool {
		return s.spawner.LoopCount() == 0
	}, 1500*time.Millisecond, 50*time.Millisecond)
}

// A game ending and immediately restarting must end up with a live loop
// even if the old loop is still winding down when Begin runs.
func (s *SpawnerSuite) TestRestartedGameKeepsSpawning() {
	s.spawner.Begin(s.roomID)

	_, err := s.manager.EndGame(s.ctx, "alice")
	s.Require().NoError(err)
	_, err = s.manager.RestartGame(s.ctx, "alice", true)
	s.Require().NoError(err)
	_, err = s.manager.StartGame(s.ctx, "alice")
	s.Require().NoError(err)
	s.spawner.Begin(s.roomID)

	require.Never(s.T(), func() bool {
		return s.spawner.LoopCount() == 0
	}, 1500*time.Millisecond, 50*time.Millisecond)
}

func (s *SpawnerSuite) TestLoopStopsWhenGameEnds() {
	s.spawner.Begin(s.roomID)
	s.Equal(1, s.spawner.LoopCount())

	_, err := s.manager.EndGame(s.ctx, "alice")
	s.Require().NoError(err)

	require.Eventually(s.T(), func() bool {
		return s.spawner.LoopCount() == 0
	}, 3*time.Second, 50*time.Millisecond)
}

func (s *SpawnerSuite) TestLoopStopsWhenRoomDisappears() {
	s.spawner.Begin(s.roomID)

	_, err := s.manager.LeaveRoom(s.ctx, "alice", rooms.DepartLeave)
	s.Require().NoError(err)
	_, err = s.manager.LeaveRoom(s.ctx, "bob", rooms.DepartLeave)
	s.Require().NoError(err)

	require.Eventually(s.T(), func() bool {
		return s.spawner.LoopCount() == 0
	}, 3*time.Second, 50*time.Millisecond)
}

func (s *SpawnerSuite) TestTickEventsReachTheSink() {
	// Let the intervals elapse so the first tick spawns an asteroid
	s.clock.Advance(rooms.AsteroidSpawnInterval)
	s.random.QueueIntn(0, 1)
	s.random.QueueFloat64(0.5, 0.5, 0.5, 0.5, 0.5)

	s.spawner.Begin(s.roomID)

	require.Eventually(s.T(), func() bool {
		for _, t := range s.sink.types() {
			if t == model.EventAsteroidSpawned {
				return true
			}
		}
		return false
	}, 3*time.Second, 50*time.Millisecond)
}

func (s *SpawnerSuite) TestShutdownStopsAllLoops() {
	s.spawner.Begin(s.roomID)
	s.spawner.Shutdown()
	s.Equal(0, s.spawner.LoopCount())
}
