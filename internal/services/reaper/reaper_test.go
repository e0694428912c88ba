package reaper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/astroclash/server/internal/dependencies/mocks"
	"github.com/astroclash/server/internal/model"
	"github.com/astroclash/server/internal/registry"
	"github.com/astroclash/server/internal/services/rooms"
	"github.com/astroclash/server/internal/storage/memory"
	"github.com/astroclash/server/internal/testutil"
)

type collectSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *collectSink) PublishEvents(events []model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
}

func (c *collectSink) all() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Event(nil), c.events...)
}

type ReaperSuite struct {
	suite.Suite
	ctx     context.Context
	reg     *registry.Registry
	manager *rooms.Manager
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	sink    *collectSink
	reaper  *Reaper
}

func TestReaperSuite(t *testing.T) {
	suite.Run(t, new(ReaperSuite))
}

func (s *ReaperSuite) SetupTest() {
	s.ctx = context.Background()
	store := memory.New()
	s.reg = registry.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.manager = rooms.NewManager(store, s.reg, s.clock, s.random, testutil.NopLogger())
	s.sink = &collectSink{}
	s.reaper = New(s.manager, testutil.NopLogger())
}

func (s *ReaperSuite) newRoom(code string, ids ...model.ConnectionID) {
	s.random.QueueString(code)
	for i, id := range ids {
		s.reg.Add(id)
		roomCode := ""
		if i > 0 {
			roomCode = code
		}
		_, err := s.manager.JoinRoom(s.ctx, id, string(id), roomCode, "")
		s.Require().NoError(err)
	}
	// Attach the sink after the joins so it only collects sweep fallout
	s.manager.SetEventSink(s.sink)
}

func (s *ReaperSuite) TestSweepOnceIsQuietWhenNothingToReclaim() {
	s.newRoom("ABCDEF", "alice", "bob")
	s.reaper.SweepOnce(s.ctx)
	s.Empty(s.sink.all())
}

func (s *ReaperSuite) TestSweepOncePublishesReclaimedRooms() {
	s.newRoom("ABCDEF", "alice", "bob")
	s.clock.Advance(DefaultRetention + time.Minute)

	s.reaper.SweepOnce(s.ctx)

	events := s.sink.all()
	s.Require().Len(events, 1)
	s.Equal(model.EventRoomClosed, events[0].Type)
}

func (s *ReaperSuite) TestSweepOnceDepartsDeadConnections() {
	s.newRoom("ABCDEF", "alice", "bob", "carol")
	_, err := s.manager.StartGame(s.ctx, "alice")
	s.Require().NoError(err)
	s.reg.Remove("bob")

	s.reaper.SweepOnce(s.ctx)

	var types []model.EventType
	for _, e := range s.sink.all() {
		types = append(types, e.Type)
	}
	s.Contains(types, model.EventPlayerLeft)
}

func (s *ReaperSuite) TestRunSweepsUntilCancelled() {
	s.reaper.interval = 10 * time.Millisecond
	s.newRoom("ABCDEF", "alice", "bob")
	s.clock.Advance(DefaultRetention + time.Minute)

	ctx, cancel := context.WithCancel(s.ctx)
	go s.reaper.Run(ctx)

	s.Eventually(func() bool {
		return len(s.sink.all()) > 0
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	s.reaper.Wait()
}
