package factory

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/astroclash/server/internal/model"
)

// wireClient stands in for a websocket connection, capturing every frame
// the server pushes at it
type wireClient struct {
	id model.ConnectionID

	mu     sync.Mutex
	frames [][]byte
}

func (c *wireClient) ID() model.ConnectionID { return c.id }

func (c *wireClient) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return true
}

func (c *wireClient) types(t *testing.T) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.frames))
	for i, data := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("bad frame %q: %v", data, err)
		}
		types[i] = env.Type
	}
	return types
}

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.app.Spawner.Shutdown()
}

// connect registers a client the way the websocket upgrade path would
func (s *IntegrationSuite) connect(id model.ConnectionID) *wireClient {
	c := &wireClient{id: id}
	s.app.Registry.Add(id)
	s.app.HubManager.AddClient(c)
	return c
}

func (s *IntegrationSuite) send(c *wireClient, raw string) {
	s.app.WSHandler.HandleMessage(c, []byte(raw))
}

// Test: full session from room creation through game start, relay, and quit,
// driven entirely through the wired message handler
func (s *IntegrationSuite) TestFullSessionFlow() {
	s.app.MockRandom.QueueString("ABCDEF")

	alice := s.connect("conn-alice")
	s.send(alice, `{"type":"room_join","payload":{"name":"Alice","color":"red"}}`)

	bob := s.connect("conn-bob")
	s.send(bob, `{"type":"room_join","payload":{"name":"Bob","roomId":"ABCDEF"}}`)

	s.Equal([]string{"room_joined", "room_player_joined"}, alice.types(s.T()))
	s.Equal([]string{"room_joined"}, bob.types(s.T()))

	// Host starts the game; both players get the broadcast and the real
	// spawn loop comes up for the room
	s.send(alice, `{"type":"game_start"}`)
	s.Contains(alice.types(s.T()), "game_start")
	s.Contains(bob.types(s.T()), "game_start")
	s.Equal(1, s.app.Spawner.LoopCount())

	// State updates relay peer to peer while the game runs
	s.send(alice, `{"type":"player_update","payload":{"x":10,"y":20}}`)
	s.Contains(bob.types(s.T()), "player_update")
	s.NotContains(alice.types(s.T()), "player_update")

	// Bob quits; with one player left the game ends for everyone
	s.send(bob, `{"type":"game_action","payload":{"action":"quit"}}`)
	s.Contains(alice.types(s.T()), "game_end")

	room, err := s.app.Storage.GetRoom(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.Equal(model.RoomStateEnded, room.State)
	s.Len(room.Players, 1)
}

// Test: a dropped host connection closes a waiting room
func (s *IntegrationSuite) TestDisconnectRunsDeparturePolicy() {
	s.app.MockRandom.QueueString("ABCDEF")

	alice := s.connect("conn-alice")
	s.send(alice, `{"type":"room_join","payload":{"name":"Alice"}}`)
	bob := s.connect("conn-bob")
	s.send(bob, `{"type":"room_join","payload":{"name":"Bob","roomId":"ABCDEF"}}`)

	s.app.WSHandler.HandleDisconnect(alice)

	s.Contains(bob.types(s.T()), "room_closed")
	_, err := s.app.Storage.GetRoom(s.ctx, "ABCDEF")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Test: the reaper publishes room closure through the same handler path
func (s *IntegrationSuite) TestSweepNotifiesSurvivors() {
	s.app.MockRandom.QueueString("ABCDEF")

	alice := s.connect("conn-alice")
	s.send(alice, `{"type":"room_join","payload":{"name":"Alice"}}`)
	bob := s.connect("conn-bob")
	s.send(bob, `{"type":"room_join","payload":{"name":"Bob","roomId":"ABCDEF"}}`)

	s.app.MockClock.Advance(3 * time.Hour)
	s.app.Reaper.SweepOnce(s.ctx)

	s.Contains(alice.types(s.T()), "room_closed")
	s.Contains(bob.types(s.T()), "room_closed")
}

func TestNewDefaultsToMemoryStorage(t *testing.T) {
	app, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if app.Storage == nil || app.RoomManager == nil || app.WSHandler == nil {
		t.Fatal("expected fully wired app")
	}
}

func TestNewRedisRequiresConfig(t *testing.T) {
	_, err := New(Config{StorageType: StorageTypeRedis})
	if err == nil {
		t.Fatal("expected error for redis storage without config")
	}
}

func TestNewRejectsUnknownStorageType(t *testing.T) {
	_, err := New(Config{StorageType: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}
