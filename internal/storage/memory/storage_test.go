package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/astroclash/server/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) newRoom(id model.RoomID) *model.Room {
	room := &model.Room{
		ID:        id,
		State:     model.RoomStateWaiting,
		Players:   []model.Player{},
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	room.ResetEntities(room.CreatedAt)
	return room
}

func (s *StorageSuite) TestSaveAndGetRoom() {
	room := s.newRoom("ABCDEF")
	room.Players = append(room.Players, model.Player{ID: "conn-1", Name: "Alice", IsHost: true})
	room.SetHost("conn-1")

	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	got, err := s.storage.GetRoom(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.Equal(room.ID, got.ID)
	s.Equal(model.ConnectionID("conn-1"), got.Host)
	s.Len(got.Players, 1)
}

func (s *StorageSuite) TestGetMissingRoom() {
	_, err := s.storage.GetRoom(s.ctx, "NOSUCH")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestDeleteRoom() {
	s.Require().NoError(s.storage.SaveRoom(s.ctx, s.newRoom("ABCDEF")))
	s.Require().NoError(s.storage.DeleteRoom(s.ctx, "ABCDEF"))

	_, err := s.storage.GetRoom(s.ctx, "ABCDEF")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *StorageSuite) TestDeleteMissingRoomIsNoOp() {
	s.NoError(s.storage.DeleteRoom(s.ctx, "NOSUCH"))
}

func (s *StorageSuite) TestRoomExists() {
	exists, err := s.storage.RoomExists(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.storage.SaveRoom(s.ctx, s.newRoom("ABCDEF")))

	exists, err = s.storage.RoomExists(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestListRooms() {
	s.Require().NoError(s.storage.SaveRoom(s.ctx, s.newRoom("AAAAAA")))
	s.Require().NoError(s.storage.SaveRoom(s.ctx, s.newRoom("BBBBBB")))

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Len(rooms, 2)

	ids := []model.RoomID{rooms[0].ID, rooms[1].ID}
	s.ElementsMatch([]model.RoomID{"AAAAAA", "BBBBBB"}, ids)
}

func (s *StorageSuite) TestListRoomsEmpty() {
	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Empty(rooms)
}
