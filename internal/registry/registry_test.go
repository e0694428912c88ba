package registry

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/astroclash/server/internal/model"
)

type RegistrySuite struct {
	suite.Suite
	reg *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.reg = New()
}

func (s *RegistrySuite) TestNewConnectionIDsAreUnique() {
	ids := map[model.ConnectionID]bool{}
	for i := 0; i < 100; i++ {
		id := NewConnectionID()
		s.False(ids[id])
		ids[id] = true
	}
}

func (s *RegistrySuite) TestAddRemoveLiveness() {
	s.False(s.reg.IsLive("conn-1"))

	s.reg.Add("conn-1")
	s.True(s.reg.IsLive("conn-1"))
	s.Equal(1, s.reg.Count())

	s.reg.Remove("conn-1")
	s.False(s.reg.IsLive("conn-1"))
	s.Equal(0, s.reg.Count())
}

func (s *RegistrySuite) TestRoomAssociation() {
	s.reg.Add("conn-1")

	_, ok := s.reg.Room("conn-1")
	s.False(ok)

	s.reg.SetRoom("conn-1", "ABCDEF", "Alice")

	roomID, ok := s.reg.Room("conn-1")
	s.True(ok)
	s.Equal(model.RoomID("ABCDEF"), roomID)
	s.Equal("Alice", s.reg.Name("conn-1"))
}

func (s *RegistrySuite) TestClearRoomKeepsName() {
	s.reg.Add("conn-1")
	s.reg.SetRoom("conn-1", "ABCDEF", "Alice")
	s.reg.ClearRoom("conn-1")

	_, ok := s.reg.Room("conn-1")
	s.False(ok)
	s.True(s.reg.IsLive("conn-1"))
	// Departure broadcasts still need the label after detach
	s.Equal("Alice", s.reg.Name("conn-1"))
}

func (s *RegistrySuite) TestSetRoomOnUnknownConnectionIsNoOp() {
	s.reg.SetRoom("ghost", "ABCDEF", "Ghost")
	_, ok := s.reg.Room("ghost")
	s.False(ok)
	s.False(s.reg.IsLive("ghost"))
}
