package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/astroclash/server/internal/testutil"
)

type ClientSuite struct {
	suite.Suite
	client *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.client = NewClient("conn-1", nil, testutil.NopLogger())
}

func (s *ClientSuite) TestSendEnqueuesFrame() {
	s.True(s.client.Send([]byte("hello")))
	s.Equal([]byte("hello"), <-s.client.send)
}

func (s *ClientSuite) TestSendDropsWhenBufferFull() {
	for i := 0; i < sendBufferSize; i++ {
		s.Require().True(s.client.Send([]byte("frame")))
	}
	s.False(s.client.Send([]byte("overflow")))
}

func (s *ClientSuite) TestSendAfterDisconnectReportsDropped() {
	s.client.closeSend()
	s.NotPanics(func() {
		s.False(s.client.Send([]byte("late")))
	})
}

func (s *ClientSuite) TestCloseSendIsIdempotent() {
	s.NotPanics(func() {
		s.client.closeSend()
		s.client.closeSend()
	})
}

// A broadcast racing the disconnect path must drop the frame, not panic.
func (s *ClientSuite) TestConcurrentSendAndDisconnect() {
	s.NotPanics(func() {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 200; j++ {
					s.client.Send([]byte("frame"))
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.client.closeSend()
		}()
		wg.Wait()
	})
}
