package chathub_test

import (
	"sync"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
)

// fakeClient is a channel-backed Client for hub tests.
type fakeClient struct {
	id   string
	name string
	role models.SenderRole
	send chan models.Frame

	mu     sync.Mutex
	room   string
	closed bool
}

func newFakeClient(id string, role models.SenderRole, room string) *fakeClient {
	return &fakeClient{
		id:   id,
		name: "user " + id,
		role: role,
		room: room,
		send: make(chan models.Frame, 8),
	}
}

func (c *fakeClient) UserID() string          { return c.id }
func (c *fakeClient) Name() string            { return c.name }
func (c *fakeClient) Role() models.SenderRole { return c.role }

func (c *fakeClient) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *fakeClient) SetRoomID(roomID string) {
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()
}

func (c *fakeClient) SendChannel() chan<- models.Frame { return c.send }
func (c *fakeClient) Run()                             {}

func (c *fakeClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
