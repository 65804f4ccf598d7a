package chathub

import "github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"

// Client is one active connection to the development backend. It abstracts
// the transport so the hub can treat websocket connections and test fakes
// uniformly.
type Client interface {
	// UserID returns the authenticated user id for the connection.
	UserID() string
	// Name returns the display name to stamp on outbound messages.
	Name() string
	// Role returns the sender role established at authentication.
	Role() models.SenderRole
	// RoomID returns the room the client is scoped to, "" when unassigned.
	RoomID() string
	// SetRoomID scopes the client to a room, typically set by the assigner.
	SetRoomID(roomID string)

	// SendChannel is where the hub places frames destined for this client.
	SendChannel() chan<- models.Frame

	// Run starts the client's pumps.
	Run()
	// Close shuts the client's send side down.
	Close()
}
