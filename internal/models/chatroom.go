package models

import "time"

// ChatRoom is a support conversation between one customer and one support
// agent, as tracked by the development backend.
type ChatRoom struct {
	// RoomID is the unique identifier for the room (UUID).
	RoomID string `gorm:"primaryKey"`
	// CustomerID is the id of the customer in the room.
	CustomerID string
	// AgentID is the id of the assigned support agent, empty until one is
	// assigned.
	AgentID string
	// IsActive indicates whether the room is currently open.
	IsActive bool
	// StartedAt is when the room was created.
	StartedAt time.Time
	// EndedAt is when the room was closed.
	EndedAt time.Time
}
