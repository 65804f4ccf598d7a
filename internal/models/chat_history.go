package models

import "gorm.io/gorm"

// ChatHistory is a persisted chat message row in the development backend.
// The embedded gorm.Model supplies the primary key that becomes the wire
// message_id.
type ChatHistory struct {
	gorm.Model

	// RoomID is the room the message was sent in.
	RoomID string `gorm:"type:text;not null;index:idx_room_msg"`
	// SenderID is the id of the authenticated sender.
	SenderID string `gorm:"type:text;not null;index:idx_room_msg"`
	// SenderRole is the canonical sender role string.
	SenderRole string `gorm:"type:text;not null"`
	// SenderName is the sender's display name, if any.
	SenderName string `gorm:"type:text"`
	// Content is the message text.
	Content string `gorm:"type:text;not null"`
	// Kind is the message kind ("text", "image", "file").
	Kind string `gorm:"type:text;not null"`
	// Timestamp is milliseconds since epoch, stamped at ingestion.
	Timestamp int64 `gorm:"not null;index"`
	// Read is whether the customer has seen this message. Only meaningful
	// on staff-authored rows.
	Read bool `gorm:"not null;default:false"`
}
