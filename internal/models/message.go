package models

import "strings"

// SenderRole identifies who authored a chat message.
type SenderRole string

const (
	RoleCustomer   SenderRole = "customer"
	RoleAdmin      SenderRole = "admin"
	RoleSuperAdmin SenderRole = "super_admin"
)

// ParseSenderRole folds the role strings seen on the wire into one canonical
// value. The backend has historically emitted both "superadmin" and
// "super admin" for the same role, and history rows use "user" instead of
// "customer"; all of that is normalized here, once, so nothing downstream
// ever branches on a raw string.
func ParseSenderRole(raw string) SenderRole {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin
	case "super_admin", "superadmin", "super admin":
		return RoleSuperAdmin
	default:
		return RoleCustomer
	}
}

// IsStaff reports whether the role belongs to support staff. Staff-authored
// messages are the ones that count toward the unread badge and the only ones
// a read-marking pass touches.
func (r SenderRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// MessageKind indicates the kind of message payload.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// ChatMessage is a single message unit as cached on the client.
type ChatMessage struct {
	// ID is unique within a room once deduplication has run. Derived from
	// the server-assigned identifier when present, else generated.
	ID string `json:"id"`
	// Message is the text payload.
	Message string `json:"message"`
	// SenderRole is the canonical role of the author.
	SenderRole SenderRole `json:"sender_role"`
	// SenderID is an opaque identifier of the author.
	SenderID string `json:"sender_id"`
	// SenderName is an optional display name.
	SenderName string `json:"sender_name,omitempty"`
	// RoomID is the owning room. A message always belongs to exactly one room.
	RoomID string `json:"room_id"`
	// Timestamp is milliseconds since epoch.
	Timestamp int64 `json:"timestamp"`
	// Read is mutated only by the read-marking operation.
	Read bool `json:"read"`
	// Kind is the payload kind. Only text is actively produced; image and
	// file pass through untouched.
	Kind MessageKind `json:"kind"`
}
