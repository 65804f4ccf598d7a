package models

import "encoding/json"

// Frame type discriminants exchanged over the websocket.
const (
	FrameChatMessage = "chat_message"
	FrameNewMessage  = "new_message"
	FrameTypingStart = "typing_start"
	FrameTypingStop  = "typing_stop"
	FrameUserJoined  = "user_joined"
	FrameUserLeft    = "user_left"

	// FrameConnectionChange is internal to the client and never put on the wire.
	FrameConnectionChange = "connection_change"
)

// FlexID accepts either a JSON string or a JSON number. The backend is not
// consistent about whether room ids go out as strings or integers, so the id
// is coerced to a string at the parse boundary and compared only as a string
// from then on.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// Frame is one discrete JSON message exchanged over the persistent
// connection, in either direction. Some backend pushes nest the payload
// under "data"; Flatten resolves that variant.
type Frame struct {
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	RoomID     FlexID `json:"room_id,omitempty"`
	Message    string `json:"message,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
	SenderType string `json:"sender_type,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	Data       *Frame `json:"data,omitempty"`
}

// Flatten merges the nested Data variant into a single flat frame. Top-level
// fields win; empty ones fall back to the nested value.
func (f Frame) Flatten() Frame {
	if f.Data == nil {
		return f
	}
	out := f
	d := f.Data.Flatten()
	if out.Timestamp == 0 {
		out.Timestamp = d.Timestamp
	}
	if out.RoomID == "" {
		out.RoomID = d.RoomID
	}
	if out.Message == "" {
		out.Message = d.Message
	}
	if out.SenderID == "" {
		out.SenderID = d.SenderID
	}
	if out.SenderType == "" {
		out.SenderType = d.SenderType
	}
	if out.SenderName == "" {
		out.SenderName = d.SenderName
	}
	if out.MessageID == "" {
		out.MessageID = d.MessageID
	}
	if out.UserID == "" {
		out.UserID = d.UserID
	}
	out.Data = nil
	return out
}

// Sender returns the sender identifier, preferring sender_id over user_id.
func (f Frame) Sender() string {
	if f.SenderID != "" {
		return f.SenderID
	}
	return f.UserID
}
