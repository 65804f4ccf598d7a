package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
)

// historyRow is one message in the history response. senderType keeps the
// backend's historical two-value taxonomy: "user" for customers, "admin" for
// any staff role.
type historyRow struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	SenderType string `json:"senderType"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	Read       bool   `json:"read"`
}

// ChatMessages returns the message history for a room, oldest first.
func (h *Handler) ChatMessages(c *gin.Context) {
	if _, ok := h.bearerIdentity(c); !ok {
		return
	}
	roomID := c.Query("room_id")
	if roomID == "" {
		respond(c, http.StatusBadRequest, nil, "room_id is required")
		return
	}

	history, err := h.Storage.GetChatHistory(roomID)
	if err != nil {
		respond(c, http.StatusInternalServerError, nil, "failed to load messages")
		return
	}

	rows := make([]historyRow, 0, len(history))
	for _, msg := range history {
		senderType := "user"
		if models.ParseSenderRole(msg.SenderRole).IsStaff() {
			senderType = "admin"
		}
		rows = append(rows, historyRow{
			ID:         fmt.Sprintf("%d", msg.ID),
			Message:    msg.Content,
			SenderType: senderType,
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			Timestamp:  msg.Timestamp,
			Read:       msg.Read,
		})
	}

	respond(c, http.StatusOK, rows, "")
}

// MarkRead records that the customer has seen the staff messages in a room.
func (h *Handler) MarkRead(c *gin.Context) {
	if _, ok := h.bearerIdentity(c); !ok {
		return
	}
	roomID := c.Query("room_id")
	if roomID == "" {
		respond(c, http.StatusBadRequest, nil, "room_id is required")
		return
	}

	if err := h.Storage.MarkRoomRead(roomID); err != nil {
		respond(c, http.StatusInternalServerError, nil, "failed to mark messages read")
		return
	}
	respond(c, http.StatusOK, nil, "")
}
