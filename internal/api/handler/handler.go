// Package handler exposes the development backend's HTTP surface: guest and
// agent token minting, chat history, read-marking, and the websocket upgrade.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/chathub"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/storage"
)

// Handler carries the hub, storage, and signing configuration shared by the
// endpoints.
type Handler struct {
	Hub       *chathub.Hub
	Storage   storage.Storage
	JWTSecret []byte
	AgentKey  string
}

func NewHandler(hub *chathub.Hub, s storage.Storage, jwtSecret, agentKey string) *Handler {
	return &Handler{
		Hub:       hub,
		Storage:   s,
		JWTSecret: []byte(jwtSecret),
		AgentKey:  agentKey,
	}
}

// respond writes the {success, data, message} envelope every endpoint uses.
func respond(c *gin.Context, status int, data any, message string) {
	body := gin.H{"success": status < 400}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}
