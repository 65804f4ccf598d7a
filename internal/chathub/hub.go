// Package chathub is the development backend's connection hub: it tracks
// live clients, persists inbound chat messages, and fans frames out to room
// participants through Redis pub/sub so several backend instances stay in
// step.
package chathub

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/storage"
)

// Hub routes frames between connected clients. All registration and delivery
// runs on the Run goroutine; Clients is additionally guarded for the
// assigner's cross-goroutine lookups.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan models.Frame
	// AssignCh carries customers who connected without a room and are
	// waiting for a support agent.
	AssignCh chan Client
	// PubSubCh carries frames arriving from the room subscription into the
	// delivery loop. The pub/sub listener is its only producer in
	// production.
	PubSubCh chan models.Frame

	Storage storage.Storage
}

func NewHub(s storage.Storage) *Hub {
	return &Hub{
		clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan models.Frame, 64),
		AssignCh:     make(chan Client, 16),
		PubSubCh:     make(chan models.Frame, 64),
		Storage:      s,
	}
}

// Client looks a connected client up by user id.
func (h *Hub) Client(userID string) (Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	return c, ok
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run is the hub's main loop. It owns all mutation of the client set.
func (h *Hub) Run() {
	h.StartPubSubListener()

	for {
		select {
		case client := <-h.RegisterCh:
			h.mu.Lock()
			h.clients[client.UserID()] = client
			h.mu.Unlock()
			log.Printf("chathub: client registered: %s (%s)", client.UserID(), client.Role())
			if room := client.RoomID(); room != "" {
				h.publishPresence(models.FrameUserJoined, client, room)
			}

		case client := <-h.UnregisterCh:
			h.mu.Lock()
			current, ok := h.clients[client.UserID()]
			if ok && current == client {
				delete(h.clients, client.UserID())
			}
			h.mu.Unlock()
			if ok && current == client {
				client.Close()
				log.Printf("chathub: client unregistered: %s", client.UserID())
				if room := client.RoomID(); room != "" {
					h.publishPresence(models.FrameUserLeft, client, room)
				}
			}

		case frame := <-h.IncomingCh:
			h.handleIncoming(frame)

		case frame := <-h.PubSubCh:
			h.deliver(frame)
		}
	}
}

// handleIncoming persists chat messages and re-broadcasts everything through
// Redis. Delivery to local clients happens only on the subscribing side so
// every backend instance behaves the same.
func (h *Hub) handleIncoming(frame models.Frame) {
	switch frame.Type {
	case models.FrameChatMessage, models.FrameNewMessage:
		row := models.ChatHistory{
			RoomID:     string(frame.RoomID),
			SenderID:   frame.Sender(),
			SenderRole: frame.SenderType,
			SenderName: frame.SenderName,
			Content:    frame.Message,
			Kind:       string(models.KindText),
			Timestamp:  frame.Timestamp,
		}
		if err := h.Storage.SaveMessage(&row); err != nil {
			// The frame is still broadcast; clients keep their own cache.
			log.Printf("ERROR: chathub: persisting message failed: %v", err)
		} else {
			frame.MessageID = fmt.Sprintf("%d", row.ID)
		}
		if err := h.Storage.PublishFrame(string(frame.RoomID), frame); err != nil {
			log.Printf("ERROR: chathub: publishing message failed: %v", err)
		}

	case models.FrameTypingStart, models.FrameTypingStop:
		// Typing indicators are transient: broadcast, never persisted.
		if err := h.Storage.PublishFrame(string(frame.RoomID), frame); err != nil {
			log.Printf("ERROR: chathub: publishing typing frame failed: %v", err)
		}

	default:
		log.Printf("chathub: ignoring inbound frame type %q from %s", frame.Type, frame.Sender())
	}
}

// deliver hands a frame to every connected client in its room. Slow clients
// have the frame dropped rather than stalling the loop.
func (h *Hub) deliver(frame models.Frame) {
	roomID := string(frame.RoomID)
	h.mu.RLock()
	targets := make([]Client, 0, 2)
	for _, client := range h.clients {
		if client.RoomID() == roomID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.SendChannel() <- frame:
		default:
			log.Printf("WARNING: chathub: dropping frame for slow client %s", client.UserID())
		}
	}
}

func (h *Hub) publishPresence(frameType string, client Client, roomID string) {
	frame := models.Frame{
		Type:       frameType,
		RoomID:     models.FlexID(roomID),
		UserID:     client.UserID(),
		SenderType: string(client.Role()),
		SenderName: client.Name(),
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := h.Storage.PublishFrame(roomID, frame); err != nil {
		log.Printf("ERROR: chathub: publishing presence failed: %v", err)
	}
}
