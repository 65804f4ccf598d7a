package chathub

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/storage"
)

// Assigner pairs customers who opened the chat without a room with an
// available support agent, creating the room both sides then join.
type Assigner struct {
	Hub     *Hub
	Storage storage.Storage

	// waiting holds customers queued for an agent, keyed by user id.
	waiting map[string]Client
}

func NewAssigner(hub *Hub, s storage.Storage) *Assigner {
	return &Assigner{
		Hub:     hub,
		Storage: s,
		waiting: make(map[string]Client),
	}
}

// Run consumes assignment requests and retries the queue periodically, so a
// customer who arrived before any agent was free still gets picked up.
func (a *Assigner) Run() {
	log.Println("chathub: assigner started")
	retry := time.NewTicker(5 * time.Second)
	defer retry.Stop()

	for {
		select {
		case customer := <-a.Hub.AssignCh:
			a.waiting[customer.UserID()] = customer
			a.tryAssign(customer)

		case <-retry.C:
			for _, customer := range a.waiting {
				a.tryAssign(customer)
			}
		}
	}
}

// tryAssign gives the customer an existing active room when one is on
// record, otherwise pairs them with the first connected agent from the pool.
func (a *Assigner) tryAssign(customer Client) {
	if roomID, err := a.Storage.ActiveRoomForCustomer(customer.UserID()); err == nil && roomID != "" {
		customer.SetRoomID(roomID)
		delete(a.waiting, customer.UserID())
		log.Printf("chathub: customer %s rejoined room %s", customer.UserID(), roomID)
		a.announce(customer, roomID)
		return
	}

	agentIDs, err := a.Storage.AvailableAgents()
	if err != nil {
		log.Printf("ERROR: chathub: reading agent pool: %v", err)
		return
	}

	for _, agentID := range agentIDs {
		agent, ok := a.Hub.Client(agentID)
		if !ok {
			// Stale pool entry, the agent has disconnected.
			a.Storage.RemoveAgentFromPool(agentID)
			continue
		}

		roomID := uuid.New().String()
		room := &models.ChatRoom{
			RoomID:     roomID,
			CustomerID: customer.UserID(),
			AgentID:    agentID,
			IsActive:   true,
			StartedAt:  time.Now(),
		}
		if err := a.Storage.SaveRoom(room); err != nil {
			log.Printf("ERROR: chathub: saving room: %v", err)
			return
		}

		customer.SetRoomID(roomID)
		agent.SetRoomID(roomID)
		a.Storage.RemoveAgentFromPool(agentID)
		delete(a.waiting, customer.UserID())

		log.Printf("chathub: assigned agent %s to customer %s in room %s", agentID, customer.UserID(), roomID)
		a.announce(customer, roomID)
		a.announce(agent, roomID)
		return
	}
}

func (a *Assigner) announce(client Client, roomID string) {
	frame := models.Frame{
		Type:       models.FrameUserJoined,
		RoomID:     models.FlexID(roomID),
		UserID:     client.UserID(),
		SenderType: string(client.Role()),
		SenderName: client.Name(),
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := a.Storage.PublishFrame(roomID, frame); err != nil {
		log.Printf("ERROR: chathub: announcing join: %v", err)
	}
}
