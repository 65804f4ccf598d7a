package chathub

import (
	"encoding/json"
	"log"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
)

// StartPubSubListener subscribes to the room channels in Redis and feeds
// received frames into the hub loop. Frames published by this instance come
// back through the same path, which is what makes local and remote senders
// indistinguishable to delivery.
func (h *Hub) StartPubSubListener() {
	go func() {
		pubsub := h.Storage.SubscribeRooms()
		if pubsub == nil {
			log.Printf("WARNING: chathub: no room subscription available, cross-instance delivery disabled")
			return
		}
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var frame models.Frame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				log.Printf("ERROR: chathub: unmarshalling pub/sub frame: %v", err)
				continue
			}
			h.PubSubCh <- frame
		}
	}()
}
