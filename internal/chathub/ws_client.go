package chathub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	ID          string
	DisplayName string
	UserRole    models.SenderRole

	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.Frame

	mu        sync.Mutex
	room      string
	closeOnce sync.Once
}

func (c *WebSocketClient) UserID() string          { return c.ID }
func (c *WebSocketClient) Name() string            { return c.DisplayName }
func (c *WebSocketClient) Role() models.SenderRole { return c.UserRole }

func (c *WebSocketClient) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *WebSocketClient) SetRoomID(roomID string) {
	c.mu.Lock()
	c.room = roomID
	c.mu.Unlock()
}

func (c *WebSocketClient) SendChannel() chan<- models.Frame { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the send channel, which stops the write pump.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// readPump reads frames off the wire, stamps them with the session's
// authenticated identity and room, and forwards them to the hub. The client
// never gets to claim a sender or room the session did not establish.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("chathub: read error from %s: %v", c.ID, err)
			}
			break
		}

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("chathub: dropping bad frame from %s: %v", c.ID, err)
			continue
		}

		frame = frame.Flatten()
		frame.SenderID = c.ID
		frame.SenderType = string(c.UserRole)
		frame.SenderName = c.DisplayName
		frame.RoomID = models.FlexID(c.RoomID())
		if frame.Timestamp == 0 {
			frame.Timestamp = time.Now().UnixMilli()
		}

		c.Hub.IncomingCh <- frame
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(frame)
			if err != nil {
				log.Printf("chathub: encoding frame for %s: %v", c.ID, err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
