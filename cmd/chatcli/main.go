// chatcli is an interactive harness for the chat core: it authenticates,
// opens the websocket, loads room history into the local store, and lets you
// exercise sending, typing indicators, read-marking, and reconnection from a
// terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/auth"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/chatclient"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/chatstore"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/config"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/notify"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/restapi"
)

func main() {
	roomID := flag.String("room", "", "room id to join (empty lets the backend assign one)")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	tokens := auth.NewMemoryTokenStore(cfg.ChatToken)
	rest := restapi.NewClient(cfg.APIBaseURL, tokens)

	if tokens.Token() == "" {
		token, err := rest.GuestToken(ctx)
		if err != nil {
			log.Fatalf("Failed to obtain guest token: %v", err)
		}
		tokens.SetToken(token)
		log.Println("Obtained guest token.")
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("Failed to start Telegram notifier: %v", err)
		}
		notifier = tg
	}

	store := chatstore.New()
	manager := chatclient.NewManager(chatclient.Config{
		BaseURL:  cfg.APIBaseURL,
		Tokens:   tokens,
		Store:    store,
		Notifier: notifier,
	})

	printer := newPrinter(store, *roomID)
	store.Subscribe(printer.flush)
	manager.OnConnectionChange(func(connected bool) {
		if connected {
			fmt.Println("-- connected --")
		} else {
			fmt.Println("-- connecting... --")
		}
	})
	manager.OnTyping(func(room, sender string, typing bool) {
		if typing {
			fmt.Printf("-- %s is typing... --\n", sender)
		}
	})
	manager.Handle(models.FrameUserJoined, func(frame models.Frame) {
		if room := string(frame.RoomID); room != "" {
			printer.setRoom(room)
		}
	})

	if err := manager.Connect(ctx, *roomID); err != nil {
		log.Fatalf("Connect failed: %v", err)
	}
	defer manager.Disconnect()

	if *roomID != "" {
		if err := store.LoadFromBackend(ctx, rest, *roomID); err != nil {
			log.Printf("History unavailable, continuing with empty cache: %v", err)
		}
	}

	fmt.Println("Type a message and press enter. Commands: /read /unread /retry /bg /fg /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/read":
			room := printer.room()
			store.MarkMessagesAsRead(room)
			if err := rest.MarkRead(ctx, room); err != nil {
				log.Printf("Server read-mark failed: %v", err)
			}
		case line == "/unread":
			fmt.Printf("-- unread from support: %d --\n", store.UnreadAdminCount())
		case line == "/retry":
			if err := manager.Retry(ctx); err != nil {
				log.Printf("Retry failed: %v", err)
			}
		case line == "/bg":
			manager.SetForeground(false)
			fmt.Println("-- app backgrounded --")
		case line == "/fg":
			manager.SetForeground(true)
			fmt.Println("-- app foregrounded --")
		default:
			sendMessage(manager, store, printer.room(), line)
		}
	}
}

// sendMessage transmits over the wire when connected; otherwise it falls back
// to appending the message locally so the conversation view stays coherent
// while offline.
func sendMessage(manager *chatclient.Manager, store *chatstore.Store, roomID, text string) {
	manager.SendTypingIndicator(false, roomID)
	err := manager.SendChatMessage(text, roomID)
	if err == nil {
		return
	}
	if err != chatclient.ErrNotConnected {
		log.Printf("Send failed: %v", err)
		return
	}
	store.AddMessage(models.ChatMessage{
		ID:         "local-" + uuid.New().String(),
		Message:    text,
		SenderRole: models.RoleCustomer,
		SenderID:   "local",
		RoomID:     roomID,
		Timestamp:  time.Now().UnixMilli(),
		Kind:       models.KindText,
	})
	fmt.Println("-- offline, message kept locally --")
}

// printer tracks which cached messages have been shown already and prints
// the new ones whenever the store changes. The room id starts from the
// -room flag and is updated when the backend assigns one.
type printer struct {
	store *chatstore.Store

	mu     sync.Mutex
	roomID string
	seen   map[string]bool
}

func newPrinter(store *chatstore.Store, roomID string) *printer {
	return &printer{store: store, roomID: roomID, seen: make(map[string]bool)}
}

func (p *printer) room() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roomID
}

func (p *printer) setRoom(roomID string) {
	p.mu.Lock()
	if p.roomID == "" {
		p.roomID = roomID
		fmt.Printf("-- joined room %s --\n", roomID)
	}
	p.mu.Unlock()
}

func (p *printer) flush() {
	rooms := []string{p.room()}
	if rooms[0] == "" {
		rooms = p.store.RoomIDs()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, roomID := range rooms {
		for _, msg := range p.store.MessagesByRoom(roomID) {
			if p.seen[msg.ID] {
				continue
			}
			p.seen[msg.ID] = true
			name := msg.SenderName
			if name == "" {
				name = string(msg.SenderRole)
			}
			fmt.Printf("[%s] %s: %s\n", time.UnixMilli(msg.Timestamp).Format("15:04:05"), name, msg.Message)
		}
	}
}
