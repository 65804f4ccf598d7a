// Package chatstore is the in-memory, per-room message cache behind the chat
// screens: deduplication, read-state tracking, and the unread badge counter.
// It knows nothing about the network; the connection manager feeds it inbound
// messages and the UI reads from it.
package chatstore

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/restapi"
)

// dedupWindowMillis is the timestamp tolerance used to collapse
// near-simultaneous identical messages that arrived without a shared id,
// e.g. an optimistic local echo next to the server copy.
const dedupWindowMillis = 5000

// HistoryFetcher is the backend collaborator that returns a room's
// authoritative message history.
type HistoryFetcher interface {
	ChatMessages(ctx context.Context, roomID string) ([]restapi.Message, error)
}

// Store owns the room cache and the unread-admin counter. All mutation goes
// through it; one mutex guards both structures so the unread invariant can
// never be observed mid-update.
type Store struct {
	mu     sync.Mutex
	rooms  map[string][]models.ChatMessage
	unread int

	subMu sync.Mutex
	subs  []func()
}

func New() *Store {
	return &Store{rooms: make(map[string][]models.ChatMessage)}
}

// Subscribe registers a callback invoked after every mutation. The UI layer
// hangs its re-render off this. Callbacks run outside the store lock.
func (s *Store) Subscribe(fn func()) {
	s.subMu.Lock()
	s.subs = append(s.subs, fn)
	s.subMu.Unlock()
}

func (s *Store) notify() {
	s.subMu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// AddMessage ingests one message into its room, creating the room entry on
// first use. Duplicates are discarded without any state change. The duplicate
// checks run in order and short-circuit:
//
//  1. same room, same non-empty id
//  2. same room, identical text and sender with timestamps within the dedup
//     window (covers messages without a stable id)
//  3. any room, same non-empty id — the backend has been seen filing the same
//     logical message under two room keys, so an id match anywhere counts
func (s *Store) AddMessage(msg models.ChatMessage) {
	s.mu.Lock()
	if s.isDuplicate(msg) {
		s.mu.Unlock()
		return
	}
	s.rooms[msg.RoomID] = append(s.rooms[msg.RoomID], msg)
	s.recountUnread()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) isDuplicate(msg models.ChatMessage) bool {
	for _, existing := range s.rooms[msg.RoomID] {
		if msg.ID != "" && existing.ID == msg.ID {
			return true
		}
		if existing.Message == msg.Message && existing.SenderID == msg.SenderID &&
			absDiff(existing.Timestamp, msg.Timestamp) < dedupWindowMillis {
			return true
		}
	}
	if msg.ID == "" {
		return false
	}
	// TODO: drop the cross-room scan once the backend stops reporting
	// mismatched room ids for pushed messages.
	for roomID, messages := range s.rooms {
		if roomID == msg.RoomID {
			continue
		}
		for _, existing := range messages {
			if existing.ID == msg.ID {
				return true
			}
		}
	}
	return false
}

// MarkMessagesAsRead flags every staff-authored message in the room as read.
// Customer-authored messages are left untouched; the viewing customer never
// "reads" their own messages.
func (s *Store) MarkMessagesAsRead(roomID string) {
	s.mu.Lock()
	messages, ok := s.rooms[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	for i := range messages {
		if messages[i].SenderRole.IsStaff() {
			messages[i].Read = true
		}
	}
	s.recountUnread()
	s.mu.Unlock()
	s.notify()
}

// ClearMessages evicts the room from the cache entirely.
func (s *Store) ClearMessages(roomID string) {
	s.mu.Lock()
	delete(s.rooms, roomID)
	s.recountUnread()
	s.mu.Unlock()
	s.notify()
}

// MessagesByRoom returns a copy of the room's cached sequence, empty when the
// room has never been loaded.
func (s *Store) MessagesByRoom(roomID string) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := s.rooms[roomID]
	out := make([]models.ChatMessage, len(messages))
	copy(out, messages)
	return out
}

// RoomIDs lists the rooms currently cached, in no particular order.
func (s *Store) RoomIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for roomID := range s.rooms {
		out = append(out, roomID)
	}
	return out
}

// UnreadAdminCount returns the maintained unread badge count. The counter is
// kept in step by every mutation, so reads never scan the cache.
func (s *Store) UnreadAdminCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// LoadFromBackend replaces the room's cache with the backend's authoritative
// history, sorted ascending by timestamp. A fetch failure is logged and
// leaves the existing cache untouched; the chat stays usable on stale data.
func (s *Store) LoadFromBackend(ctx context.Context, api HistoryFetcher, roomID string) error {
	rows, err := api.ChatMessages(ctx, roomID)
	if err != nil {
		log.Printf("ERROR: chatstore: history fetch for room %s failed: %v", roomID, err)
		return err
	}

	messages := make([]models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, models.ChatMessage{
			ID:         row.ID,
			Message:    row.Message,
			SenderRole: models.ParseSenderRole(row.SenderType),
			SenderID:   row.SenderID,
			SenderName: row.SenderName,
			RoomID:     roomID,
			Timestamp:  row.Timestamp,
			Read:       row.Read,
			Kind:       models.KindText,
		})
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})

	s.mu.Lock()
	s.rooms[roomID] = messages
	s.recountUnread()
	s.mu.Unlock()
	s.notify()
	return nil
}

// recountUnread recomputes the unread-admin counter from scratch. Called with
// the lock held by every mutating operation; keeping it a full recount means
// the invariant holds no matter which mutation ran.
func (s *Store) recountUnread() {
	count := 0
	for _, messages := range s.rooms {
		for _, msg := range messages {
			if msg.SenderRole.IsStaff() && !msg.Read {
				count++
			}
		}
	}
	s.unread = count
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
