// Package storage is the development backend's persistence layer: chat
// history and rooms in PostgreSQL via GORM, agent availability and message
// fan-out in Redis.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
)

// roomChannelPrefix namespaces the Redis pub/sub channels used for room
// fan-out.
const roomChannelPrefix = "chat:room:"

// Storage is the persistence interface the hub and handlers depend on.
// Mocked in tests.
type Storage interface {
	SaveUser(user *models.User) error
	SaveUserIfNotExists(id, name string, roles []string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)

	SaveRoom(room *models.ChatRoom) error
	CloseRoom(roomID string) error
	GetRoomByID(roomID string) (*models.ChatRoom, error)
	ActiveRoomForCustomer(customerID string) (string, error)

	SaveMessage(msg *models.ChatHistory) error
	GetChatHistory(roomID string) ([]models.ChatHistory, error)
	MarkRoomRead(roomID string) error

	PublishFrame(roomID string, frame models.Frame) error
	SubscribeRooms() *redis.PubSub

	AddAgentToPool(agentID string) error
	RemoveAgentFromPool(agentID string) error
	AvailableAgents() ([]string, error)
}

// Service implements Storage on GORM + Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// SaveUserIfNotExists returns the existing user or creates one with the given
// name and roles.
func (s *Service) SaveUserIfNotExists(id, name string, roles []string) (*models.User, error) {
	var user models.User
	defaults := models.User{ID: id, Name: name, Roles: roles}

	result := s.DB.Where("id = ?", id).FirstOrCreate(&user, defaults)
	if result.Error != nil {
		log.Printf("ERROR: storage: failed to save user %s: %v", id, result.Error)
		return nil, result.Error
	}
	return &user, nil
}

func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) SaveRoom(room *models.ChatRoom) error {
	return s.DB.Save(room).Error
}

// CloseRoom marks a room inactive and stamps its end time.
func (s *Service) CloseRoom(roomID string) error {
	return s.DB.Model(&models.ChatRoom{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  time.Now(),
		}).Error
}

func (s *Service) GetRoomByID(roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.Where("room_id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("chat room not found")
	}
	if err != nil {
		log.Printf("ERROR: storage: failed to get room %s: %v", roomID, err)
		return nil, err
	}
	return &room, nil
}

// ActiveRoomForCustomer finds the room the customer currently has open, ""
// when there is none.
func (s *Service) ActiveRoomForCustomer(customerID string) (string, error) {
	var room models.ChatRoom
	err := s.DB.Where("is_active = ?", true).
		Where("customer_id = ?", customerID).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		log.Printf("ERROR: storage: failed to find active room for customer %s: %v", customerID, err)
		return "", err
	}
	return room.RoomID, nil
}

// SaveMessage persists a message row. The row's ID is filled in by GORM and
// becomes the wire message_id.
func (s *Service) SaveMessage(msg *models.ChatHistory) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: storage: failed to save message for room %s: %v", msg.RoomID, err)
		return err
	}
	return nil
}

// GetChatHistory returns a room's messages ordered by their ingestion
// timestamp. An unknown room yields an empty list, not an error.
func (s *Service) GetChatHistory(roomID string) ([]models.ChatHistory, error) {
	var history []models.ChatHistory
	if err := s.DB.Where("room_id = ?", roomID).Order("timestamp asc").Find(&history).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return history, nil
		}
		log.Printf("ERROR: storage: failed to get chat history for room %s: %v", roomID, err)
		return nil, err
	}
	return history, nil
}

// MarkRoomRead flags every staff-authored row in the room as read.
func (s *Service) MarkRoomRead(roomID string) error {
	return s.DB.Model(&models.ChatHistory{}).
		Where("room_id = ?", roomID).
		Where("sender_role IN ?", []string{string(models.RoleAdmin), string(models.RoleSuperAdmin)}).
		Update("read", true).Error
}

// PublishFrame broadcasts a frame to the room's Redis channel. Delivery to
// connected clients happens on the subscribing side, so multiple backend
// instances fan out consistently.
func (s *Service) PublishFrame(roomID string, frame models.Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, roomChannelPrefix+roomID, payload).Err()
}

// SubscribeRooms subscribes to every room channel.
func (s *Service) SubscribeRooms() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, roomChannelPrefix+"*")
}

// AddAgentToPool marks a support agent as available for assignment.
func (s *Service) AddAgentToPool(agentID string) error {
	return s.Redis.SAdd(s.Ctx, "agent_pool", agentID).Err()
}

func (s *Service) RemoveAgentFromPool(agentID string) error {
	return s.Redis.SRem(s.Ctx, "agent_pool", agentID).Err()
}

func (s *Service) AvailableAgents() ([]string, error) {
	return s.Redis.SMembers(s.Ctx, "agent_pool").Result()
}
