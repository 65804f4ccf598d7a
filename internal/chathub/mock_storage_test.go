package chathub_test

import (
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveUser(user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *MockStorage) SaveUserIfNotExists(id, name string, roles []string) (*models.User, error) {
	args := m.Called(id, name, roles)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockStorage) GetUserByID(id string) (*models.User, error) {
	args := m.Called(id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockStorage) SaveRoom(room *models.ChatRoom) error {
	return m.Called(room).Error(0)
}

func (m *MockStorage) CloseRoom(roomID string) error {
	return m.Called(roomID).Error(0)
}

func (m *MockStorage) GetRoomByID(roomID string) (*models.ChatRoom, error) {
	args := m.Called(roomID)
	room, _ := args.Get(0).(*models.ChatRoom)
	return room, args.Error(1)
}

func (m *MockStorage) ActiveRoomForCustomer(customerID string) (string, error) {
	args := m.Called(customerID)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) SaveMessage(msg *models.ChatHistory) error {
	return m.Called(msg).Error(0)
}

func (m *MockStorage) GetChatHistory(roomID string) ([]models.ChatHistory, error) {
	args := m.Called(roomID)
	history, _ := args.Get(0).([]models.ChatHistory)
	return history, args.Error(1)
}

func (m *MockStorage) MarkRoomRead(roomID string) error {
	return m.Called(roomID).Error(0)
}

func (m *MockStorage) PublishFrame(roomID string, frame models.Frame) error {
	return m.Called(roomID, frame).Error(0)
}

func (m *MockStorage) SubscribeRooms() *redis.PubSub {
	args := m.Called()
	sub, _ := args.Get(0).(*redis.PubSub)
	return sub
}

func (m *MockStorage) AddAgentToPool(agentID string) error {
	return m.Called(agentID).Error(0)
}

func (m *MockStorage) RemoveAgentFromPool(agentID string) error {
	return m.Called(agentID).Error(0)
}

func (m *MockStorage) AvailableAgents() ([]string, error) {
	args := m.Called()
	agents, _ := args.Get(0).([]string)
	return agents, args.Error(1)
}
