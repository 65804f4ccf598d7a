package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/api/handler"
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

const testSecret = "test-secret"

func newRouter(storage *MockStorage) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewHandler(nil, storage, testSecret, "agent-key")
	router := gin.New()
	router.POST("/api/auth/guest", h.GuestToken)
	router.POST("/api/auth/agent", h.AgentToken)
	router.GET("/api/chat/messages", h.ChatMessages)
	router.POST("/api/chat/read", h.MarkRead)
	return router
}

type responseEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// guestToken mints a customer credential through the guest endpoint.
func guestToken(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/guest", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Token string `json:"token"`
	}
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

// tokenClaims decodes a token minted by the handler under test; the test
// knows the signing secret it configured.
func tokenClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestGuestToken_CreatesUserAndToken(t *testing.T) {
	storage := new(MockStorage)
	storage.On("SaveUserIfNotExists", mock.AnythingOfType("string"), "Guest", []string{"customer"}).
		Return(&models.User{}, nil)
	router := newRouter(storage)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/guest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var data struct {
		Token      string `json:"token"`
		CustomerID string `json:"customer_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	claims := tokenClaims(t, data.Token)
	assert.Equal(t, data.CustomerID, claims["customer_id"])
	assert.Equal(t, "customer", claims["role"])
	storage.AssertExpectations(t)
}

func TestAgentToken_RequiresAgentKey(t *testing.T) {
	router := newRouter(new(MockStorage))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/agent", bytes.NewBufferString(`{"name":"Maya"}`)))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAgentToken_MintsAdminAndSuperAdmin(t *testing.T) {
	cases := []struct {
		body     string
		wantRole string
	}{
		{`{"name":"Maya"}`, "admin"},
		{`{"name":"Maya","super_admin":true}`, "super_admin"},
	}
	for _, c := range cases {
		storage := new(MockStorage)
		storage.On("SaveUserIfNotExists", mock.Anything, "Maya", mock.Anything).Return(&models.User{}, nil)
		router := newRouter(storage)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/agent", bytes.NewBufferString(c.body))
		req.Header.Set("X-Agent-Key", "agent-key")
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, c.body)
		var data struct {
			Token string `json:"token"`
		}
		env := decodeEnvelope(t, rec)
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, c.wantRole, tokenClaims(t, data.Token)["role"], c.body)
	}
}

func TestToken_RejectedAcrossSecrets(t *testing.T) {
	storage := new(MockStorage)
	storage.On("SaveUserIfNotExists", mock.Anything, mock.Anything, mock.Anything).Return(&models.User{}, nil)
	token := guestToken(t, newRouter(storage))

	// Same routes, different signing secret.
	gin.SetMode(gin.TestMode)
	other := handler.NewHandler(nil, storage, "other-secret", "agent-key")
	otherRouter := gin.New()
	otherRouter.GET("/api/chat/messages", other.ChatMessages)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/messages?room_id=r1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	otherRouter.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatMessages_MapsHistoryRows(t *testing.T) {
	storage := new(MockStorage)
	storage.On("SaveUserIfNotExists", mock.Anything, mock.Anything, mock.Anything).Return(&models.User{}, nil)
	history := []models.ChatHistory{
		{Model: gorm.Model{ID: 1}, RoomID: "r1", SenderID: "c1", SenderRole: "customer", Content: "where is my order", Timestamp: 1000},
		{Model: gorm.Model{ID: 2}, RoomID: "r1", SenderID: "a1", SenderRole: "super_admin", SenderName: "Maya", Content: "on the way", Timestamp: 2000, Read: true},
	}
	storage.On("GetChatHistory", "r1").Return(history, nil)
	router := newRouter(storage)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/messages?room_id=r1", nil)
	req.Header.Set("Authorization", "Bearer "+guestToken(t, router))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	var rows []struct {
		ID         string `json:"id"`
		Message    string `json:"message"`
		SenderType string `json:"senderType"`
		SenderID   string `json:"senderId"`
		SenderName string `json:"senderName"`
		Timestamp  int64  `json:"timestamp"`
		Read       bool   `json:"read"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].ID)
	assert.Equal(t, "user", rows[0].SenderType)
	assert.Equal(t, "admin", rows[1].SenderType, "staff roles collapse to admin in history")
	assert.True(t, rows[1].Read)
}

func TestChatMessages_RequiresAuthAndRoom(t *testing.T) {
	storage := new(MockStorage)
	storage.On("SaveUserIfNotExists", mock.Anything, mock.Anything, mock.Anything).Return(&models.User{}, nil)
	router := newRouter(storage)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/messages?room_id=r1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/messages", nil)
	req.Header.Set("Authorization", "Bearer "+guestToken(t, router))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkRead(t *testing.T) {
	storage := new(MockStorage)
	storage.On("SaveUserIfNotExists", mock.Anything, mock.Anything, mock.Anything).Return(&models.User{}, nil)
	storage.On("MarkRoomRead", "r1").Return(nil)
	router := newRouter(storage)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/read?room_id=r1", nil)
	req.Header.Set("Authorization", "Bearer "+guestToken(t, router))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	storage.AssertCalled(t, "MarkRoomRead", "r1")
}
