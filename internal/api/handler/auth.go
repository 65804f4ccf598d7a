package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
)

const tokenIssuer = "errand-shop-chat"

// identity is what a validated token resolves to.
type identity struct {
	ID   string
	Name string
	Role models.SenderRole
}

func (h *Handler) mintToken(id, name string, role models.SenderRole) (string, error) {
	claims := jwt.MapClaims{
		"customer_id": id,
		"name":        name,
		"role":        string(role),
		"exp":         time.Now().Add(72 * time.Hour).Unix(),
		"iss":         tokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.JWTSecret)
}

// validateToken checks the signature and expiry and pulls the identity
// claims out.
func (h *Handler) validateToken(tokenString string) (identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return identity{}, errors.New("invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity{}, errors.New("malformed claims")
	}
	id, _ := claims["customer_id"].(string)
	if id == "" {
		return identity{}, errors.New("token missing customer_id")
	}
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	return identity{ID: id, Name: name, Role: models.ParseSenderRole(role)}, nil
}

// bearerIdentity resolves the caller from the Authorization header.
func (h *Handler) bearerIdentity(c *gin.Context) (identity, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		respond(c, http.StatusUnauthorized, nil, "authorization token missing")
		return identity{}, false
	}
	ident, err := h.validateToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		respond(c, http.StatusUnauthorized, nil, "invalid token or expired")
		return identity{}, false
	}
	return ident, true
}

// GuestToken mints an anonymous customer credential and records the user.
func (h *Handler) GuestToken(c *gin.Context) {
	customerID := uuid.New().String()
	name := "Guest"

	if _, err := h.Storage.SaveUserIfNotExists(customerID, name, []string{string(models.RoleCustomer)}); err != nil {
		respond(c, http.StatusInternalServerError, nil, "failed to create user")
		return
	}

	token, err := h.mintToken(customerID, name, models.RoleCustomer)
	if err != nil {
		respond(c, http.StatusInternalServerError, nil, "failed to create token")
		return
	}

	respond(c, http.StatusOK, gin.H{"token": token, "customer_id": customerID}, "")
}

// AgentToken mints a support-agent credential. Gated by the shared agent key
// so the dev backend cannot hand out admin tokens to anyone who asks.
func (h *Handler) AgentToken(c *gin.Context) {
	if h.AgentKey == "" || c.GetHeader("X-Agent-Key") != h.AgentKey {
		respond(c, http.StatusForbidden, nil, "invalid agent key")
		return
	}

	var req struct {
		Name       string `json:"name"`
		SuperAdmin bool   `json:"super_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		respond(c, http.StatusBadRequest, nil, "agent name required")
		return
	}

	role := models.RoleAdmin
	roles := []string{string(models.RoleAdmin)}
	if req.SuperAdmin {
		role = models.RoleSuperAdmin
		roles = append(roles, string(models.RoleSuperAdmin))
	}

	agentID := uuid.New().String()
	if _, err := h.Storage.SaveUserIfNotExists(agentID, req.Name, roles); err != nil {
		respond(c, http.StatusInternalServerError, nil, "failed to create agent")
		return
	}

	token, err := h.mintToken(agentID, req.Name, role)
	if err != nil {
		respond(c, http.StatusInternalServerError, nil, "failed to create token")
		return
	}

	respond(c, http.StatusOK, gin.H{"token": token, "agent_id": agentID}, "")
}
