package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is an account known to the development backend: either a guest
// customer or a support agent.
type User struct {
	// ID is the user's UUID, generated on first save when unset.
	ID string `gorm:"primaryKey" json:"id"`
	// Name is the display name shown next to messages.
	Name string
	// Roles holds the role strings granted to the user, e.g.
	// ["customer"] or ["admin", "super_admin"].
	Roles pq.StringArray `gorm:"type:text[]"`
}

// BeforeCreate is a GORM hook that assigns a fresh UUID when the record has
// no id yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Role resolves the user's effective sender role, preferring the most
// privileged one granted.
func (u *User) Role() SenderRole {
	role := RoleCustomer
	for _, raw := range u.Roles {
		switch ParseSenderRole(raw) {
		case RoleSuperAdmin:
			return RoleSuperAdmin
		case RoleAdmin:
			role = RoleAdmin
		}
	}
	return role
}
