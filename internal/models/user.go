package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles
const (
	RoleBuyer = "buyer"
	RoleAgent = "agent"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     *string   `json:"full_name,omitempty"`
	Role         string    `json:"role"` // buyer/agent
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}
