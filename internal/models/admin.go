package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminUser is a dashboard user. Role maps to permissions via the rbac
// package; the permission store itself is external to the audit core.
type AdminUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
