package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole controls coarse account capabilities. The API only distinguishes
// authenticated-or-not; the role is carried for clients.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User represents an account that can authenticate against the API.
// PasswordHash is never serialized in responses.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      UserRole   `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	PasswordHash string `json:"-"`
}

// IsArchived returns true if the user has been soft-deleted.
func (u *User) IsArchived() bool {
	return u.DeletedAt != nil
}

// UserUpdate holds a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *UserRole
}
