package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrProfileNotFound is returned when a user has no profile row yet.
var ErrProfileNotFound = errors.New("profile not found")

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile is the application-side record of an authenticated user. Its ID
// equals the user id issued by the auth provider.
type Profile struct {
	ID             uuid.UUID `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	Email          string    `gorm:"type:varchar(320);column:email;not null;index" json:"email"`
	FullName       string    `gorm:"type:varchar(255);column:full_name" json:"fullName,omitempty"`
	Role           Role      `gorm:"type:varchar(20);column:role;not null" json:"role"`
	EmailConfirmed bool      `gorm:"column:email_confirmed;not null" json:"emailConfirmed"`
	CreatedAt      time.Time `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (p *Profile) TableName() string {
	return "profiles"
}

// NewDefaultProfile synthesizes the profile used for a user without a profile row.
func NewDefaultProfile(userID uuid.UUID, email string) *Profile {
	return &Profile{
		ID:             userID,
		Email:          email,
		Role:           RoleUser,
		EmailConfirmed: false,
	}
}
