package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel defines the base model structure with common fields for the project package.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

// BeforeCreate is a GORM hook that is triggered before a new record is created.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID, err = uuid.NewRandom()
		if err != nil {
			return
		}
	}
	now := time.Now().UTC()
	base.CreatedAt = now
	base.UpdatedAt = now
	return
}

// BeforeUpdate is a GORM hook that is triggered before an existing record is updated.
func (base *BaseModel) BeforeUpdate(tx *gorm.DB) (err error) {
	base.UpdatedAt = time.Now().UTC()
	return
}

type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
	MemberRoleViewer MemberRole = "viewer"
)

func (r MemberRole) IsValid() bool {
	switch r {
	case MemberRoleAdmin, MemberRoleMember, MemberRoleViewer:
		return true
	}
	return false
}

// Project scopes forms, templates and tasks.
type Project struct {
	BaseModel
	Name        string    `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Description string    `gorm:"type:text;column:description" json:"description,omitempty"`
	Active      bool      `gorm:"column:active;not null" json:"active"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;column:created_by;not null" json:"createdBy"`
}

func (p *Project) TableName() string {
	return "projects"
}

// ProjectMember grants a user a role in a project. Only active memberships count.
type ProjectMember struct {
	BaseModel
	ProjectID uuid.UUID  `gorm:"type:uuid;column:project_id;not null;uniqueIndex:idx_project_member" json:"projectId"`
	UserID    uuid.UUID  `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_project_member;index" json:"userId"`
	Role      MemberRole `gorm:"type:varchar(20);column:role;not null" json:"role"`
	Active    bool       `gorm:"column:active;not null" json:"active"`
}

func (m *ProjectMember) TableName() string {
	return "project_members"
}
