package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeTaskAssigned NotificationType = "task_assigned"
)

// Notification informs a user about an event, currently only task assignment.
type Notification struct {
	BaseModel
	UserID    uuid.UUID        `gorm:"type:uuid;column:user_id;not null;index" json:"userId"`
	ProjectID *uuid.UUID       `gorm:"type:uuid;column:project_id" json:"projectId,omitempty"`
	Title     string           `gorm:"type:varchar(255);column:title;not null" json:"title"`
	Message   string           `gorm:"type:text;column:message;not null" json:"message"`
	Type      NotificationType `gorm:"type:varchar(50);column:type;not null" json:"type"`
	Read      bool             `gorm:"column:read;not null" json:"read"`
	Metadata  json.RawMessage  `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"` // TaskAssignedMetadata for task_assigned
}

func (n *Notification) TableName() string {
	return "notifications"
}

// TaskAssignedMetadata is embedded in task_assigned notifications.
type TaskAssignedMetadata struct {
	TaskID             uuid.UUID       `json:"taskId"`
	FormID             uuid.UUID       `json:"formId"`
	MinDays            *int            `json:"minDays"`
	DueDays            *int            `json:"dueDays"`
	InheritanceMapping json.RawMessage `json:"inheritanceMapping,omitempty"`
}
