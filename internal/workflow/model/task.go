package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the status of a spawned task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"     // Task has been assigned and is waiting for the assignee
	TaskStatusInProgress TaskStatus = "in_progress" // Assignee has started working on the task
	TaskStatusCompleted  TaskStatus = "completed"   // Target form has been submitted for the task
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a unit of follow-up work asking AssignedTo to fill FormID.
type Task struct {
	BaseModel
	Title                string          `gorm:"type:varchar(255);column:title;not null" json:"title"`
	Description          string          `gorm:"type:text;column:description" json:"description,omitempty"`
	Status               TaskStatus      `gorm:"type:varchar(20);column:status;not null;index" json:"status"`
	AssignedTo           uuid.UUID       `gorm:"type:uuid;column:assigned_to;not null;index" json:"assignedTo"`
	DueDate              *time.Time      `gorm:"column:due_date" json:"dueDate,omitempty"`
	MinDate              *time.Time      `gorm:"column:min_date" json:"minDate,omitempty"`
	FormID               uuid.UUID       `gorm:"type:uuid;column:form_id;not null" json:"formId"`                                    // Target form the assignee has to fill
	FormResponseID       *uuid.UUID      `gorm:"type:uuid;column:form_response_id" json:"formResponseId,omitempty"`                  // Response submitted for this task, set on completion
	SourceFormID         *uuid.UUID      `gorm:"type:uuid;column:source_form_id" json:"sourceFormId,omitempty"`                      // Form whose submission spawned the task
	SourceFormResponseID *uuid.UUID      `gorm:"type:uuid;column:source_form_response_id;index" json:"sourceFormResponseId,omitempty"` // Triggering response
	TemplateID           *uuid.UUID      `gorm:"type:uuid;column:template_id" json:"templateId,omitempty"`
	ProjectID            uuid.UUID       `gorm:"type:uuid;column:project_id;not null;index" json:"projectId"`
	Priority             string          `gorm:"type:varchar(20);column:priority;not null" json:"priority"`
	Metadata             json.RawMessage `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"` // TaskMetadata
	CompletedAt          *time.Time      `gorm:"column:completed_at" json:"completedAt,omitempty"`
}

func (t *Task) TableName() string {
	return "tasks"
}

// TaskMetadata is the metadata document embedded in spawned tasks for the consuming UI.
type TaskMetadata struct {
	InheritanceMapping json.RawMessage `json:"inheritanceMapping,omitempty"`
	MinCompletionDate  *time.Time      `json:"minCompletionDate"`
	InitialData        json.RawMessage `json:"initialData,omitempty"` // Target form values prefilled from the source response
}
