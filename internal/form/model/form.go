package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel defines the base model structure with common fields for the form package.
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

const DefaultVersion = "1.0"

// Form represents a form definition that can be rendered using JSON Forms
type Form struct {
	BaseModel
	ProjectID   uuid.UUID       `gorm:"type:uuid;column:project_id;not null;index" json:"projectId"`
	Name        string          `gorm:"type:varchar(255);column:name;not null" json:"name"`        // Human-readable form name
	Description string          `gorm:"type:text;column:description" json:"description,omitempty"` // Optional description
	Schema      json.RawMessage `gorm:"type:jsonb;column:schema;not null" json:"schema"`           // JSON Schema definition
	UISchema    json.RawMessage `gorm:"type:jsonb;column:ui_schema;not null" json:"uiSchema"`      // UI Schema definition for JSON Forms
	Version     string          `gorm:"type:varchar(50);column:version;not null" json:"version"`
	Active      bool            `gorm:"column:active;not null" json:"active"`
	CreatedBy   *uuid.UUID      `gorm:"type:uuid;column:created_by" json:"createdBy,omitempty"`
}

func (f *Form) TableName() string {
	return "forms"
}

// FormView is what portals receive when rendering a form.
type FormView struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID uuid.UUID       `json:"projectId"`
	Name      string          `json:"name"`
	Schema    json.RawMessage `json:"schema"`   // JSON Schema
	UISchema  json.RawMessage `json:"uiSchema"` // UI Schema
	Version   string          `json:"version"`
}

func (f *Form) View() FormView {
	return FormView{
		ID:        f.ID,
		ProjectID: f.ProjectID,
		Name:      f.Name,
		Schema:    f.Schema,
		UISchema:  f.UISchema,
		Version:   f.Version,
	}
}

// FormResponse is one submitted answer set. UserID is nil for anonymous submissions.
type FormResponse struct {
	BaseModel
	FormID       uuid.UUID       `gorm:"type:uuid;column:form_id;not null;index" json:"formId"`
	ProjectID    uuid.UUID       `gorm:"type:uuid;column:project_id;not null;index" json:"projectId"`
	ResponseData json.RawMessage `gorm:"type:jsonb;column:response_data;not null" json:"responseData"`
	SubmittedAt  time.Time       `gorm:"column:submitted_at;not null" json:"submittedAt"`
	IsAnonymous  bool            `gorm:"column:is_anonymous;not null" json:"isAnonymous"`
	UserID       *uuid.UUID      `gorm:"type:uuid;column:user_id;index" json:"userId,omitempty"`
	TaskID       *uuid.UUID      `gorm:"type:uuid;column:task_id" json:"taskId,omitempty"`
}

func (r *FormResponse) TableName() string {
	return "form_responses"
}
