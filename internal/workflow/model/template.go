package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// AssignmentType selects how the assignee of a spawned task is determined.
type AssignmentType string

const (
	AssignmentTypeStatic  AssignmentType = "static"  // Assign to AssigneeStatic
	AssignmentTypeDynamic AssignmentType = "dynamic" // Look up the email held in AssigneeDynamicField of the source response
)

// TaskTemplate is an admin-authored rule that spawns a task on TargetFormID
// whenever a response to SourceFormID is submitted.
type TaskTemplate struct {
	BaseModel
	Name                 string          `gorm:"type:varchar(255);column:name;not null" json:"name"`                                       // Human-readable name, used as the spawned task title
	Description          string          `gorm:"type:text;column:description" json:"description,omitempty"`                                // Copied to the spawned task
	ProjectID            *uuid.UUID      `gorm:"type:uuid;column:project_id;index" json:"projectId,omitempty"`                             // Optional project scope
	SourceFormID         uuid.UUID       `gorm:"type:uuid;column:source_form_id;not null;index" json:"sourceFormId"`                       // Form whose submissions trigger this template
	TargetFormID         uuid.UUID       `gorm:"type:uuid;column:target_form_id;not null" json:"targetFormId"`                             // Form the spawned task asks the assignee to fill
	IsActive             bool            `gorm:"column:is_active;not null" json:"isActive"`                                                // Inactive templates are never matched
	AssignmentType       AssignmentType  `gorm:"type:varchar(20);column:assignment_type;not null" json:"assignmentType"`                   // static or dynamic
	AssigneeStatic       *uuid.UUID      `gorm:"type:uuid;column:assignee_static" json:"assigneeStatic,omitempty"`                         // User id used for static assignment and as dynamic fallback
	AssigneeDynamicField *string         `gorm:"type:varchar(255);column:assignee_dynamic_field" json:"assigneeDynamicField,omitempty"`    // Source field holding an assignee email
	DueDays              *int            `gorm:"column:due_days" json:"dueDays,omitempty"`                                                 // Offset in days from spawn time for the due date
	MinDays              *int            `gorm:"column:min_days" json:"minDays,omitempty"`                                                 // Offset in days from spawn time for the earliest completion date
	Priority             string          `gorm:"type:varchar(20);column:priority;not null" json:"priority"`                                // Copied to the spawned task
	InheritanceMapping   json.RawMessage `gorm:"type:jsonb;column:inheritance_mapping" json:"inheritanceMapping,omitempty"`                 // Object of target field name to source field name
	CreatedBy            *uuid.UUID      `gorm:"type:uuid;column:created_by" json:"createdBy,omitempty"`                                   // Admin who authored the template
}

func (t *TaskTemplate) TableName() string {
	return "task_templates"
}
