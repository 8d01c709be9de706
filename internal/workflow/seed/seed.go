// Package seed loads task templates from YAML files.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/formflow/backend/internal/workflow/model"
	"github.com/formflow/backend/internal/workflow/service"
)

// File is the document layout of a template seed file.
type File struct {
	Templates []TemplateSpec `yaml:"templates"`
}

// TemplateSpec is one template entry. IDs are UUID strings.
type TemplateSpec struct {
	Name                 string            `yaml:"name"`
	Description          string            `yaml:"description"`
	ProjectID            string            `yaml:"projectId"`
	SourceFormID         string            `yaml:"sourceFormId"`
	TargetFormID         string            `yaml:"targetFormId"`
	Active               *bool             `yaml:"active"`
	AssignmentType       string            `yaml:"assignmentType"`
	AssigneeStatic       string            `yaml:"assigneeStatic"`
	AssigneeDynamicField string            `yaml:"assigneeDynamicField"`
	DueDays              *int              `yaml:"dueDays"`
	MinDays              *int              `yaml:"minDays"`
	Priority             string            `yaml:"priority"`
	InheritanceMapping   map[string]string `yaml:"inheritanceMapping"`
}

// TemplateCreator stores validated templates.
type TemplateCreator interface {
	CreateTemplate(ctx context.Context, t *model.TaskTemplate) error
}

// Parse decodes and validates a seed file. Unknown keys are rejected.
func Parse(r io.Reader) ([]*model.TaskTemplate, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	templates := make([]*model.TaskTemplate, 0, len(file.Templates))
	for i, spec := range file.Templates {
		tmpl, err := spec.toModel()
		if err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i, spec.Name, err)
		}
		if err := service.ValidateTemplate(tmpl); err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i, spec.Name, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// Import creates every template in order and stops at the first failure.
// It returns the number of templates created.
func Import(ctx context.Context, creator TemplateCreator, templates []*model.TaskTemplate) (int, error) {
	for i, tmpl := range templates {
		if err := creator.CreateTemplate(ctx, tmpl); err != nil {
			return i, fmt.Errorf("failed to import template %q: %w", tmpl.Name, err)
		}
		slog.InfoContext(ctx, "task template imported", "templateID", tmpl.ID, "name", tmpl.Name)
	}
	return len(templates), nil
}

func (s TemplateSpec) toModel() (*model.TaskTemplate, error) {
	sourceFormID, err := parseID("sourceFormId", s.SourceFormID)
	if err != nil {
		return nil, err
	}
	targetFormID, err := parseID("targetFormId", s.TargetFormID)
	if err != nil {
		return nil, err
	}
	projectID, err := parseOptionalID("projectId", s.ProjectID)
	if err != nil {
		return nil, err
	}
	assignee, err := parseOptionalID("assigneeStatic", s.AssigneeStatic)
	if err != nil {
		return nil, err
	}

	active := true
	if s.Active != nil {
		active = *s.Active
	}
	assignmentType := model.AssignmentType(s.AssignmentType)
	if assignmentType == "" {
		assignmentType = model.AssignmentTypeStatic
	}

	tmpl := &model.TaskTemplate{
		Name:           s.Name,
		Description:    s.Description,
		ProjectID:      projectID,
		SourceFormID:   sourceFormID,
		TargetFormID:   targetFormID,
		IsActive:       active,
		AssignmentType: assignmentType,
		AssigneeStatic: assignee,
		DueDays:        s.DueDays,
		MinDays:        s.MinDays,
		Priority:       s.Priority,
	}
	if s.AssigneeDynamicField != "" {
		field := s.AssigneeDynamicField
		tmpl.AssigneeDynamicField = &field
	}
	if len(s.InheritanceMapping) > 0 {
		raw, err := json.Marshal(s.InheritanceMapping)
		if err != nil {
			return nil, fmt.Errorf("failed to encode inheritanceMapping: %w", err)
		}
		tmpl.InheritanceMapping = raw
	}
	return tmpl, nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a valid id", service.ErrInvalidInput, field)
	}
	return id, nil
}

func parseOptionalID(field, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := parseID(field, value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
