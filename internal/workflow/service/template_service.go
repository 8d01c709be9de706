package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/formflow/backend/internal/workflow/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemplateService manages task templates and matches them against submissions.
type TemplateService struct {
	db *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{db: db}
}

// ValidateTemplate checks an admin-authored template before it is stored.
func ValidateTemplate(t *model.TaskTemplate) error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if t.SourceFormID == uuid.Nil {
		return fmt.Errorf("%w: sourceFormId is required", ErrInvalidInput)
	}
	if t.TargetFormID == uuid.Nil {
		return fmt.Errorf("%w: targetFormId is required", ErrInvalidInput)
	}
	switch t.AssignmentType {
	case model.AssignmentTypeStatic:
	case model.AssignmentTypeDynamic:
		if t.AssigneeDynamicField == nil || *t.AssigneeDynamicField == "" {
			return fmt.Errorf("%w: assigneeDynamicField is required for dynamic assignment", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unsupported assignmentType %q", ErrInvalidInput, t.AssignmentType)
	}
	if t.DueDays != nil && *t.DueDays < 0 {
		return fmt.Errorf("%w: dueDays must not be negative", ErrInvalidInput)
	}
	if t.MinDays != nil && *t.MinDays < 0 {
		return fmt.Errorf("%w: minDays must not be negative", ErrInvalidInput)
	}
	switch t.Priority {
	case "", model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
	default:
		return fmt.Errorf("%w: unsupported priority %q", ErrInvalidInput, t.Priority)
	}
	if len(bytes.TrimSpace(t.InheritanceMapping)) > 0 {
		var mapping map[string]json.RawMessage
		if err := json.Unmarshal(t.InheritanceMapping, &mapping); err != nil {
			return fmt.Errorf("%w: inheritanceMapping must be a JSON object", ErrInvalidInput)
		}
		if key, ok := duplicateKey(t.InheritanceMapping); ok {
			return fmt.Errorf("%w: inheritanceMapping repeats target field %q", ErrInvalidInput, key)
		}
	}
	return nil
}

// duplicateKey returns the first top-level key that appears twice in a JSON
// object. The input must already be a valid object.
func duplicateKey(object []byte) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(object))
	if _, err := dec.Token(); err != nil {
		return "", false
	}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}
		key, _ := tok.(string)
		if _, ok := seen[key]; ok {
			return key, true
		}
		seen[key] = struct{}{}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return "", false
		}
	}
	return "", false
}

// CreateTemplate validates and stores a new template.
func (s *TemplateService) CreateTemplate(ctx context.Context, t *model.TaskTemplate) error {
	if t == nil {
		return fmt.Errorf("template cannot be nil")
	}
	if err := ValidateTemplate(t); err != nil {
		return err
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create task template: %w", err)
	}
	return nil
}

// GetTemplateByID retrieves a template by its ID.
func (s *TemplateService) GetTemplateByID(ctx context.Context, id uuid.UUID) (*model.TaskTemplate, error) {
	var t model.TaskTemplate
	result := s.db.WithContext(ctx).First(&t, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task template %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve task template: %w", result.Error)
	}
	return &t, nil
}

// UpdateTemplate replaces the editable fields of an existing template.
func (s *TemplateService) UpdateTemplate(ctx context.Context, t *model.TaskTemplate) error {
	if t == nil || t.ID == uuid.Nil {
		return fmt.Errorf("template ID cannot be nil")
	}
	if err := ValidateTemplate(t); err != nil {
		return err
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.TaskTemplate
		if err := tx.First(&existing, "id = ?", t.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("task template %s: %w", t.ID, ErrNotFound)
			}
			return fmt.Errorf("failed to retrieve task template: %w", err)
		}
		t.CreatedAt = existing.CreatedAt
		t.CreatedBy = existing.CreatedBy
		if err := tx.Save(t).Error; err != nil {
			return fmt.Errorf("failed to update task template %s: %w", t.ID, err)
		}
		return nil
	})
}

// SetActive toggles whether a template participates in matching.
func (s *TemplateService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := s.db.WithContext(ctx).Model(&model.TaskTemplate{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update task template: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task template %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListBySourceForm returns every template, active or not, attached to a source form.
func (s *TemplateService) ListBySourceForm(ctx context.Context, sourceFormID uuid.UUID) ([]model.TaskTemplate, error) {
	var templates []model.TaskTemplate
	result := s.db.WithContext(ctx).Where("source_form_id = ?", sourceFormID).Order("created_at ASC").Find(&templates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to retrieve task templates: %w", result.Error)
	}
	return templates, nil
}

// ListTemplates returns all templates ordered by creation.
func (s *TemplateService) ListTemplates(ctx context.Context) ([]model.TaskTemplate, error) {
	var templates []model.TaskTemplate
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve task templates: %w", err)
	}
	return templates, nil
}

// SelectActiveTemplates returns the active templates of sourceFormID. With a
// project id only templates of that project or without a project are returned.
func (s *TemplateService) SelectActiveTemplates(ctx context.Context, sourceFormID uuid.UUID, projectID *uuid.UUID) ([]model.TaskTemplate, error) {
	query := s.db.WithContext(ctx).Where("is_active = ? AND source_form_id = ?", true, sourceFormID)
	if projectID != nil {
		query = query.Where("(project_id = ? OR project_id IS NULL)", *projectID)
	}

	var templates []model.TaskTemplate
	if err := query.Order("created_at ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to select active task templates: %w", err)
	}
	return templates, nil
}
