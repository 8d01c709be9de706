package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formflow/backend/internal/form/model"
	"github.com/formflow/backend/internal/inheritance"
	workflowmodel "github.com/formflow/backend/internal/workflow/model"
	workflowservice "github.com/formflow/backend/internal/workflow/service"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// InheritanceRunner runs the task inheritance workflow for a persisted response.
type InheritanceRunner interface {
	Run(ctx context.Context, trigger inheritance.Trigger) (*inheritance.Result, error)
}

type Option func(*FormService)

// WithAsyncInheritance controls whether inheritance runs after SubmitResponse
// returns. Wait blocks until pending runs are done.
func WithAsyncInheritance(async bool) Option {
	return func(s *FormService) {
		s.async = async
	}
}

// FormService manages forms and their responses.
type FormService struct {
	db          *gorm.DB
	inheritance InheritanceRunner
	async       bool
	wg          sync.WaitGroup
	now         func() time.Time
}

func NewFormService(db *gorm.DB, runner InheritanceRunner, opts ...Option) *FormService {
	s := &FormService{
		db:          db,
		inheritance: runner,
		async:       true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFormRequest is the payload for CreateForm.
type CreateFormRequest struct {
	ProjectID   uuid.UUID       `json:"projectId" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema" binding:"required"`
	UISchema    json.RawMessage `json:"uiSchema"`
	Version     string          `json:"version"`
}

func (s *FormService) CreateForm(ctx context.Context, req CreateFormRequest, createdBy *uuid.UUID) (*model.Form, error) {
	if req.ProjectID == uuid.Nil {
		return nil, fmt.Errorf("%w: project is required", ErrInvalidInput)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: form name is required", ErrInvalidInput)
	}
	if !isJSONObject(req.Schema) {
		return nil, fmt.Errorf("%w: schema must be a JSON object", ErrInvalidInput)
	}
	uiSchema := req.UISchema
	if len(uiSchema) == 0 {
		uiSchema = json.RawMessage("{}")
	} else if !isJSONObject(uiSchema) {
		return nil, fmt.Errorf("%w: uiSchema must be a JSON object", ErrInvalidInput)
	}
	version := req.Version
	if version == "" {
		version = model.DefaultVersion
	}

	form := &model.Form{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		ProjectID:   req.ProjectID,
		Name:        name,
		Description: req.Description,
		Schema:      req.Schema,
		UISchema:    uiSchema,
		Version:     version,
		Active:      true,
		CreatedBy:   createdBy,
	}
	if err := s.db.WithContext(ctx).Create(form).Error; err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}
	slog.InfoContext(ctx, "form created", "form_id", form.ID, "project_id", form.ProjectID)
	return form, nil
}

// GetForm retrieves a form by its ID.
func (s *FormService) GetForm(ctx context.Context, formID uuid.UUID) (*model.Form, error) {
	var form model.Form
	result := s.db.WithContext(ctx).First(&form, "id = ?", formID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("form %s: %w", formID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve form: %w", result.Error)
	}
	return &form, nil
}

// ListProjectForms returns the active forms of a project.
func (s *FormService) ListProjectForms(ctx context.Context, projectID uuid.UUID) ([]model.Form, error) {
	var forms []model.Form
	result := s.db.WithContext(ctx).
		Where("project_id = ? AND active = ?", projectID, true).
		Order("name ASC").
		Find(&forms)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list forms: %w", result.Error)
	}
	if forms == nil {
		forms = []model.Form{}
	}
	return forms, nil
}

// SubmitRequest is the payload for SubmitResponse. SubmitterID is nil for
// anonymous submissions. TaskID completes the task the response answers.
type SubmitRequest struct {
	ResponseData json.RawMessage
	TaskID       *uuid.UUID
	SubmitterID  *uuid.UUID
}

// SubmitResponse persists a response and, when it answers a task, completes
// that task in the same transaction. Inheritance is triggered only after the
// commit; its outcome is logged and never changes the submission result.
func (s *FormService) SubmitResponse(ctx context.Context, formID uuid.UUID, req SubmitRequest) (*model.FormResponse, error) {
	form, err := s.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if !form.Active {
		return nil, fmt.Errorf("%w: form %s is not active", ErrInvalidInput, formID)
	}
	if !isJSONObject(req.ResponseData) {
		return nil, fmt.Errorf("%w: response data must be a JSON object", ErrInvalidInput)
	}
	if req.TaskID != nil && req.SubmitterID == nil {
		return nil, fmt.Errorf("%w: anonymous responses cannot complete a task", ErrInvalidInput)
	}

	response := &model.FormResponse{
		BaseModel:    model.BaseModel{ID: uuid.New()},
		FormID:       form.ID,
		ProjectID:    form.ProjectID,
		ResponseData: req.ResponseData,
		SubmittedAt:  s.now().UTC(),
		IsAnonymous:  req.SubmitterID == nil,
		UserID:       req.SubmitterID,
		TaskID:       req.TaskID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.TaskID != nil {
			if err := checkTask(ctx, tx, *req.TaskID, form.ID, *req.SubmitterID); err != nil {
				return err
			}
		}
		if err := tx.Create(response).Error; err != nil {
			return fmt.Errorf("failed to store form response: %w", err)
		}
		if req.TaskID != nil {
			if err := workflowservice.NewTaskService(tx).CompleteTask(ctx, *req.TaskID, response.ID); err != nil {
				if errors.Is(err, workflowservice.ErrAlreadyCompleted) {
					return fmt.Errorf("%w: task %s is already completed", ErrInvalidInput, *req.TaskID)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "form response submitted",
		"formID", form.ID,
		"formResponseID", response.ID,
		"anonymous", response.IsAnonymous,
	)
	s.triggerInheritance(ctx, form, response)
	return response, nil
}

// checkTask verifies that the submitter may answer taskID with formID.
func checkTask(ctx context.Context, tx *gorm.DB, taskID, formID, submitterID uuid.UUID) error {
	task, err := workflowservice.NewTaskService(tx).GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, workflowservice.ErrNotFound) {
			return fmt.Errorf("%w: task %s does not exist", ErrInvalidInput, taskID)
		}
		return err
	}
	if task.FormID != formID {
		return fmt.Errorf("%w: task %s expects form %s", ErrInvalidInput, taskID, task.FormID)
	}
	if task.Status == workflowmodel.TaskStatusCompleted {
		return fmt.Errorf("%w: task %s is already completed", ErrInvalidInput, taskID)
	}
	if task.AssignedTo != submitterID {
		return fmt.Errorf("%w: task %s is assigned to another user", ErrForbidden, taskID)
	}
	return nil
}

func (s *FormService) triggerInheritance(ctx context.Context, form *model.Form, response *model.FormResponse) {
	if s.inheritance == nil {
		return
	}
	projectID := form.ProjectID
	trigger := inheritance.Trigger{
		SourceFormID:   form.ID,
		FormResponseID: response.ID,
		ResponseData:   response.ResponseData,
		ProjectID:      &projectID,
		SubmitterID:    response.UserID,
	}

	run := func(ctx context.Context) {
		if _, err := s.inheritance.Run(ctx, trigger); err != nil {
			slog.ErrorContext(ctx, "form inheritance failed",
				"sourceFormID", trigger.SourceFormID,
				"formResponseID", trigger.FormResponseID,
				"error", err,
			)
		}
	}
	if !s.async {
		run(ctx)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		run(context.WithoutCancel(ctx))
	}()
}

// Wait blocks until background inheritance runs have finished.
func (s *FormService) Wait() {
	s.wg.Wait()
}

// GetResponse retrieves a form response by its ID.
func (s *FormService) GetResponse(ctx context.Context, responseID uuid.UUID) (*model.FormResponse, error) {
	var response model.FormResponse
	result := s.db.WithContext(ctx).First(&response, "id = ?", responseID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("form response %s: %w", responseID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve form response: %w", result.Error)
	}
	return &response, nil
}

func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	return obj != nil
}
