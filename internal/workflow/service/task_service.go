package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	formmodel "github.com/formflow/backend/internal/form/model"
	"github.com/formflow/backend/internal/workflow/model"
	"github.com/formflow/backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	Status *model.TaskStatus
	Offset *int
	Limit  *int
}

// InsertTask persists a single task.
func (s *TaskService) InsertTask(ctx context.Context, task *model.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTaskByID retrieves a task by its ID.
func (s *TaskService) GetTaskByID(ctx context.Context, taskID uuid.UUID) (*model.Task, error) {
	if taskID == uuid.Nil {
		return nil, fmt.Errorf("task ID cannot be nil")
	}

	var task model.Task
	result := s.db.WithContext(ctx).First(&task, "id = ?", taskID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve task: %w", result.Error)
	}
	return &task, nil
}

// ListForAssignee returns the tasks assigned to userID, most urgent due date first.
func (s *TaskService) ListForAssignee(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]model.Task, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user ID cannot be nil")
	}
	return s.list(ctx, s.db.WithContext(ctx).Where("assigned_to = ?", userID), filter)
}

// ListByProject returns the tasks of a project.
func (s *TaskService) ListByProject(ctx context.Context, projectID uuid.UUID, filter TaskFilter) ([]model.Task, error) {
	if projectID == uuid.Nil {
		return nil, fmt.Errorf("project ID cannot be nil")
	}
	return s.list(ctx, s.db.WithContext(ctx).Where("project_id = ?", projectID), filter)
}

// ListBySourceResponse returns the tasks spawned by a form response.
func (s *TaskService) ListBySourceResponse(ctx context.Context, formResponseID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	result := s.db.WithContext(ctx).Where("source_form_response_id = ?", formResponseID).Order("created_at ASC").Find(&tasks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", result.Error)
	}
	return tasks, nil
}

func (s *TaskService) list(ctx context.Context, query *gorm.DB, filter TaskFilter) ([]model.Task, error) {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)

	var tasks []model.Task
	result := query.Order("due_date ASC").Order("created_at DESC").Offset(offset).Limit(limit).Find(&tasks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", result.Error)
	}
	// Return empty slice instead of error when no tasks found
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// CompleteTask marks a task completed with the response submitted on its target form.
func (s *TaskService) CompleteTask(ctx context.Context, taskID, formResponseID uuid.UUID) error {
	if taskID == uuid.Nil {
		return fmt.Errorf("task ID cannot be nil")
	}
	if formResponseID == uuid.Nil {
		return fmt.Errorf("form response ID cannot be nil")
	}

	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status <> ?", taskID, model.TaskStatusCompleted).
		Updates(map[string]any{
			"status":           model.TaskStatusCompleted,
			"form_response_id": formResponseID,
			"completed_at":     now,
			"updated_at":       now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete task: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up task: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return fmt.Errorf("task %s: %w", taskID, ErrAlreadyCompleted)
}

// CompleteTaskWithResponse completes a task with a stored response. The
// response must answer the task's target form and be submitted by the assignee.
func (s *TaskService) CompleteTaskWithResponse(ctx context.Context, taskID, formResponseID uuid.UUID) error {
	if formResponseID == uuid.Nil {
		return fmt.Errorf("%w: form response ID cannot be nil", ErrInvalidInput)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := NewTaskService(tx)
		task, err := tasks.GetTaskByID(ctx, taskID)
		if err != nil {
			return err
		}

		var response formmodel.FormResponse
		if err := tx.First(&response, "id = ?", formResponseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: form response %s does not exist", ErrInvalidInput, formResponseID)
			}
			return fmt.Errorf("failed to retrieve form response: %w", err)
		}
		if response.FormID != task.FormID {
			return fmt.Errorf("%w: form response %s does not answer form %s", ErrInvalidInput, formResponseID, task.FormID)
		}
		if response.UserID == nil || *response.UserID != task.AssignedTo {
			return fmt.Errorf("%w: form response %s was not submitted by the assignee", ErrInvalidInput, formResponseID)
		}

		return tasks.CompleteTask(ctx, task.ID, formResponseID)
	})
}

// UpdateTaskStatus updates a single task's status.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status model.TaskStatus) error {
	if taskID == uuid.Nil {
		return fmt.Errorf("task ID cannot be nil")
	}
	if status == "" {
		return fmt.Errorf("task status cannot be empty")
	}

	result := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", taskID).
		Update("status", status)

	if result.Error != nil {
		return fmt.Errorf("failed to update task status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	return nil
}
