package inheritance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/formflow/backend/internal/workflow/model"
	"github.com/google/uuid"
)

// ErrNoProject is returned when neither the trigger nor the template carries a project.
var ErrNoProject = errors.New("no project for task")

// OutcomeStatus is the result of processing a single template.
type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// SpawnRequest describes the response that triggered spawning.
type SpawnRequest struct {
	SourceFormID   uuid.UUID
	FormResponseID uuid.UUID
	Data           Payload
	ProjectID      *uuid.UUID
	SubmitterID    *uuid.UUID
}

// TemplateOutcome is the result of spawning for one template.
type TemplateOutcome struct {
	TemplateID      uuid.UUID
	Status          OutcomeStatus
	Task            *model.Task // set when Status is created
	Reason          error       // why the template was skipped
	Err             error       // why task persistence failed
	NotificationErr error       // notification failure, the task still stands
}

// Spawner turns a matched template into a task and its notification.
type Spawner struct {
	resolver      *AssigneeResolver
	tasks         TaskWriter
	notifications NotificationWriter
	now           func() time.Time
}

func NewSpawner(resolver *AssigneeResolver, tasks TaskWriter, notifications NotificationWriter) *Spawner {
	return &Spawner{
		resolver:      resolver,
		tasks:         tasks,
		notifications: notifications,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Spawn creates the task for tmpl. Missing assignee or project skips the
// template. A task insert failure fails it without a notification attempt.
// A notification failure is recorded but the outcome stays created.
func (s *Spawner) Spawn(ctx context.Context, tmpl *model.TaskTemplate, req SpawnRequest) TemplateOutcome {
	outcome := TemplateOutcome{TemplateID: tmpl.ID}
	logAttrs := []any{
		"templateID", tmpl.ID,
		"sourceFormID", req.SourceFormID,
		"formResponseID", req.FormResponseID,
	}

	assignment, err := s.resolver.Resolve(ctx, tmpl, req.Data, req.SubmitterID)
	if err != nil {
		slog.WarnContext(ctx, "skipping template, assignee unresolved", append(logAttrs, "reason", err)...)
		outcome.Status = OutcomeSkipped
		outcome.Reason = err
		return outcome
	}

	now := s.now()
	dueDate := offsetDays(now, tmpl.DueDays)
	minDate := offsetDays(now, tmpl.MinDays)

	projectID := req.ProjectID
	if projectID == nil || *projectID == uuid.Nil {
		projectID = tmpl.ProjectID
	}
	if projectID == nil || *projectID == uuid.Nil {
		slog.WarnContext(ctx, "skipping template, no project", append(logAttrs, "reason", ErrNoProject)...)
		outcome.Status = OutcomeSkipped
		outcome.Reason = ErrNoProject
		return outcome
	}

	task, err := s.buildTask(ctx, tmpl, req, assignment.UserID, *projectID, dueDate, minDate)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build task", append(logAttrs, "error", err)...)
		outcome.Status = OutcomeFailed
		outcome.Err = err
		return outcome
	}

	if err := s.tasks.InsertTask(ctx, task); err != nil {
		slog.ErrorContext(ctx, "failed to persist spawned task", append(logAttrs, "error", err)...)
		outcome.Status = OutcomeFailed
		outcome.Err = fmt.Errorf("failed to insert task: %w", err)
		return outcome
	}
	outcome.Status = OutcomeCreated
	outcome.Task = task

	slog.InfoContext(ctx, "task spawned from template", append(logAttrs,
		"taskID", task.ID,
		"assignedTo", task.AssignedTo,
		"assignmentSource", assignment.Source,
	)...)

	notification, err := buildNotification(tmpl, task)
	if err == nil {
		err = s.notifications.InsertNotification(ctx, notification)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to create task notification", append(logAttrs, "taskID", task.ID, "error", err)...)
		outcome.NotificationErr = fmt.Errorf("failed to insert notification: %w", err)
	}

	return outcome
}

func (s *Spawner) buildTask(ctx context.Context, tmpl *model.TaskTemplate, req SpawnRequest, assignee, projectID uuid.UUID, dueDate, minDate *time.Time) (*model.Task, error) {
	mapping, err := ParseFieldMapping(tmpl.InheritanceMapping)
	if err != nil {
		slog.WarnContext(ctx, "ignoring malformed inheritance mapping", "templateID", tmpl.ID, "error", err)
	}
	if len(mapping.Skipped) > 0 {
		slog.WarnContext(ctx, "skipped non-string inheritance mapping entries", "templateID", tmpl.ID, "targets", mapping.Skipped)
	}

	meta := model.TaskMetadata{
		InheritanceMapping: embeddableMapping(tmpl),
		MinCompletionDate:  minDate,
	}
	if initial := MapFields(mapping, req.Data); initial.Len() > 0 {
		encoded, err := json.Marshal(initial)
		if err != nil {
			return nil, fmt.Errorf("failed to encode initial data: %w", err)
		}
		meta.InitialData = encoded
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task metadata: %w", err)
	}

	priority := tmpl.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	sourceFormID := req.SourceFormID
	responseID := req.FormResponseID
	templateID := tmpl.ID

	return &model.Task{
		BaseModel:            model.BaseModel{ID: uuid.New()},
		Title:                tmpl.Name,
		Description:          tmpl.Description,
		Status:               model.TaskStatusPending,
		AssignedTo:           assignee,
		DueDate:              dueDate,
		MinDate:              minDate,
		FormID:               tmpl.TargetFormID,
		SourceFormID:         &sourceFormID,
		SourceFormResponseID: &responseID,
		TemplateID:           &templateID,
		ProjectID:            projectID,
		Priority:             priority,
		Metadata:             metadata,
	}, nil
}

func buildNotification(tmpl *model.TaskTemplate, task *model.Task) (*model.Notification, error) {
	metadata, err := json.Marshal(model.TaskAssignedMetadata{
		TaskID:             task.ID,
		FormID:             task.FormID,
		MinDays:            tmpl.MinDays,
		DueDays:            tmpl.DueDays,
		InheritanceMapping: embeddableMapping(tmpl),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification metadata: %w", err)
	}

	message := fmt.Sprintf("You have been assigned a new task: %s", task.Title)
	if task.DueDate != nil {
		message = fmt.Sprintf("%s (due %s)", message, task.DueDate.Format("2006-01-02"))
	}
	projectID := task.ProjectID

	return &model.Notification{
		UserID:    task.AssignedTo,
		ProjectID: &projectID,
		Title:     "New task assigned",
		Message:   message,
		Type:      model.NotificationTypeTaskAssigned,
		Read:      false,
		Metadata:  metadata,
	}, nil
}

// embeddableMapping returns the template mapping when it is valid JSON.
func embeddableMapping(tmpl *model.TaskTemplate) json.RawMessage {
	if len(tmpl.InheritanceMapping) == 0 || !json.Valid(tmpl.InheritanceMapping) {
		return nil
	}
	return tmpl.InheritanceMapping
}

func offsetDays(now time.Time, days *int) *time.Time {
	if days == nil {
		return nil
	}
	t := now.AddDate(0, 0, *days)
	return &t
}
