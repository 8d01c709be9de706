package inheritance

import (
	"context"

	"github.com/formflow/backend/internal/workflow/model"
	"github.com/google/uuid"
)

// TemplateMatcher returns the active templates whose source form is
// sourceFormID. With a project id, only templates of that project or
// unscoped templates are returned.
type TemplateMatcher interface {
	SelectActiveTemplates(ctx context.Context, sourceFormID uuid.UUID, projectID *uuid.UUID) ([]model.TaskTemplate, error)
}

// UserDirectory resolves users by exact email match.
type UserDirectory interface {
	LookupUserByEmail(ctx context.Context, email string) (uuid.UUID, bool, error)
}

type TaskWriter interface {
	InsertTask(ctx context.Context, task *model.Task) error
}

type NotificationWriter interface {
	InsertNotification(ctx context.Context, notification *model.Notification) error
}

// Observer receives the aggregate result of every orchestrator run.
type Observer interface {
	ObserveInheritance(result *Result)
}
