package inheritance

import (
	"context"
	"time"

	"github.com/formflow/backend/internal/workflow/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTemplateMatcher struct {
	mock.Mock
}

func (m *MockTemplateMatcher) SelectActiveTemplates(ctx context.Context, sourceFormID uuid.UUID, projectID *uuid.UUID) ([]model.TaskTemplate, error) {
	args := m.Called(ctx, sourceFormID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TaskTemplate), args.Error(1)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) LookupUserByEmail(ctx context.Context, email string) (uuid.UUID, bool, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

type MockTaskWriter struct {
	mock.Mock
}

func (m *MockTaskWriter) InsertTask(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

type MockNotificationWriter struct {
	mock.Mock
}

func (m *MockNotificationWriter) InsertNotification(ctx context.Context, notification *model.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func newTestSpawner(directory UserDirectory, tasks TaskWriter, notifications NotificationWriter) *Spawner {
	s := NewSpawner(NewAssigneeResolver(directory), tasks, notifications)
	s.now = func() time.Time { return fixedNow }
	return s
}

func ptr[T any](v T) *T {
	return &v
}

func staticTemplate(assignee uuid.UUID, projectID *uuid.UUID) model.TaskTemplate {
	return model.TaskTemplate{
		BaseModel:      model.BaseModel{ID: uuid.New()},
		Name:           "Follow-up review",
		SourceFormID:   uuid.New(),
		TargetFormID:   uuid.New(),
		IsActive:       true,
		AssignmentType: model.AssignmentTypeStatic,
		AssigneeStatic: &assignee,
		ProjectID:      projectID,
	}
}
