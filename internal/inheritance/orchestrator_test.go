package inheritance

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/formflow/backend/internal/workflow/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu      sync.Mutex
	results []*Result
}

func (o *recordingObserver) ObserveInheritance(result *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()
	sourceFormID := uuid.New()
	projectID := uuid.New()
	assignee := uuid.New()

	t.Run("Partial failure does not stop siblings", func(t *testing.T) {
		templates := []model.TaskTemplate{
			staticTemplate(assignee, &projectID),
			staticTemplate(assignee, &projectID),
			staticTemplate(assignee, &projectID),
		}
		failing := templates[1].ID

		matcher := new(MockTemplateMatcher)
		matcher.On("SelectActiveTemplates", mock.Anything, sourceFormID, &projectID).Return(templates, nil)
		tasks := new(MockTaskWriter)
		tasks.On("InsertTask", mock.Anything, mock.MatchedBy(func(task *model.Task) bool { return *task.TemplateID == failing })).
			Return(errors.New("constraint violation"))
		tasks.On("InsertTask", mock.Anything, mock.MatchedBy(func(task *model.Task) bool { return *task.TemplateID != failing })).
			Return(nil)
		notifications := new(MockNotificationWriter)
		notifications.On("InsertNotification", mock.Anything, mock.Anything).Return(nil)

		observer := &recordingObserver{}
		o := NewOrchestrator(matcher, newTestSpawner(nil, tasks, notifications), WithConcurrency(2), WithObserver(observer))

		result, err := o.Run(ctx, Trigger{
			SourceFormID:   sourceFormID,
			FormResponseID: uuid.New(),
			ResponseData:   []byte(`{}`),
			ProjectID:      &projectID,
		})
		require.NoError(t, err)

		assert.Equal(t, 3, result.Matched)
		assert.Len(t, result.Created, 2)
		assert.Empty(t, result.Skipped)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, failing, result.Failed[0].TemplateID)
		tasks.AssertNumberOfCalls(t, "InsertTask", 3)
		notifications.AssertNumberOfCalls(t, "InsertNotification", 2)
		require.Len(t, observer.results, 1)
		assert.Same(t, result, observer.results[0])
	})

	t.Run("No templates is not an error", func(t *testing.T) {
		matcher := new(MockTemplateMatcher)
		matcher.On("SelectActiveTemplates", mock.Anything, sourceFormID, (*uuid.UUID)(nil)).Return([]model.TaskTemplate{}, nil)
		tasks := new(MockTaskWriter)

		result, err := NewOrchestrator(matcher, newTestSpawner(nil, tasks, nil)).Run(ctx, Trigger{SourceFormID: sourceFormID})
		require.NoError(t, err)
		assert.True(t, result.NoTemplates())
		assert.Empty(t, result.Created)
		tasks.AssertNotCalled(t, "InsertTask", mock.Anything, mock.Anything)
	})

	t.Run("Template fetch failure is returned", func(t *testing.T) {
		matcher := new(MockTemplateMatcher)
		matcher.On("SelectActiveTemplates", mock.Anything, sourceFormID, (*uuid.UUID)(nil)).Return(nil, errors.New("db down"))

		result, err := NewOrchestrator(matcher, newTestSpawner(nil, nil, nil)).Run(ctx, Trigger{SourceFormID: sourceFormID})
		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("Running twice duplicates tasks", func(t *testing.T) {
		templates := []model.TaskTemplate{staticTemplate(assignee, &projectID)}
		matcher := new(MockTemplateMatcher)
		matcher.On("SelectActiveTemplates", mock.Anything, sourceFormID, (*uuid.UUID)(nil)).Return(templates, nil)
		tasks := new(MockTaskWriter)
		tasks.On("InsertTask", mock.Anything, mock.Anything).Return(nil)
		notifications := new(MockNotificationWriter)
		notifications.On("InsertNotification", mock.Anything, mock.Anything).Return(nil)

		o := NewOrchestrator(matcher, newTestSpawner(nil, tasks, notifications))
		trigger := Trigger{SourceFormID: sourceFormID, FormResponseID: uuid.New()}

		first, err := o.Run(ctx, trigger)
		require.NoError(t, err)
		second, err := o.Run(ctx, trigger)
		require.NoError(t, err)

		require.Len(t, first.Created, 1)
		require.Len(t, second.Created, 1)
		assert.NotEqual(t, first.Created[0], second.Created[0])
		tasks.AssertNumberOfCalls(t, "InsertTask", 2)
	})

	t.Run("Skips and notification failures are aggregated", func(t *testing.T) {
		unassigned := staticTemplate(assignee, &projectID)
		unassigned.AssigneeStatic = nil
		templates := []model.TaskTemplate{unassigned, staticTemplate(assignee, &projectID)}

		matcher := new(MockTemplateMatcher)
		matcher.On("SelectActiveTemplates", mock.Anything, sourceFormID, (*uuid.UUID)(nil)).Return(templates, nil)
		tasks := new(MockTaskWriter)
		tasks.On("InsertTask", mock.Anything, mock.Anything).Return(nil)
		notifications := new(MockNotificationWriter)
		notifications.On("InsertNotification", mock.Anything, mock.Anything).Return(errors.New("timeout"))

		result, err := NewOrchestrator(matcher, newTestSpawner(nil, tasks, notifications)).Run(ctx, Trigger{SourceFormID: sourceFormID})
		require.NoError(t, err)

		assert.Len(t, result.Created, 1)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, unassigned.ID, result.Skipped[0].TemplateID)
		assert.ErrorIs(t, result.Skipped[0].Reason, ErrUnresolvedAssignee)
		assert.Len(t, result.NotificationFailures, 1)
		assert.Empty(t, result.Failed)
	})

	t.Run("Malformed response data spawns with empty payload", func(t *testing.T) {
		tmpl := staticTemplate(assignee, &projectID)
		tmpl.InheritanceMapping = json.RawMessage(`{"name":"fullName"}`)
		matcher := new(MockTemplateMatcher)
		matcher.On("SelectActiveTemplates", mock.Anything, sourceFormID, (*uuid.UUID)(nil)).Return([]model.TaskTemplate{tmpl}, nil)
		tasks := new(MockTaskWriter)
		tasks.On("InsertTask", mock.Anything, mock.Anything).Return(nil)
		notifications := new(MockNotificationWriter)
		notifications.On("InsertNotification", mock.Anything, mock.Anything).Return(nil)

		result, err := NewOrchestrator(matcher, newTestSpawner(nil, tasks, notifications)).Run(ctx, Trigger{
			SourceFormID: sourceFormID,
			ResponseData: []byte(`[1,2,3]`),
		})
		require.NoError(t, err)
		assert.Len(t, result.Created, 1)
	})
}

func TestOrchestrator_EndToEndExample(t *testing.T) {
	ctx := context.Background()
	f1, f2, u1 := uuid.New(), uuid.New(), uuid.New()
	projectID := uuid.New()

	tmpl := model.TaskTemplate{
		BaseModel:          model.BaseModel{ID: uuid.New()},
		Name:               "Complete F2",
		SourceFormID:       f1,
		TargetFormID:       f2,
		IsActive:           true,
		AssignmentType:     model.AssignmentTypeStatic,
		AssigneeStatic:     &u1,
		DueDays:            ptr(7),
		InheritanceMapping: json.RawMessage(`{"name":"fullName"}`),
		ProjectID:          &projectID,
	}

	matcher := new(MockTemplateMatcher)
	matcher.On("SelectActiveTemplates", mock.Anything, f1, (*uuid.UUID)(nil)).Return([]model.TaskTemplate{tmpl}, nil)

	var created *model.Task
	tasks := new(MockTaskWriter)
	tasks.On("InsertTask", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*model.Task)
	}).Return(nil)

	var notified *model.Notification
	notifications := new(MockNotificationWriter)
	notifications.On("InsertNotification", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		notified = args.Get(1).(*model.Notification)
	}).Return(nil)

	result, err := NewOrchestrator(matcher, newTestSpawner(nil, tasks, notifications)).Run(ctx, Trigger{
		SourceFormID:   f1,
		FormResponseID: uuid.New(),
		ResponseData:   []byte(`{"fullName":"Ana"}`),
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)

	require.NotNil(t, created)
	assert.Equal(t, u1, created.AssignedTo)
	assert.Equal(t, f2, created.FormID)
	assert.Equal(t, fixedNow.AddDate(0, 0, 7), *created.DueDate)
	var meta model.TaskMetadata
	require.NoError(t, json.Unmarshal(created.Metadata, &meta))
	assert.JSONEq(t, `{"name":"fullName"}`, string(meta.InheritanceMapping))

	require.NotNil(t, notified)
	assert.Equal(t, u1, notified.UserID)
	assert.Equal(t, model.NotificationTypeTaskAssigned, notified.Type)
}
