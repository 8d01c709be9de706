package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	formmodel "github.com/formflow/backend/internal/form/model"
	"github.com/formflow/backend/internal/workflow/model"
)

func newTask(assignee, projectID uuid.UUID) *model.Task {
	return &model.Task{
		BaseModel:  model.BaseModel{ID: uuid.New()},
		Title:      "Review",
		Status:     model.TaskStatusPending,
		AssignedTo: assignee,
		FormID:     uuid.New(),
		ProjectID:  projectID,
		Priority:   model.PriorityMedium,
	}
}

func TestTaskService_InsertTask(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	service := NewTaskService(db)

	task := newTask(uuid.New(), uuid.New())

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(`INSERT INTO "tasks"`).WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectCommit()

	err := service.InsertTask(context.Background(), task)
	assert.NoError(t, err)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestTaskService_InsertTask_Nil(t *testing.T) {
	db, _ := setupTestDB(t)
	assert.Error(t, NewTaskService(db).InsertTask(context.Background(), nil))
}

func TestTaskService_GetTaskByID(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	service := NewTaskService(db)
	taskID := uuid.New()

	sqlMock.ExpectQuery(`SELECT \* FROM "tasks" WHERE id = \$1 ORDER BY "tasks"."id" LIMIT \$2`).
		WithArgs(taskID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "title"}).AddRow(taskID, "pending", "Review"))

	task, err := service.GetTaskByID(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, model.TaskStatusPending, task.Status)

	_, err = service.GetTaskByID(context.Background(), uuid.Nil)
	assert.Error(t, err)
}

func TestTaskService_CompleteTask(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	service := NewTaskService(db)
	taskID, responseID := uuid.New(), uuid.New()

	t.Run("Success", func(t *testing.T) {
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(`UPDATE "tasks" SET .* WHERE .*id = \$\d+ AND status <> \$\d+`).WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectCommit()

		assert.NoError(t, service.CompleteTask(context.Background(), taskID, responseID))
	})

	t.Run("Not found", func(t *testing.T) {
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(`UPDATE "tasks"`).WillReturnResult(sqlmock.NewResult(0, 0))
		sqlMock.ExpectCommit()
		sqlMock.ExpectQuery(`SELECT count\(\*\) FROM "tasks"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := service.CompleteTask(context.Background(), taskID, responseID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Already completed", func(t *testing.T) {
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(`UPDATE "tasks"`).WillReturnResult(sqlmock.NewResult(0, 0))
		sqlMock.ExpectCommit()
		sqlMock.ExpectQuery(`SELECT count\(\*\) FROM "tasks"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := service.CompleteTask(context.Background(), taskID, responseID)
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
	})

	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestTaskService_CompleteTaskWithResponse_SQLite(t *testing.T) {
	db := setupSQLiteDB(t)
	service := NewTaskService(db)
	ctx := context.Background()
	assignee, other := uuid.New(), uuid.New()

	task := newTask(assignee, uuid.New())
	require.NoError(t, service.InsertTask(ctx, task))

	store := func(formID uuid.UUID, userID *uuid.UUID) uuid.UUID {
		response := &formmodel.FormResponse{
			BaseModel:    formmodel.BaseModel{ID: uuid.New()},
			FormID:       formID,
			ProjectID:    task.ProjectID,
			ResponseData: json.RawMessage(`{}`),
			SubmittedAt:  time.Now().UTC(),
			IsAnonymous:  userID == nil,
			UserID:       userID,
		}
		require.NoError(t, db.Create(response).Error)
		return response.ID
	}

	tests := []struct {
		name       string
		responseID uuid.UUID
	}{
		{name: "missing response", responseID: uuid.New()},
		{name: "other form", responseID: store(uuid.New(), &assignee)},
		{name: "other submitter", responseID: store(task.FormID, &other)},
		{name: "anonymous response", responseID: store(task.FormID, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.CompleteTaskWithResponse(ctx, task.ID, tt.responseID)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	err := service.CompleteTaskWithResponse(ctx, uuid.New(), store(task.FormID, &assignee))
	assert.ErrorIs(t, err, ErrNotFound)

	own := store(task.FormID, &assignee)
	require.NoError(t, service.CompleteTaskWithResponse(ctx, task.ID, own))

	stored, err := service.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, stored.Status)
	require.NotNil(t, stored.FormResponseID)
	assert.Equal(t, own, *stored.FormResponseID)

	err = service.CompleteTaskWithResponse(ctx, task.ID, own)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
	err = service.CompleteTask(ctx, task.ID, own)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestTaskService_ListAndComplete_SQLite(t *testing.T) {
	db := setupSQLiteDB(t)
	service := NewTaskService(db)
	ctx := context.Background()

	assignee, projectID := uuid.New(), uuid.New()
	first := newTask(assignee, projectID)
	second := newTask(assignee, projectID)
	other := newTask(uuid.New(), projectID)
	for _, task := range []*model.Task{first, second, other} {
		require.NoError(t, service.InsertTask(ctx, task))
	}

	mine, err := service.ListForAssignee(ctx, assignee, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	byProject, err := service.ListByProject(ctx, projectID, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, byProject, 3)

	responseID := uuid.New()
	require.NoError(t, service.CompleteTask(ctx, first.ID, responseID))

	completed := model.TaskStatusCompleted
	done, err := service.ListForAssignee(ctx, assignee, TaskFilter{Status: &completed})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, first.ID, done[0].ID)
	require.NotNil(t, done[0].FormResponseID)
	assert.Equal(t, responseID, *done[0].FormResponseID)
	require.NotNil(t, done[0].CompletedAt)
	assert.WithinDuration(t, time.Now().UTC(), *done[0].CompletedAt, time.Minute)

	limit := 1
	paged, err := service.ListByProject(ctx, projectID, TaskFilter{Limit: &limit})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}
