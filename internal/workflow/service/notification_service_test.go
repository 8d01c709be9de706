package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/backend/internal/workflow/model"
)

func TestNotificationService_InsertNotification(t *testing.T) {
	db, sqlMock := setupTestDB(t)
	service := NewNotificationService(db)

	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(`INSERT INTO "notifications"`).WillReturnResult(sqlmock.NewResult(1, 1))
	sqlMock.ExpectCommit()

	n := &model.Notification{
		UserID:  uuid.New(),
		Title:   "New task assigned",
		Message: "You have been assigned a new task: Review",
		Type:    model.NotificationTypeTaskAssigned,
	}
	require.NoError(t, service.InsertNotification(context.Background(), n))
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestNotificationService_ReadFlow_SQLite(t *testing.T) {
	db := setupSQLiteDB(t)
	service := NewNotificationService(db)
	ctx := context.Background()
	userID := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		n := &model.Notification{
			UserID:  userID,
			Title:   "New task assigned",
			Message: "msg",
			Type:    model.NotificationTypeTaskAssigned,
		}
		require.NoError(t, service.InsertNotification(ctx, n))
		ids = append(ids, n.ID)
	}
	require.NoError(t, service.InsertNotification(ctx, &model.Notification{
		UserID: uuid.New(), Title: "other", Message: "msg", Type: model.NotificationTypeTaskAssigned,
	}))

	count, err := service.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, service.MarkRead(ctx, userID, ids[0]))

	unread, err := service.ListForUser(ctx, userID, true, nil, nil)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	all, err := service.ListForUser(ctx, userID, false, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Users cannot mark notifications of others.
	err = service.MarkRead(ctx, uuid.New(), ids[1])
	assert.ErrorIs(t, err, ErrNotFound)
}
