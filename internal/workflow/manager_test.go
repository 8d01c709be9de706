package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/formflow/backend/internal/auth"
	formmodel "github.com/formflow/backend/internal/form/model"
	"github.com/formflow/backend/internal/inheritance"
	"github.com/formflow/backend/internal/workflow/model"
)

// roles is an in-memory stand-in for profiles and project memberships.
type roles struct {
	globalAdmins  map[uuid.UUID]bool
	projectAdmins map[uuid.UUID]bool
	members       map[uuid.UUID]bool
}

func (r roles) IsGlobalAdmin(_ context.Context, userID uuid.UUID) (bool, error) {
	return r.globalAdmins[userID], nil
}

func (r roles) IsProjectAdmin(_ context.Context, userID, _ uuid.UUID) (bool, error) {
	return r.projectAdmins[userID], nil
}

func (r roles) IsMember(_ context.Context, userID, _ uuid.UUID) (bool, error) {
	return r.members[userID], nil
}

type countingObserver struct {
	results []*inheritance.Result
}

func (o *countingObserver) ObserveInheritance(result *inheritance.Result) {
	o.results = append(o.results, result)
}

func setupManager(t *testing.T, r roles, observer inheritance.Observer) (*Manager, *gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.TaskTemplate{}, &model.Task{}, &model.Notification{}, &formmodel.FormResponse{}))

	m := NewManager(db, Dependencies{Admins: r, Members: r, Observer: observer, Concurrency: 2})

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader("X-Test-User")); err == nil {
			c.Request = c.Request.WithContext(auth.WithAuthContext(c.Request.Context(), &auth.AuthContext{UserID: id}))
		}
		c.Next()
	})
	m.RegisterRoutes(engine.Group("/api/v1", auth.RequireAuth()))
	return m, engine, db
}

func storeResponse(t *testing.T, db *gorm.DB, formID, projectID uuid.UUID, userID *uuid.UUID) uuid.UUID {
	t.Helper()
	response := &formmodel.FormResponse{
		BaseModel:    formmodel.BaseModel{ID: uuid.New()},
		FormID:       formID,
		ProjectID:    projectID,
		ResponseData: json.RawMessage(`{"fullName":"Ana"}`),
		SubmittedAt:  time.Now().UTC(),
		IsAnonymous:  userID == nil,
		UserID:       userID,
	}
	require.NoError(t, db.Create(response).Error)
	return response.ID
}

func call(t *testing.T, h http.Handler, method, path string, user uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user.String())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestManager_TemplateToTaskFlow(t *testing.T) {
	admin, assignee, outsider := uuid.New(), uuid.New(), uuid.New()
	observer := &countingObserver{}
	m, engine, db := setupManager(t, roles{
		globalAdmins: map[uuid.UUID]bool{admin: true},
		members:      map[uuid.UUID]bool{admin: true},
	}, observer)
	sourceForm, targetForm, projectID := uuid.New(), uuid.New(), uuid.New()

	tmplBody := map[string]any{
		"name":               "Follow-up",
		"sourceFormId":       sourceForm,
		"targetFormId":       targetForm,
		"assignmentType":     "static",
		"assigneeStatic":     assignee,
		"dueDays":            3,
		"inheritanceMapping": map[string]string{"name": "fullName"},
	}

	rec := call(t, engine, http.MethodPost, "/api/v1/templates", outsider, tmplBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, engine, http.MethodPost, "/api/v1/templates", admin, map[string]any{"name": "broken"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, engine, http.MethodPost, "/api/v1/templates", admin, tmplBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tmpl model.TaskTemplate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tmpl))
	assert.True(t, tmpl.IsActive)
	assert.Equal(t, model.PriorityMedium, tmpl.Priority)
	require.NotNil(t, tmpl.CreatedBy)
	assert.Equal(t, admin, *tmpl.CreatedBy)

	rec = call(t, engine, http.MethodGet, "/api/v1/forms/"+sourceForm.String()+"/templates", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []model.TaskTemplate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	responseID := uuid.New()
	result, err := m.Orchestrator().Run(context.Background(), inheritance.Trigger{
		SourceFormID:   sourceForm,
		FormResponseID: responseID,
		ResponseData:   []byte(`{"fullName":"Ana"}`),
		ProjectID:      &projectID,
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	require.Len(t, observer.results, 1)

	rec = call(t, engine, http.MethodGet, "/api/v1/tasks?status=pending", assignee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	task := mine[0]
	assert.Equal(t, targetForm, task.FormID)

	rec = call(t, engine, http.MethodGet, "/api/v1/tasks?status=bogus", assignee, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, engine, http.MethodGet, "/api/v1/tasks/"+task.ID.String(), outsider, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, engine, http.MethodGet, "/api/v1/tasks/"+task.ID.String(), admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, engine, http.MethodPost, "/api/v1/tasks/"+task.ID.String()+"/start", assignee, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, engine, http.MethodGet, "/api/v1/notifications/unread-count", assignee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":1}`, rec.Body.String())

	rec = call(t, engine, http.MethodGet, "/api/v1/notifications?unread=true", assignee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifications []model.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifications))
	require.Len(t, notifications, 1)

	rec = call(t, engine, http.MethodPost, "/api/v1/notifications/"+notifications[0].ID.String()+"/read", outsider, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, engine, http.MethodPost, "/api/v1/notifications/"+notifications[0].ID.String()+"/read", assignee, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	completePath := "/api/v1/tasks/" + task.ID.String() + "/complete"
	ownResponse := storeResponse(t, db, targetForm, projectID, &assignee)
	completion := map[string]any{"formResponseId": ownResponse}
	rec = call(t, engine, http.MethodPost, completePath, admin, completion)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rejected := map[string]uuid.UUID{
		"missing response":   uuid.New(),
		"other form":         storeResponse(t, db, sourceForm, projectID, &assignee),
		"other submitter":    storeResponse(t, db, targetForm, projectID, &outsider),
		"anonymous response": storeResponse(t, db, targetForm, projectID, nil),
	}
	for name, responseID := range rejected {
		rec = call(t, engine, http.MethodPost, completePath, assignee, map[string]any{"formResponseId": responseID})
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	rec = call(t, engine, http.MethodGet, "/api/v1/tasks/"+task.ID.String(), assignee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stillOpen model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stillOpen))
	assert.Equal(t, model.TaskStatusInProgress, stillOpen.Status)

	rec = call(t, engine, http.MethodPost, completePath, assignee, completion)
	require.Equal(t, http.StatusOK, rec.Code)
	var completed model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &completed))
	assert.Equal(t, model.TaskStatusCompleted, completed.Status)
	require.NotNil(t, completed.FormResponseID)
	assert.Equal(t, ownResponse, *completed.FormResponseID)

	rec = call(t, engine, http.MethodPost, completePath, assignee, completion)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestManager_ProjectAdminTemplates(t *testing.T) {
	projectAdmin := uuid.New()
	_, engine, _ := setupManager(t, roles{projectAdmins: map[uuid.UUID]bool{projectAdmin: true}}, nil)
	projectID := uuid.New()

	body := map[string]any{
		"name":           "Scoped",
		"sourceFormId":   uuid.New(),
		"targetFormId":   uuid.New(),
		"assignmentType": "static",
	}
	rec := call(t, engine, http.MethodPost, "/api/v1/templates", projectAdmin, body)
	assert.Equal(t, http.StatusForbidden, rec.Code, "unscoped templates need a global admin")

	body["projectId"] = projectID
	rec = call(t, engine, http.MethodPost, "/api/v1/templates", projectAdmin, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tmpl model.TaskTemplate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tmpl))

	body["isActive"] = false
	body["priority"] = "high"
	rec = call(t, engine, http.MethodPut, "/api/v1/templates/"+tmpl.ID.String(), projectAdmin, body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, engine, http.MethodGet, "/api/v1/templates/"+tmpl.ID.String(), projectAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.TaskTemplate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.IsActive)
	assert.Equal(t, model.PriorityHigh, updated.Priority)
	require.NotNil(t, updated.CreatedBy)
	assert.Equal(t, projectAdmin, *updated.CreatedBy)

	rec = call(t, engine, http.MethodGet, "/api/v1/templates/"+uuid.NewString(), projectAdmin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
