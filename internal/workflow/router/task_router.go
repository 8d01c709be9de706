package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formflow/backend/internal/auth"
	"github.com/formflow/backend/internal/workflow/model"
	"github.com/formflow/backend/internal/workflow/service"
	"github.com/formflow/backend/utils"
)

// MembershipChecker reports whether a user may see the tasks of a project.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
}

type TaskRouter struct {
	service *service.TaskService
	members MembershipChecker
}

func NewTaskRouter(service *service.TaskService, members MembershipChecker) *TaskRouter {
	return &TaskRouter{service: service, members: members}
}

func (tr *TaskRouter) Register(rg *gin.RouterGroup) {
	rg.GET("/tasks", tr.HandleListMyTasks)
	rg.GET("/tasks/:id", tr.HandleGetTask)
	rg.POST("/tasks/:id/start", tr.HandleStartTask)
	rg.POST("/tasks/:id/complete", tr.HandleCompleteTask)
	rg.GET("/projects/:id/tasks", tr.HandleListProjectTasks)
}

type completeTaskRequest struct {
	FormResponseID uuid.UUID `json:"formResponseId" binding:"required"`
}

// HandleListMyTasks handles GET /api/v1/tasks requests.
// Optional Query Filters: status, offset, limit
func (tr *TaskRouter) HandleListMyTasks(c *gin.Context) {
	filter, ok := taskFilter(c)
	if !ok {
		return
	}
	authCtx := auth.GetAuthContext(c.Request.Context())
	tasks, err := tr.service.ListForAssignee(c.Request.Context(), authCtx.UserID, filter)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// HandleListProjectTasks handles GET /api/v1/projects/:id/tasks requests.
func (tr *TaskRouter) HandleListProjectTasks(c *gin.Context) {
	projectID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	filter, ok := taskFilter(c)
	if !ok {
		return
	}
	authCtx := auth.GetAuthContext(c.Request.Context())
	member, err := tr.members.IsMember(c.Request.Context(), authCtx.UserID, projectID)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	if !member {
		utils.RespondError(c, http.StatusForbidden, "forbidden", "project membership required")
		return
	}

	tasks, err := tr.service.ListByProject(c.Request.Context(), projectID, filter)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// HandleGetTask handles GET /api/v1/tasks/:id requests.
// The assignee and members of the task's project may read it.
func (tr *TaskRouter) HandleGetTask(c *gin.Context) {
	task, ok := tr.loadTask(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

// HandleStartTask handles POST /api/v1/tasks/:id/start requests.
func (tr *TaskRouter) HandleStartTask(c *gin.Context) {
	task, ok := tr.loadTask(c, true)
	if !ok {
		return
	}
	if task.Status != model.TaskStatusPending {
		utils.RespondError(c, http.StatusConflict, "conflict", "only pending tasks can be started")
		return
	}
	if err := tr.service.UpdateTaskStatus(c.Request.Context(), task.ID, model.TaskStatusInProgress); err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	task.Status = model.TaskStatusInProgress
	c.JSON(http.StatusOK, task)
}

// HandleCompleteTask handles POST /api/v1/tasks/:id/complete requests.
// Only the assignee may complete a task, with their own response to the task's form.
func (tr *TaskRouter) HandleCompleteTask(c *gin.Context) {
	var req completeTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	task, ok := tr.loadTask(c, true)
	if !ok {
		return
	}
	if task.Status == model.TaskStatusCompleted {
		utils.RespondError(c, http.StatusConflict, "conflict", "task is already completed")
		return
	}

	if err := tr.service.CompleteTaskWithResponse(c.Request.Context(), task.ID, req.FormResponseID); err != nil {
		if errors.Is(err, service.ErrAlreadyCompleted) {
			utils.RespondError(c, http.StatusConflict, "conflict", "task is already completed")
			return
		}
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	updated, err := tr.service.GetTaskByID(c.Request.Context(), task.ID)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// loadTask fetches the task of the :id parameter and checks access. With
// assigneeOnly set, project members other than the assignee are rejected.
func (tr *TaskRouter) loadTask(c *gin.Context, assigneeOnly bool) (*model.Task, bool) {
	taskID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return nil, false
	}
	task, err := tr.service.GetTaskByID(c.Request.Context(), taskID)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return nil, false
	}

	authCtx := auth.GetAuthContext(c.Request.Context())
	if task.AssignedTo == authCtx.UserID {
		return task, true
	}
	if !assigneeOnly {
		member, err := tr.members.IsMember(c.Request.Context(), authCtx.UserID, task.ProjectID)
		if err != nil {
			utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
			return nil, false
		}
		if member {
			return task, true
		}
	}
	utils.RespondError(c, http.StatusForbidden, "forbidden", "task is assigned to another user")
	return nil, false
}

func taskFilter(c *gin.Context) (service.TaskFilter, bool) {
	var filter service.TaskFilter
	if status := c.Query("status"); status != "" {
		s := model.TaskStatus(status)
		switch s {
		case model.TaskStatusPending, model.TaskStatusInProgress, model.TaskStatusCompleted:
		default:
			utils.RespondError(c, http.StatusBadRequest, "invalid_request", "invalid 'status' query parameter")
			return filter, false
		}
		filter.Status = &s
	}
	offset, ok := utils.QueryInt(c, "offset")
	if !ok {
		return filter, false
	}
	limit, ok := utils.QueryInt(c, "limit")
	if !ok {
		return filter, false
	}
	filter.Offset = offset
	filter.Limit = limit
	return filter, true
}
