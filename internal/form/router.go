package form

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formflow/backend/internal/auth"
	"github.com/formflow/backend/utils"
)

// ProjectAccess answers project role questions for the caller.
type ProjectAccess interface {
	IsMember(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
	IsProjectAdmin(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
}

type FormRouter struct {
	service *FormService
	access  ProjectAccess
}

func NewFormRouter(service *FormService, access ProjectAccess) *FormRouter {
	return &FormRouter{service: service, access: access}
}

// Register mounts the form routes. Rendering and submitting a form is open
// to anonymous callers; everything else goes on the authenticated group.
func (fr *FormRouter) Register(public, private *gin.RouterGroup) {
	public.GET("/forms/:id", fr.HandleGetForm)
	public.POST("/forms/:id/responses", fr.HandleSubmitResponse)

	private.POST("/forms", fr.HandleCreateForm)
	private.GET("/projects/:id/forms", fr.HandleListProjectForms)
	private.GET("/responses/:id", fr.HandleGetResponse)
}

type submitResponseRequest struct {
	ResponseData json.RawMessage `json:"responseData" binding:"required"`
	TaskID       *uuid.UUID      `json:"taskId"`
}

type submitResponseResult struct {
	ID          uuid.UUID `json:"id"`
	FormID      uuid.UUID `json:"formId"`
	SubmittedAt string    `json:"submittedAt"`
	Message     string    `json:"message"`
}

// HandleCreateForm handles POST /api/v1/forms requests.
// Only admins of the target project may create forms.
func (fr *FormRouter) HandleCreateForm(c *gin.Context) {
	var req CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	authCtx := auth.GetAuthContext(c.Request.Context())
	if !fr.check(c, fr.access.IsProjectAdmin, authCtx.UserID, req.ProjectID, "project admin role required") {
		return
	}

	form, err := fr.service.CreateForm(c.Request.Context(), req, &authCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, form)
}

// HandleGetForm handles GET /api/v1/forms/:id requests.
func (fr *FormRouter) HandleGetForm(c *gin.Context) {
	formID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	form, err := fr.service.GetForm(c.Request.Context(), formID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, form.View())
}

// HandleListProjectForms handles GET /api/v1/projects/:id/forms requests.
func (fr *FormRouter) HandleListProjectForms(c *gin.Context) {
	projectID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	authCtx := auth.GetAuthContext(c.Request.Context())
	if !fr.check(c, fr.access.IsMember, authCtx.UserID, projectID, "project membership required") {
		return
	}

	forms, err := fr.service.ListProjectForms(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, forms)
}

// HandleSubmitResponse handles POST /api/v1/forms/:id/responses requests.
// The reply only confirms the stored response; spawned tasks are not reported.
func (fr *FormRouter) HandleSubmitResponse(c *gin.Context) {
	formID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req submitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	submit := SubmitRequest{ResponseData: req.ResponseData, TaskID: req.TaskID}
	if authCtx := auth.GetAuthContext(c.Request.Context()); authCtx != nil {
		userID := authCtx.UserID
		submit.SubmitterID = &userID
	}

	response, err := fr.service.SubmitResponse(c.Request.Context(), formID, submit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submitResponseResult{
		ID:          response.ID,
		FormID:      response.FormID,
		SubmittedAt: response.SubmittedAt.Format(time.RFC3339),
		Message:     "response submitted",
	})
}

// HandleGetResponse handles GET /api/v1/responses/:id requests.
// The submitter and members of the project may read a response.
func (fr *FormRouter) HandleGetResponse(c *gin.Context) {
	responseID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	response, err := fr.service.GetResponse(c.Request.Context(), responseID)
	if err != nil {
		respondError(c, err)
		return
	}

	authCtx := auth.GetAuthContext(c.Request.Context())
	if response.UserID == nil || *response.UserID != authCtx.UserID {
		if !fr.check(c, fr.access.IsMember, authCtx.UserID, response.ProjectID, "project membership required") {
			return
		}
	}
	c.JSON(http.StatusOK, response)
}

func (fr *FormRouter) check(c *gin.Context, predicate func(context.Context, uuid.UUID, uuid.UUID) (bool, error), userID, projectID uuid.UUID, message string) bool {
	ok, err := predicate(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err)
		return false
	}
	if !ok {
		utils.RespondError(c, http.StatusForbidden, "forbidden", message)
		return false
	}
	return true
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, ErrForbidden) {
		utils.RespondError(c, http.StatusForbidden, "forbidden", err.Error())
		return
	}
	utils.RespondServiceError(c, err, ErrNotFound, ErrInvalidInput)
}
