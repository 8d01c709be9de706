package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formflow/backend/internal/auth"
	"github.com/formflow/backend/internal/workflow/model"
	"github.com/formflow/backend/internal/workflow/service"
	"github.com/formflow/backend/utils"
)

// AdminChecker evaluates the admin predicates used to guard template authoring.
type AdminChecker interface {
	IsGlobalAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	IsProjectAdmin(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
}

type TemplateRouter struct {
	service *service.TemplateService
	admins  AdminChecker
}

func NewTemplateRouter(service *service.TemplateService, admins AdminChecker) *TemplateRouter {
	return &TemplateRouter{service: service, admins: admins}
}

func (tr *TemplateRouter) Register(rg *gin.RouterGroup) {
	rg.POST("/templates", tr.HandleCreateTemplate)
	rg.GET("/templates/:id", tr.HandleGetTemplate)
	rg.PUT("/templates/:id", tr.HandleUpdateTemplate)
	rg.GET("/forms/:id/templates", tr.HandleListFormTemplates)
}

// templateRequest is the editable part of a task template.
type templateRequest struct {
	Name                 string               `json:"name"`
	Description          string               `json:"description"`
	ProjectID            *uuid.UUID           `json:"projectId"`
	SourceFormID         uuid.UUID            `json:"sourceFormId"`
	TargetFormID         uuid.UUID            `json:"targetFormId"`
	IsActive             *bool                `json:"isActive"`
	AssignmentType       model.AssignmentType `json:"assignmentType"`
	AssigneeStatic       *uuid.UUID           `json:"assigneeStatic"`
	AssigneeDynamicField *string              `json:"assigneeDynamicField"`
	DueDays              *int                 `json:"dueDays"`
	MinDays              *int                 `json:"minDays"`
	Priority             string               `json:"priority"`
	InheritanceMapping   json.RawMessage      `json:"inheritanceMapping"`
}

func (r templateRequest) toModel() *model.TaskTemplate {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &model.TaskTemplate{
		Name:                 r.Name,
		Description:          r.Description,
		ProjectID:            r.ProjectID,
		SourceFormID:         r.SourceFormID,
		TargetFormID:         r.TargetFormID,
		IsActive:             active,
		AssignmentType:       r.AssignmentType,
		AssigneeStatic:       r.AssigneeStatic,
		AssigneeDynamicField: r.AssigneeDynamicField,
		DueDays:              r.DueDays,
		MinDays:              r.MinDays,
		Priority:             r.Priority,
		InheritanceMapping:   r.InheritanceMapping,
	}
}

// HandleCreateTemplate handles POST /api/v1/templates requests.
// Project scoped templates need a project admin, unscoped ones a global admin.
func (tr *TemplateRouter) HandleCreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !tr.requireAdmin(c, req.ProjectID) {
		return
	}

	tmpl := req.toModel()
	authCtx := auth.GetAuthContext(c.Request.Context())
	tmpl.CreatedBy = &authCtx.UserID
	if err := tr.service.CreateTemplate(c.Request.Context(), tmpl); err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

// HandleGetTemplate handles GET /api/v1/templates/:id requests.
func (tr *TemplateRouter) HandleGetTemplate(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	tmpl, err := tr.service.GetTemplateByID(c.Request.Context(), id)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	if !tr.requireAdmin(c, tmpl.ProjectID) {
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// HandleUpdateTemplate handles PUT /api/v1/templates/:id requests.
// The caller must be admin of both the current and the requested scope.
func (tr *TemplateRouter) HandleUpdateTemplate(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	existing, err := tr.service.GetTemplateByID(c.Request.Context(), id)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	if !tr.requireAdmin(c, existing.ProjectID) || !tr.requireAdmin(c, req.ProjectID) {
		return
	}

	tmpl := req.toModel()
	tmpl.ID = id
	if err := tr.service.UpdateTemplate(c.Request.Context(), tmpl); err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// HandleListFormTemplates handles GET /api/v1/forms/:id/templates requests.
// Only global admins see every template attached to a form.
func (tr *TemplateRouter) HandleListFormTemplates(c *gin.Context) {
	formID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !tr.requireAdmin(c, nil) {
		return
	}
	templates, err := tr.service.ListBySourceForm(c.Request.Context(), formID)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// requireAdmin accepts global admins, and project admins when projectID is set.
func (tr *TemplateRouter) requireAdmin(c *gin.Context, projectID *uuid.UUID) bool {
	ctx := c.Request.Context()
	userID := auth.GetAuthContext(ctx).UserID

	ok, err := tr.admins.IsGlobalAdmin(ctx, userID)
	if err == nil && !ok && projectID != nil {
		ok, err = tr.admins.IsProjectAdmin(ctx, userID, *projectID)
	}
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return false
	}
	if !ok {
		utils.RespondError(c, http.StatusForbidden, "forbidden", "admin role required")
		return false
	}
	return true
}
