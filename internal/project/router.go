package project

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/formflow/backend/internal/auth"
	"github.com/formflow/backend/internal/project/model"
	"github.com/formflow/backend/utils"
)

type ProjectRouter struct {
	service *ProjectService
}

func NewProjectRouter(service *ProjectService) *ProjectRouter {
	return &ProjectRouter{service: service}
}

// Register mounts the project routes. rg must already require authentication.
func (pr *ProjectRouter) Register(rg *gin.RouterGroup) {
	rg.POST("/projects", pr.HandleCreateProject)
	rg.GET("/projects", pr.HandleListProjects)
	rg.GET("/projects/:id/members", pr.HandleListMembers)
	rg.POST("/projects/:id/members", pr.HandleAddMember)
	rg.DELETE("/projects/:id/members/:userId", pr.HandleRemoveMember)
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type addMemberRequest struct {
	UserID uuid.UUID        `json:"userId" binding:"required"`
	Role   model.MemberRole `json:"role" binding:"required"`
}

// HandleCreateProject handles POST /api/v1/projects requests.
// The caller becomes the project admin.
func (pr *ProjectRouter) HandleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	authCtx := auth.GetAuthContext(c.Request.Context())
	project, err := pr.service.CreateProject(c.Request.Context(), req.Name, req.Description, authCtx.UserID)
	if err != nil {
		utils.RespondServiceError(c, err, ErrNotFound, ErrInvalidInput)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// HandleListProjects handles GET /api/v1/projects requests.
func (pr *ProjectRouter) HandleListProjects(c *gin.Context) {
	authCtx := auth.GetAuthContext(c.Request.Context())
	projects, err := pr.service.ListProjectsForUser(c.Request.Context(), authCtx.UserID)
	if err != nil {
		utils.RespondServiceError(c, err, ErrNotFound, ErrInvalidInput)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// HandleListMembers handles GET /api/v1/projects/:id/members requests.
// Only members of the project may list its members.
func (pr *ProjectRouter) HandleListMembers(c *gin.Context) {
	projectID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if !pr.requireMember(c, projectID) {
		return
	}

	members, err := pr.service.ListMembers(c.Request.Context(), projectID)
	if err != nil {
		utils.RespondServiceError(c, err, ErrNotFound, ErrInvalidInput)
		return
	}
	c.JSON(http.StatusOK, members)
}

// HandleAddMember handles POST /api/v1/projects/:id/members requests.
// Only project admins may add members.
func (pr *ProjectRouter) HandleAddMember(c *gin.Context) {
	projectID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !pr.requireAdmin(c, projectID) {
		return
	}

	member, err := pr.service.AddMember(c.Request.Context(), projectID, req.UserID, req.Role)
	if err != nil {
		utils.RespondServiceError(c, err, ErrNotFound, ErrInvalidInput)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// HandleRemoveMember handles DELETE /api/v1/projects/:id/members/:userId requests.
func (pr *ProjectRouter) HandleRemoveMember(c *gin.Context) {
	projectID, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := utils.ParamUUID(c, "userId")
	if !ok {
		return
	}
	if !pr.requireAdmin(c, projectID) {
		return
	}

	if err := pr.service.RemoveMember(c.Request.Context(), projectID, userID); err != nil {
		utils.RespondServiceError(c, err, ErrNotFound, ErrInvalidInput)
		return
	}
	c.Status(http.StatusNoContent)
}

func (pr *ProjectRouter) requireAdmin(c *gin.Context, projectID uuid.UUID) bool {
	authCtx := auth.GetAuthContext(c.Request.Context())
	ok, err := pr.service.IsProjectAdmin(c.Request.Context(), authCtx.UserID, projectID)
	if err != nil {
		utils.RespondServiceError(c, err, ErrNotFound, ErrInvalidInput)
		return false
	}
	if !ok {
		utils.RespondError(c, http.StatusForbidden, "forbidden", "project admin role required")
		return false
	}
	return true
}

func (pr *ProjectRouter) requireMember(c *gin.Context, projectID uuid.UUID) bool {
	authCtx := auth.GetAuthContext(c.Request.Context())
	ok, err := pr.service.IsMember(c.Request.Context(), authCtx.UserID, projectID)
	if err != nil {
		utils.RespondServiceError(c, err, ErrNotFound, ErrInvalidInput)
		return false
	}
	if !ok {
		utils.RespondError(c, http.StatusForbidden, "forbidden", "project membership required")
		return false
	}
	return true
}
