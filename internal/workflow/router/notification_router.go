package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formflow/backend/internal/auth"
	"github.com/formflow/backend/internal/workflow/service"
	"github.com/formflow/backend/utils"
)

type NotificationRouter struct {
	service *service.NotificationService
}

func NewNotificationRouter(service *service.NotificationService) *NotificationRouter {
	return &NotificationRouter{service: service}
}

func (nr *NotificationRouter) Register(rg *gin.RouterGroup) {
	rg.GET("/notifications", nr.HandleListNotifications)
	rg.GET("/notifications/unread-count", nr.HandleCountUnread)
	rg.POST("/notifications/:id/read", nr.HandleMarkRead)
}

// HandleListNotifications handles GET /api/v1/notifications requests.
// Optional Query Filters: unread, offset, limit
func (nr *NotificationRouter) HandleListNotifications(c *gin.Context) {
	offset, ok := utils.QueryInt(c, "offset")
	if !ok {
		return
	}
	limit, ok := utils.QueryInt(c, "limit")
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"

	authCtx := auth.GetAuthContext(c.Request.Context())
	notifications, err := nr.service.ListForUser(c.Request.Context(), authCtx.UserID, unreadOnly, offset, limit)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// HandleCountUnread handles GET /api/v1/notifications/unread-count requests.
func (nr *NotificationRouter) HandleCountUnread(c *gin.Context) {
	authCtx := auth.GetAuthContext(c.Request.Context())
	count, err := nr.service.CountUnread(c.Request.Context(), authCtx.UserID)
	if err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// HandleMarkRead handles POST /api/v1/notifications/:id/read requests.
func (nr *NotificationRouter) HandleMarkRead(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	authCtx := auth.GetAuthContext(c.Request.Context())
	if err := nr.service.MarkRead(c.Request.Context(), authCtx.UserID, id); err != nil {
		utils.RespondServiceError(c, err, service.ErrNotFound, service.ErrInvalidInput)
		return
	}
	c.Status(http.StatusNoContent)
}
