package workflow

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/formflow/backend/internal/inheritance"
	"github.com/formflow/backend/internal/workflow/router"
	"github.com/formflow/backend/internal/workflow/service"
)

// Dependencies are the collaborators of the workflow manager owned by other domains.
type Dependencies struct {
	Directory   inheritance.UserDirectory
	Admins      router.AdminChecker
	Members     router.MembershipChecker
	Observer    inheritance.Observer
	Concurrency int
}

// Manager coordinates the workflow services, the inheritance orchestrator and the routers.
type Manager struct {
	templateService     *service.TemplateService
	taskService         *service.TaskService
	notificationService *service.NotificationService
	orchestrator        *inheritance.Orchestrator
	templateRouter      *router.TemplateRouter
	taskRouter          *router.TaskRouter
	notificationRouter  *router.NotificationRouter
}

// NewManager wires the workflow domain on db.
func NewManager(db *gorm.DB, deps Dependencies) *Manager {
	// Initialize services
	templateService := service.NewTemplateService(db)
	taskService := service.NewTaskService(db)
	notificationService := service.NewNotificationService(db)

	spawner := inheritance.NewSpawner(inheritance.NewAssigneeResolver(deps.Directory), taskService, notificationService)
	opts := []inheritance.Option{inheritance.WithConcurrency(deps.Concurrency)}
	if deps.Observer != nil {
		opts = append(opts, inheritance.WithObserver(deps.Observer))
	}

	return &Manager{
		templateService:     templateService,
		taskService:         taskService,
		notificationService: notificationService,
		orchestrator:        inheritance.NewOrchestrator(templateService, spawner, opts...),
		templateRouter:      router.NewTemplateRouter(templateService, deps.Admins),
		taskRouter:          router.NewTaskRouter(taskService, deps.Members),
		notificationRouter:  router.NewNotificationRouter(notificationService),
	}
}

// Orchestrator returns the inheritance orchestrator triggered by form submissions.
func (m *Manager) Orchestrator() *inheritance.Orchestrator {
	return m.orchestrator
}

func (m *Manager) TemplateService() *service.TemplateService {
	return m.templateService
}

func (m *Manager) TaskService() *service.TaskService {
	return m.taskService
}

// RegisterRoutes mounts the template, task and notification routes on an
// authenticated group.
func (m *Manager) RegisterRoutes(rg *gin.RouterGroup) {
	m.templateRouter.Register(rg)
	m.taskRouter.Register(rg)
	m.notificationRouter.Register(rg)
}
