package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formflow/backend/internal/auth"
	"github.com/formflow/backend/internal/config"
	"github.com/formflow/backend/internal/database"
	"github.com/formflow/backend/internal/form"
	"github.com/formflow/backend/internal/metrics"
	"github.com/formflow/backend/internal/project"
	"github.com/formflow/backend/internal/session"
	"github.com/formflow/backend/internal/uploads"
	"github.com/formflow/backend/internal/workflow"
	"github.com/formflow/backend/utils"
)

// CurrentProjectHeader selects the project used by the session project admin check.
const CurrentProjectHeader = "X-Current-Project"

// Server holds the HTTP engine and the services whose lifetime outlasts a request.
type Server struct {
	Engine   *gin.Engine
	Forms    *form.FormService
	Workflow *workflow.Manager

	db         *gorm.DB
	cfg        *config.Config
	profiles   *auth.ProfileService
	authorizer *auth.Authorizer
	metrics    *metrics.Metrics
}

// New wires every domain on db and mounts the API under /api/v1.
func New(cfg *config.Config, db *gorm.DB, storage uploads.StorageDriver, m *metrics.Metrics) *Server {
	profiles := auth.NewProfileService(db)
	projects := project.NewProjectService(db)
	authorizer := auth.NewAuthorizer(profiles, projects)

	manager := workflow.NewManager(db, workflow.Dependencies{
		Directory:   profiles,
		Admins:      authorizer,
		Members:     projects,
		Observer:    m,
		Concurrency: cfg.Inheritance.Concurrency,
	})
	forms := form.NewFormService(db, manager.Orchestrator(), form.WithAsyncInheritance(cfg.Inheritance.Async))

	s := &Server{
		Forms:      forms,
		Workflow:   manager,
		db:         db,
		cfg:        cfg,
		profiles:   profiles,
		authorizer: authorizer,
		metrics:    m,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(), m.Middleware(), CORS(cfg.CORS))
	engine.GET("/health", s.HandleHealth)
	engine.GET("/metrics", gin.WrapH(m.Handler()))

	public := engine.Group("/api/v1", auth.Middleware(auth.NewTokenVerifier(cfg.Auth)))
	private := public.Group("", auth.RequireAuth())

	public.GET("/session", s.HandleSession)
	project.NewProjectRouter(projects).Register(private)
	form.NewFormRouter(forms, projects).Register(public, private)
	manager.RegisterRoutes(private)
	uploads.NewUploadRouter(uploads.NewUploadService(storage)).Register(public, private)

	s.Engine = engine
	return s
}

// HandleHealth handles GET /health requests.
func (s *Server) HandleHealth(c *gin.Context) {
	if err := database.HealthCheck(s.db); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	if err := s.metrics.UpdateDatabaseConnections(s.db); err != nil {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleSession handles GET /api/v1/session requests.
// It bootstraps the session of the caller and returns the final snapshot,
// including failed and timed out attempts.
func (s *Server) HandleSession(c *gin.Context) {
	var currentProject *uuid.UUID
	if raw := c.GetHeader(CurrentProjectHeader); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "invalid_request", "invalid "+CurrentProjectHeader+" header")
			return
		}
		currentProject = &id
	}

	bootstrapper := session.NewBootstrapper(
		auth.NewProvider(c.Request.Context()),
		s.profiles,
		s.authorizer,
		session.WithTimeout(s.cfg.Session.BootstrapTimeout),
		session.WithObserver(s.metrics),
	)
	state := session.NewState()
	defer state.Close()

	bootstrapper.Run(c.Request.Context(), state, currentProject)
	c.JSON(http.StatusOK, state.Snapshot())
}
