package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"tasksphere/internal/board"
	"tasksphere/internal/codec"
	"tasksphere/internal/keylock"
	"tasksphere/internal/models"
	"tasksphere/internal/realtime"
	"tasksphere/internal/repository"
)

// Directory suggests collaborators from outside the workspace.
type Directory interface {
	Suggestions(ctx context.Context, count int) []models.User
	Search(ctx context.Context, term string, count int) []models.User
	EmailExists(ctx context.Context, email string) bool
	ClearCache()
}

// Broadcaster notifies open boards about changes.
type Broadcaster interface {
	Publish(projectID string, ev realtime.Event)
	Serve(w http.ResponseWriter, r *http.Request, projectID, user string) error
}

// Deps are the collaborators of the HTTP layer. Codec and Locks must be the
// ones the repository Store was built with.
type Deps struct {
	Store     *repository.Store
	Codec     *codec.Codec
	Locks     *keylock.Locker
	Directory Directory
	Hub       Broadcaster
}

// Options tune the HTTP surface.
type Options struct {
	StaticDir      string
	AllowedOrigins []string
	// Admin mounts the storage maintenance routes.
	Admin bool
}

// Server provides HTTP handlers for the TaskSphere API.
type Server struct {
	engine    *gin.Engine
	handler   http.Handler
	store     *repository.Store
	codec     *codec.Codec
	locks     *keylock.Locker
	directory Directory
	hub       Broadcaster
	logger    *slog.Logger
	staticDir string
	admin     bool
	now       func() time.Time
}

// New constructs the HTTP server with routes and middleware configured.
func New(deps Deps, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Locks == nil {
		deps.Locks = keylock.New()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api"))

	srv := &Server{
		engine:    router,
		store:     deps.Store,
		codec:     deps.Codec,
		locks:     deps.Locks,
		directory: deps.Directory,
		hub:       deps.Hub,
		logger:    logger,
		staticDir: opts.StaticDir,
		admin:     opts.Admin,
		now:       time.Now,
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	srv.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(router)

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler is the engine behind the CORS layer. Serve this one.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		auth := api.Group("/auth")
		{
			auth.POST("/login", s.handleLogin)
			auth.POST("/register", s.handleRegister)
			auth.POST("/logout", s.handleLogout)
			auth.GET("/me", s.handleMe)
		}

		users := api.Group("/users")
		{
			users.GET("", s.handleListUsers)
			users.GET(":id", s.handleGetUser)
			users.PUT(":id", s.handleUpdateUser)
			users.DELETE(":id", s.handleDeleteUser)
			users.GET(":id/tasks", s.handleUserTasks)
			users.GET(":id/dashboard", s.handleDashboard)
		}

		projects := api.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.PUT(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
			projects.POST(":id/collaborators", s.handleAddCollaborator)
			projects.DELETE(":id/collaborators/:userId", s.handleRemoveCollaborator)
			projects.GET(":id/tasks", s.handleListTasks)
			projects.POST(":id/tasks", s.handleCreateTask)
			projects.GET(":id/board", s.handleBoard)
			projects.POST(":id/board/moves", s.handleMove)
			projects.PUT(":id/board/columns/:column/color", s.handleColumnColor)
			projects.GET(":id/ws", s.handleSubscribe)
		}

		api.GET("/tasks/:id", s.handleGetTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.GET("/collaborators", s.handleCollaborators)
		api.GET("/collaborators/exists", s.handleCollaboratorExists)

		if s.admin {
			admin := api.Group("/admin")
			{
				admin.POST("/seed", s.handleSeed)
				admin.POST("/reset", s.handleReset)
				admin.POST("/clear", s.handleClear)
			}
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pathID reads a non-empty identifier from the path.
func pathID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, repository.ErrInvalidInput), errors.Is(err, board.ErrInvalidMove):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status that matches err.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusOf(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if err != nil {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

func (s *Server) publish(projectID, kind string, data any) {
	if s.hub == nil || projectID == "" {
		return
	}
	ev := realtime.Event{Type: kind, Data: data}
	if u := s.store.CurrentUser(); u != nil {
		ev.User = u.ID
	}
	s.hub.Publish(projectID, ev)
}
