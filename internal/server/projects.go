package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tasksphere/internal/board"
	"tasksphere/internal/models"
	"tasksphere/internal/realtime"
	"tasksphere/internal/repository"
	"tasksphere/internal/views"
)

// handleListProjects returns the projects visible to user_id (all when empty),
// filtered by search and status and paginated.
func (s *Server) handleListProjects(c *gin.Context) {
	ctx := c.Request.Context()
	projects, err := s.store.ListProjects(ctx, repository.ProjectFilter{UserID: c.Query("user_id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	tasks, err := s.store.ListTasks(ctx, repository.TaskFilter{})
	if err != nil {
		s.fail(c, err)
		return
	}

	now := s.now()
	progress := views.ProgressByProject(projects, tasks)
	filtered := views.FilterProjects(projects, progress, views.ProjectQuery{
		Search: c.Query("search"),
		Status: views.ProjectStatus(c.Query("status")),
	}, now)

	respondSuccess(c, http.StatusOK, gin.H{
		"projects": views.Paginate(filtered, queryInt(c, "page", 1), views.ProjectsPerPage),
		"summary":  views.SummarizeProjects(filtered, progress, now),
		"progress": progress,
	})
}

// handleCreateProject creates a new project entity. The session user is the
// creator when the body names none.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req models.NewProject
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.CreatorID == "" {
		if u := s.store.CurrentUser(); u != nil {
			req.CreatorID = u.ID
		}
	}

	project, err := s.store.CreateProject(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleGetProject returns a project with its tasks.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	project, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleUpdateProject merges the given fields into an existing project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.ProjectUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.publish(id, realtime.ProjectUpdated, project)
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and all related tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	if s.codec != nil {
		board.Forget(s.codec, s.locks, id)
	}
	s.publish(id, realtime.ProjectDeleted, gin.H{"id": id})
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleAddCollaborator(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.User
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	project, err := s.store.AddCollaborator(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.publish(id, realtime.ProjectUpdated, project)
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

func (s *Server) handleRemoveCollaborator(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	project, err := s.store.RemoveCollaborator(c.Request.Context(), id, userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.publish(id, realtime.ProjectUpdated, project)
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleCollaborators searches the external directory (q) or lists suggestions.
func (s *Server) handleCollaborators(c *gin.Context) {
	count := queryInt(c, "count", 10)
	if s.directory == nil {
		respondSuccess(c, http.StatusOK, gin.H{"users": []models.User{}})
		return
	}
	var users []models.User
	if q := c.Query("q"); q != "" {
		users = s.directory.Search(c.Request.Context(), q, count)
	} else {
		users = s.directory.Suggestions(c.Request.Context(), count)
	}
	respondSuccess(c, http.StatusOK, gin.H{"users": users})
}

// handleCollaboratorExists reports whether the directory knows email.
func (s *Server) handleCollaboratorExists(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		s.fail(c, fmt.Errorf("email is required: %w", repository.ErrInvalidInput))
		return
	}
	exists := s.directory != nil && s.directory.EmailExists(c.Request.Context(), email)
	respondSuccess(c, http.StatusOK, gin.H{"email": email, "exists": exists})
}
