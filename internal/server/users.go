package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasksphere/internal/models"
	"tasksphere/internal/repository"
	"tasksphere/internal/views"
)

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"users": users})
}

func (s *Server) handleGetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := s.store.GetUser(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleUpdateUser edits a profile. Changing to an email in use is a conflict.
func (s *Server) handleUpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	user, err := s.store.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteUser(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleUserTasks serves the "my tasks" page: filtered, paginated and summarized.
func (s *Server) handleUserTasks(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tasks, err := s.store.UserTasks(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	filtered := views.FilterTasks(tasks, views.TaskQuery{
		Search:   c.Query("search"),
		Status:   models.Status(c.Query("status")),
		Priority: models.Priority(c.Query("priority")),
	})
	respondSuccess(c, http.StatusOK, gin.H{
		"tasks":   views.Paginate(filtered, queryInt(c, "page", 1), views.TasksPerPage),
		"summary": views.SummarizeTasks(filtered, s.now()),
	})
}

// handleDashboard returns the headline numbers and per-project progress of a user.
func (s *Server) handleDashboard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	projects, err := s.store.ListProjects(ctx, repository.ProjectFilter{UserID: id})
	if err != nil {
		s.fail(c, err)
		return
	}
	mine, err := s.store.UserTasks(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	all, err := s.store.ListTasks(ctx, repository.TaskFilter{})
	if err != nil {
		s.fail(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"stats":    views.Dashboard(projects, mine, s.now()),
		"progress": views.ProgressByProject(projects, all),
		"projects": projects,
	})
}
