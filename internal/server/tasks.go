package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasksphere/internal/models"
	"tasksphere/internal/realtime"
	"tasksphere/internal/repository"
)

// handleListTasks fetches tasks for a project, optionally of one status.
func (s *Server) handleListTasks(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), repository.TaskFilter{
		ProjectID: projectID,
		Status:    models.Status(c.Query("status")),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks})
}

// handleCreateTask inserts a new task into a project column. The session user
// is the creator when the body names none.
func (s *Server) handleCreateTask(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.NewTask
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	req.ProjectID = projectID
	if req.CreatorID == "" {
		if u := s.store.CurrentUser(); u != nil {
			req.CreatorID = u.ID
			req.CreatorName = u.Name
		}
	}

	task, err := s.store.CreateTask(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.publish(projectID, realtime.TaskCreated, task)
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := s.store.GetTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask updates task fields such as status or description.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.TaskUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.store.UpdateTask(c.Request.Context(), id, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.publish(task.ProjectID, realtime.TaskUpdated, task)
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task completely. Unknown ids succeed.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	task, err := s.store.GetTask(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.fail(c, err)
		return
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		s.fail(c, err)
		return
	}
	s.publish(task.ProjectID, realtime.TaskDeleted, gin.H{"id": id})
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
