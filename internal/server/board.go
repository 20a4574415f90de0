package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasksphere/internal/board"
	"tasksphere/internal/models"
	"tasksphere/internal/realtime"
	"tasksphere/internal/repository"
	"tasksphere/internal/views"
)

type boardColumn struct {
	ID    models.Status           `json:"id"`
	Color string                  `json:"color"`
	Tasks views.Page[models.Task] `json:"tasks"`
}

type colorRequest struct {
	Color string `json:"color"`
}

// loadBoard reconciles the stored column order of projectID with its live tasks.
func (s *Server) loadBoard(ctx context.Context, projectID string) (*board.Board, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, repository.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	b := board.New(projectID, s.codec, s.locks, s.store, s.logger)
	b.Load(tasks)
	return b, nil
}

func boardPayload(b *board.Board, page int) gin.H {
	columns := make([]boardColumn, 0, len(models.Columns))
	for _, col := range b.Columns() {
		columns = append(columns, boardColumn{
			ID:    col.ID,
			Color: col.Color,
			Tasks: views.Paginate(col.Tasks, page, board.TasksPerPage),
		})
	}
	return gin.H{"columns": columns, "stats": b.Stats()}
}

// handleBoard returns the ordered columns of a project and its statistics.
func (s *Server) handleBoard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := s.loadBoard(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, boardPayload(b, queryInt(c, "page", 1)))
}

// handleMove applies a drag-and-drop move. Indexes address whole columns, not pages.
func (s *Server) handleMove(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var cmd board.MoveCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	b, err := s.loadBoard(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := b.Move(c.Request.Context(), cmd); err != nil {
		s.fail(c, err)
		return
	}
	s.publish(id, realtime.TaskMoved, cmd)
	respondSuccess(c, http.StatusOK, boardPayload(b, queryInt(c, "page", 1)))
}

func (s *Server) handleColumnColor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req colorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}

	column := models.Status(c.Param("column"))
	b := board.New(id, s.codec, s.locks, s.store, s.logger)
	if err := b.SetColumnColor(column, req.Color); err != nil {
		s.fail(c, err)
		return
	}
	s.publish(id, realtime.ColumnColor, gin.H{"column": column, "color": req.Color})
	respondSuccess(c, http.StatusOK, gin.H{"column": column, "color": b.ColumnColor(column)})
}

// handleSubscribe upgrades to a websocket that receives the project's events.
func (s *Server) handleSubscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if s.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime updates disabled"})
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	user := ""
	if u := s.store.CurrentUser(); u != nil {
		user = u.ID
	}
	if err := s.hub.Serve(c.Writer, c.Request, id, user); err != nil {
		s.logger.Warn("websocket upgrade failed", "project", id, "error", err)
	}
}
