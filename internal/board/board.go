// Package board keeps the per-column task order of a project board.
//
// The order lives beside the task collection, one record per project and
// column, and is reconciled with the live task set whenever the board loads:
// known ids keep their stored position, vanished ids are dropped and unknown
// tasks are appended. Drag-and-drop moves rewrite the affected column records
// and push status changes through a TaskUpdater.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"tasksphere/internal/codec"
	"tasksphere/internal/keylock"
	"tasksphere/internal/models"
	"tasksphere/internal/views"
)

// TasksPerPage is the page size of a board column.
const TasksPerPage = 5

// DefaultColumnColor is used when a column has no stored color.
const DefaultColumnColor = "bg-[#161b22]"

// ErrInvalidMove is returned for moves that reference unknown columns or slots.
var ErrInvalidMove = errors.New("invalid move")

// OrderKey is the storage key of a column's task order.
func OrderKey(projectID string, column models.Status) string {
	return fmt.Sprintf("column_order_%s_%s", projectID, column)
}

// ColorKey is the storage key of a column's color.
func ColorKey(projectID string, column models.Status) string {
	return fmt.Sprintf("column_color_%s_%s", projectID, column)
}

type colorRecord struct {
	Color string `json:"color"`
}

// TaskUpdater persists task changes. The repository Store satisfies it.
type TaskUpdater interface {
	UpdateTask(ctx context.Context, id string, upd models.TaskUpdate) (models.Task, error)
}

// MoveCommand describes a drag from one column slot to another.
type MoveCommand struct {
	FromColumn models.Status `json:"from_column"`
	FromIndex  int           `json:"from_index"`
	ToColumn   models.Status `json:"to_column"`
	ToIndex    int           `json:"to_index"`
}

// Column is a snapshot of one board lane.
type Column struct {
	ID    models.Status `json:"id"`
	Color string        `json:"color"`
	Tasks []models.Task `json:"tasks"`
}

// Stats summarizes the whole board.
type Stats struct {
	Total      int `json:"total"`
	Completion int `json:"completion"`
	Low        int `json:"low"`
	Medium     int `json:"medium"`
	High       int `json:"high"`
}

// Board holds the ordered columns of one project.
type Board struct {
	projectID string
	codec     *codec.Codec
	locks     *keylock.Locker
	updater   TaskUpdater
	logger    *slog.Logger
	columns   map[models.Status][]models.Task
}

// New returns an empty board for projectID. Call Load before reading columns.
func New(projectID string, c *codec.Codec, locks *keylock.Locker, updater TaskUpdater, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if locks == nil {
		locks = keylock.New()
	}
	columns := make(map[models.Status][]models.Task, len(models.Columns))
	for _, col := range models.Columns {
		columns[col] = []models.Task{}
	}
	return &Board{
		projectID: projectID,
		codec:     c,
		locks:     locks,
		updater:   updater,
		logger:    logger,
		columns:   columns,
	}
}

// Reconcile orders live by storedIDs and appends the live tasks the stored
// order does not mention. Stored ids without a live task and repeated ids are
// dropped, so reconciling an already reconciled order returns it unchanged.
func Reconcile(storedIDs []string, live []models.Task) []models.Task {
	byID := make(map[string]models.Task, len(live))
	for _, t := range live {
		byID[t.ID] = t
	}

	out := make([]models.Task, 0, len(live))
	placed := make(map[string]struct{}, len(live))
	for _, id := range storedIDs {
		t, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := placed[id]; dup {
			continue
		}
		placed[id] = struct{}{}
		out = append(out, t)
	}
	for _, t := range live {
		if _, ok := placed[t.ID]; ok {
			continue
		}
		placed[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Load partitions tasks by status and reconciles each column with its stored order.
// Tasks of other projects are ignored. Nothing is written.
func (b *Board) Load(tasks []models.Task) {
	for _, col := range models.Columns {
		live := make([]models.Task, 0)
		for _, t := range tasks {
			if t.Status == col && (t.ProjectID == "" || t.ProjectID == b.projectID) {
				live = append(live, t)
			}
		}
		stored := codec.Load[[]string](b.codec, OrderKey(b.projectID, col), nil)
		b.columns[col] = Reconcile(stored, live)
	}
}

// Column returns a copy of the ordered tasks in column.
func (b *Board) Column(column models.Status) []models.Task {
	return append([]models.Task(nil), b.columns[column]...)
}

// Columns returns every lane in display order with its color.
func (b *Board) Columns() []Column {
	out := make([]Column, 0, len(models.Columns))
	for _, col := range models.Columns {
		tasks := b.Column(col)
		if tasks == nil {
			tasks = []models.Task{}
		}
		out = append(out, Column{ID: col, Color: b.ColumnColor(col), Tasks: tasks})
	}
	return out
}

// Page returns one page of column for display.
func (b *Board) Page(column models.Status, page int) views.Page[models.Task] {
	return views.Paginate(b.columns[column], page, TasksPerPage)
}

// Move applies cmd to the in-memory columns, persists the new order of every
// touched column and, for cross-column moves, updates the task status. When
// the status update fails the error is returned and the new order is kept.
func (b *Board) Move(ctx context.Context, cmd MoveCommand) error {
	if !cmd.FromColumn.Valid() || !cmd.ToColumn.Valid() {
		return fmt.Errorf("column %q -> %q: %w", cmd.FromColumn, cmd.ToColumn, ErrInvalidMove)
	}
	source := b.columns[cmd.FromColumn]
	if cmd.FromIndex < 0 || cmd.FromIndex >= len(source) {
		return fmt.Errorf("index %d of column %s: %w", cmd.FromIndex, cmd.FromColumn, ErrInvalidMove)
	}
	if cmd.ToIndex < 0 {
		return fmt.Errorf("target index %d: %w", cmd.ToIndex, ErrInvalidMove)
	}
	if cmd.FromColumn == cmd.ToColumn && cmd.FromIndex == cmd.ToIndex {
		return nil
	}

	if cmd.FromColumn == cmd.ToColumn {
		tasks := append([]models.Task(nil), source...)
		moved := tasks[cmd.FromIndex]
		tasks = remove(tasks, cmd.FromIndex)
		tasks = insert(tasks, cmd.ToIndex, moved)
		b.columns[cmd.FromColumn] = tasks
		b.saveOrder(cmd.FromColumn)
		return nil
	}

	src := append([]models.Task(nil), source...)
	moved := src[cmd.FromIndex]
	src = remove(src, cmd.FromIndex)
	moved.Status = cmd.ToColumn
	dst := insert(append([]models.Task(nil), b.columns[cmd.ToColumn]...), cmd.ToIndex, moved)

	b.columns[cmd.FromColumn] = src
	b.columns[cmd.ToColumn] = dst
	b.saveOrder(cmd.FromColumn, cmd.ToColumn)

	if b.updater == nil {
		return nil
	}
	status := cmd.ToColumn
	if _, err := b.updater.UpdateTask(ctx, moved.ID, models.TaskUpdate{Status: &status}); err != nil {
		b.logger.Error("error updating task status", "task", moved.ID, "status", status, "error", err)
		return fmt.Errorf("update status of task %s: %w", moved.ID, err)
	}
	return nil
}

func (b *Board) saveOrder(columns ...models.Status) {
	keys := make([]string, 0, len(columns))
	for _, col := range columns {
		keys = append(keys, OrderKey(b.projectID, col))
	}
	unlock := b.locks.Lock(keys...)
	defer unlock()

	for _, col := range columns {
		ids := make([]string, 0, len(b.columns[col]))
		for _, t := range b.columns[col] {
			ids = append(ids, t.ID)
		}
		b.codec.Save(OrderKey(b.projectID, col), ids)
	}
}

// ColumnColor returns the stored color of column, or DefaultColumnColor.
func (b *Board) ColumnColor(column models.Status) string {
	rec := codec.Load(b.codec, ColorKey(b.projectID, column), colorRecord{})
	if rec.Color == "" {
		return DefaultColumnColor
	}
	return rec.Color
}

// SetColumnColor stores a color token for column.
func (b *Board) SetColumnColor(column models.Status, color string) error {
	if !column.Valid() {
		return fmt.Errorf("column %q: %w", column, ErrInvalidMove)
	}
	b.codec.Save(ColorKey(b.projectID, column), colorRecord{Color: color})
	return nil
}

// Forget removes every order and color record of projectID.
func Forget(c *codec.Codec, locks *keylock.Locker, projectID string) {
	keys := make([]string, 0, 2*len(models.Columns))
	for _, col := range models.Columns {
		keys = append(keys, OrderKey(projectID, col), ColorKey(projectID, col))
	}
	unlock := locks.Lock(keys...)
	defer unlock()
	for _, k := range keys {
		c.Remove(k)
	}
}

// Stats counts the loaded tasks.
func (b *Board) Stats() Stats {
	var s Stats
	for _, col := range models.Columns {
		for _, t := range b.columns[col] {
			s.Total++
			switch t.Priority {
			case models.PriorityLow:
				s.Low++
			case models.PriorityHigh:
				s.High++
			default:
				s.Medium++
			}
		}
	}
	if s.Total > 0 {
		s.Completion = int(math.Round(float64(len(b.columns[models.StatusDone])) / float64(s.Total) * 100))
	}
	return s
}

func remove(tasks []models.Task, i int) []models.Task {
	return append(tasks[:i], tasks[i+1:]...)
}

func insert(tasks []models.Task, i int, t models.Task) []models.Task {
	if i > len(tasks) {
		i = len(tasks)
	}
	tasks = append(tasks, models.Task{})
	copy(tasks[i+1:], tasks[i:])
	tasks[i] = t
	return tasks
}
