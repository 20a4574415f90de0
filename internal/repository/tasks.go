package repository

import (
	"context"
	"fmt"
	"strings"

	"tasksphere/internal/models"
	"tasksphere/internal/resolver"
)

// TaskFilter narrows ListTasks. Empty fields match everything.
type TaskFilter struct {
	ProjectID string
	Status    models.Status
}

// ListTasks returns the tasks matching filter.
func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return nil, err
	}
	tasks := s.loadTasks()
	if filter.ProjectID != "" {
		tasks = resolver.TasksOfProject(tasks, filter.ProjectID)
	}
	if filter.Status != "" {
		kept := tasks[:0]
		for _, t := range tasks {
			if t.Status == filter.Status {
				kept = append(kept, t)
			}
		}
		tasks = kept
	}
	return tasks, nil
}

// UserTasks returns the tasks that belong to userID under the configured scope.
func (s *Store) UserTasks(ctx context.Context, userID string) ([]models.Task, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return nil, err
	}
	return resolver.TasksCreatedBy(s.loadProjects(), s.loadTasks(), userID, s.opts.TaskScope), nil
}

// GetTask fetches a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.Task{}, err
	}
	for _, t := range s.loadTasks() {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
}

// CreateTask stores a new task in an existing project.
func (s *Store) CreateTask(ctx context.Context, in models.NewTask) (models.Task, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.Task{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty: %w", ErrInvalidInput)
	}
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Status.Valid() {
		return models.Task{}, fmt.Errorf("status %q: %w", in.Status, ErrInvalidInput)
	}
	if !in.Priority.Valid() {
		return models.Task{}, fmt.Errorf("priority %q: %w", in.Priority, ErrInvalidInput)
	}

	if in.CreatorName == "" {
		for _, u := range s.loadUsers() {
			if u.ID == in.CreatorID {
				in.CreatorName = u.Name
				break
			}
		}
	}

	// The project must still exist when the task is written, so the check
	// shares the lock DeleteProject takes.
	unlock := s.locks.Lock(KeyProjects, KeyTasks)
	defer unlock()

	project, ok := findProject(s.loadProjects(), in.ProjectID)
	if !ok {
		return models.Task{}, fmt.Errorf("project %s: %w", in.ProjectID, ErrNotFound)
	}
	if in.ProjectName == "" {
		in.ProjectName = project.Name
	}

	now := s.now()
	t := models.Task{
		ID:          s.opts.NewID(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		ImageURL:    in.ImageURL,
		ProjectID:   in.ProjectID,
		CreatorID:   in.CreatorID,
		CreatorName: in.CreatorName,
		ProjectName: in.ProjectName,
		Assignee:    in.Assignee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.DueDate == "" {
		t.DueDate = now.Format("2006-01-02")
	}

	s.codec.Save(KeyTasks, append(s.loadTasks(), t))
	return t, nil
}

// UpdateTask merges upd into the stored task.
func (s *Store) UpdateTask(ctx context.Context, id string, upd models.TaskUpdate) (models.Task, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.Task{}, err
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return models.Task{}, fmt.Errorf("status %q: %w", *upd.Status, ErrInvalidInput)
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		return models.Task{}, fmt.Errorf("priority %q: %w", *upd.Priority, ErrInvalidInput)
	}

	unlock := s.locks.Lock(KeyTasks)
	defer unlock()

	tasks := s.loadTasks()
	idx := -1
	for i, t := range tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return models.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	t := tasks[idx]
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return models.Task{}, fmt.Errorf("task title must not be empty: %w", ErrInvalidInput)
		}
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.DueDate != nil {
		t.DueDate = *upd.DueDate
	}
	if upd.ImageURL != nil {
		t.ImageURL = *upd.ImageURL
	}
	if upd.Assignee != nil {
		t.Assignee = upd.Assignee
	}
	if upd.ClearAssignee {
		t.Assignee = nil
	}
	t.UpdatedAt = s.now()

	tasks[idx] = t
	s.codec.Save(KeyTasks, tasks)
	return t, nil
}

// DeleteTask removes a task. Unknown ids are ignored.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return err
	}

	unlock := s.locks.Lock(KeyTasks)
	defer unlock()

	tasks := s.loadTasks()
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.codec.Save(KeyTasks, kept)
	return nil
}
