package repository

import (
	"context"
	"fmt"
	"strings"

	"tasksphere/internal/models"
	"tasksphere/internal/resolver"
)

const defaultProjectColor = "#3B82F6"

// ProjectFilter narrows ListProjects. An empty UserID lists every project.
type ProjectFilter struct {
	UserID string
}

// ListProjects returns the projects matching filter.
func (s *Store) ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return nil, err
	}
	projects := s.loadProjects()
	if filter.UserID == "" {
		return projects, nil
	}
	return resolver.ProjectsVisibleTo(projects, filter.UserID), nil
}

// GetProject fetches a project with its tasks attached.
func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.Project{}, err
	}

	p, ok := findProject(s.loadProjects(), id)
	if !ok {
		return models.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	p.Tasks = resolver.TasksOfProject(s.loadTasks(), id)
	return p, nil
}

// CreateProject stores a new project.
func (s *Store) CreateProject(ctx context.Context, in models.NewProject) (models.Project, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.Project{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty: %w", ErrInvalidInput)
	}
	if in.CreatorID == "" {
		return models.Project{}, fmt.Errorf("project creator is required: %w", ErrInvalidInput)
	}

	unlock := s.locks.Lock(KeyProjects)
	defer unlock()

	now := s.now()
	p := models.Project{
		ID:            s.opts.NewID(),
		Name:          in.Name,
		Description:   in.Description,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Color:         in.Color,
		CreatorID:     in.CreatorID,
		Collaborators: uniqueUsers(in.Collaborators),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Color == "" {
		p.Color = defaultProjectColor
	}

	s.codec.Save(KeyProjects, append(s.loadProjects(), p))
	return p, nil
}

// UpdateProject merges upd into the stored project. Collaborators are replaced wholesale.
func (s *Store) UpdateProject(ctx context.Context, id string, upd models.ProjectUpdate) (models.Project, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.Project{}, err
	}
	return s.updateProject(id, upd)
}

func (s *Store) updateProject(id string, upd models.ProjectUpdate) (models.Project, error) {
	return s.mutateProject(id, func(p *models.Project) error {
		if upd.Name != nil {
			if strings.TrimSpace(*upd.Name) == "" {
				return fmt.Errorf("project name must not be empty: %w", ErrInvalidInput)
			}
			p.Name = *upd.Name
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.StartDate != nil {
			p.StartDate = *upd.StartDate
		}
		if upd.EndDate != nil {
			p.EndDate = *upd.EndDate
		}
		if upd.Color != nil {
			p.Color = *upd.Color
		}
		if upd.Collaborators != nil {
			p.Collaborators = uniqueUsers(*upd.Collaborators)
		}
		return nil
	})
}

// mutateProject applies fn to the stored project under the projects lock and stamps updated_at.
func (s *Store) mutateProject(id string, fn func(p *models.Project) error) (models.Project, error) {
	unlock := s.locks.Lock(KeyProjects)
	defer unlock()

	projects := s.loadProjects()
	idx := projectIndex(projects, id)
	if idx == -1 {
		return models.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	p := projects[idx]
	if err := fn(&p); err != nil {
		return models.Project{}, err
	}
	p.UpdatedAt = s.now()

	projects[idx] = p
	s.codec.Save(KeyProjects, projects)
	return p, nil
}

// AddCollaborator appends user to the project's collaborators unless already present.
func (s *Store) AddCollaborator(ctx context.Context, projectID string, user models.User) (models.Project, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.Project{}, err
	}
	if user.ID == "" {
		return models.Project{}, fmt.Errorf("collaborator id is required: %w", ErrInvalidInput)
	}
	return s.mutateProject(projectID, func(p *models.Project) error {
		p.Collaborators = uniqueUsers(append(p.Collaborators, user))
		return nil
	})
}

// RemoveCollaborator drops userID from the project's collaborators.
func (s *Store) RemoveCollaborator(ctx context.Context, projectID, userID string) (models.Project, error) {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return models.Project{}, err
	}
	return s.mutateProject(projectID, func(p *models.Project) error {
		kept := make([]models.User, 0, len(p.Collaborators))
		for _, c := range p.Collaborators {
			if c.ID != userID {
				kept = append(kept, c)
			}
		}
		p.Collaborators = kept
		return nil
	})
}

// DeleteProject removes a project and every task that belongs to it.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if err := s.wait(ctx, s.opts.Latency); err != nil {
		return err
	}

	unlock := s.locks.Lock(KeyProjects, KeyTasks)
	defer unlock()

	projects := s.loadProjects()
	keptProjects := projects[:0]
	for _, p := range projects {
		if p.ID != id {
			keptProjects = append(keptProjects, p)
		}
	}
	s.codec.Save(KeyProjects, keptProjects)

	tasks := s.loadTasks()
	keptTasks := tasks[:0]
	for _, t := range tasks {
		if t.ProjectID != id {
			keptTasks = append(keptTasks, t)
		}
	}
	s.codec.Save(KeyTasks, keptTasks)
	return nil
}

func projectIndex(projects []models.Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func findProject(projects []models.Project, id string) (models.Project, bool) {
	if idx := projectIndex(projects, id); idx != -1 {
		return projects[idx], true
	}
	return models.Project{}, false
}

func uniqueUsers(users []models.User) []models.User {
	out := make([]models.User, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}
	return out
}
