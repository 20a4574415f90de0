// Package resolver derives user/project/task relationships from collection snapshots.
package resolver

import (
	"fmt"

	"tasksphere/internal/models"
)

// Scope selects which tasks count as a user's own.
type Scope int

const (
	// ScopeCreated counts tasks the user created.
	ScopeCreated Scope = iota
	// ScopeCreatedOrAssigned also counts tasks assigned to the user.
	ScopeCreatedOrAssigned
)

// ParseScope maps a config value to a Scope.
func ParseScope(v string) (Scope, error) {
	switch v {
	case "", "created":
		return ScopeCreated, nil
	case "created_or_assigned":
		return ScopeCreatedOrAssigned, nil
	}
	return ScopeCreated, fmt.Errorf("unknown task scope %q", v)
}

func (s Scope) String() string {
	if s == ScopeCreatedOrAssigned {
		return "created_or_assigned"
	}
	return "created"
}

// IsOwner reports whether userID created p.
func IsOwner(p models.Project, userID string) bool {
	return p.CreatorID == userID
}

// IsCollaborator reports whether userID collaborates on p.
func IsCollaborator(p models.Project, userID string) bool {
	return p.HasCollaborator(userID)
}

// CanView reports whether userID sees p.
func CanView(p models.Project, userID string) bool {
	return IsOwner(p, userID) || IsCollaborator(p, userID)
}

// ProjectsVisibleTo filters projects down to those userID can see.
func ProjectsVisibleTo(projects []models.Project, userID string) []models.Project {
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if CanView(p, userID) {
			out = append(out, p)
		}
	}
	return out
}

// TasksCreatedBy returns the user's tasks inside projects they can see.
func TasksCreatedBy(projects []models.Project, tasks []models.Task, userID string, scope Scope) []models.Task {
	visible := make(map[string]struct{})
	for _, p := range ProjectsVisibleTo(projects, userID) {
		visible[p.ID] = struct{}{}
	}

	out := make([]models.Task, 0)
	for _, t := range tasks {
		if t.ProjectID == "" {
			continue
		}
		if _, ok := visible[t.ProjectID]; !ok {
			continue
		}
		if t.CreatorID == userID || (scope == ScopeCreatedOrAssigned && t.Assignee != nil && t.Assignee.ID == userID) {
			out = append(out, t)
		}
	}
	return out
}

// TasksOfProject filters tasks by project.
func TasksOfProject(tasks []models.Task, projectID string) []models.Task {
	out := make([]models.Task, 0)
	for _, t := range tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out
}
