// Package views holds the list filters, pagination and statistics shown by the
// dashboard and list pages. Nothing here touches storage.
package views

import (
	"math"
	"strings"
	"time"

	"tasksphere/internal/models"
)

// Page sizes used by the list pages.
const (
	TasksPerPage    = 6
	ProjectsPerPage = 9
)

// Page is one slice of a larger list. Pages are numbered from 1.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

// Paginate returns page of items. Out-of-range pages are clamped.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = len(items)
		if perPage == 0 {
			perPage = 1
		}
	}
	totalPages := int(math.Ceil(float64(len(items)) / float64(perPage)))
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * perPage
	end := min(start+perPage, len(items))
	out := make([]T, 0, max(end-start, 0))
	if start < end {
		out = append(out, items[start:end]...)
	}
	return Page[T]{Items: out, Page: page, PerPage: perPage, TotalPages: totalPages, TotalItems: len(items)}
}

// ParseDate reads a date-only or RFC 3339 value.
func ParseDate(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// TaskQuery filters the "all tasks" list. Empty fields match everything.
type TaskQuery struct {
	Search   string
	Status   models.Status
	Priority models.Priority
}

// FilterTasks applies q. Search matches title or project name, ignoring case.
func FilterTasks(tasks []models.Task, q TaskQuery) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Search != "" && !containsFold(t.Title, q.Search) && !containsFold(t.ProjectName, q.Search) {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TaskSummary counts the filtered task list.
type TaskSummary struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	HighPriority int `json:"high_priority"`
	Overdue      int `json:"overdue"`
}

// SummarizeTasks counts tasks. Overdue is any due date before now, whatever the status.
func SummarizeTasks(tasks []models.Task, now time.Time) TaskSummary {
	s := TaskSummary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Status != models.StatusDone {
			s.Pending++
		}
		if t.Priority == models.PriorityHigh {
			s.HighPriority++
		}
		if due, ok := ParseDate(t.DueDate); ok && due.Before(now) {
			s.Overdue++
		}
	}
	return s
}

// ProjectStatus filters the project list.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOverdue   ProjectStatus = "overdue"
)

// ProjectQuery filters the "my projects" list. Empty fields match everything.
type ProjectQuery struct {
	Search string
	Status ProjectStatus
}

// ProjectProgress is the rounded percentage of done tasks in a project.
func ProjectProgress(projectID string, tasks []models.Task) int {
	total, done := 0, 0
	for _, t := range tasks {
		if t.ProjectID != projectID {
			continue
		}
		total++
		if t.Status == models.StatusDone {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// ProgressByProject computes ProjectProgress for each project.
func ProgressByProject(projects []models.Project, tasks []models.Task) map[string]int {
	out := make(map[string]int, len(projects))
	for _, p := range projects {
		out[p.ID] = ProjectProgress(p.ID, tasks)
	}
	return out
}

func isActive(p models.Project, now time.Time) bool {
	end, ok := ParseDate(p.EndDate)
	return !ok || end.After(now)
}

func isOverdue(p models.Project, progress map[string]int, now time.Time) bool {
	end, ok := ParseDate(p.EndDate)
	return ok && end.Before(now) && progress[p.ID] < 100
}

// FilterProjects applies q. Search matches name or description, ignoring case.
func FilterProjects(projects []models.Project, progress map[string]int, q ProjectQuery, now time.Time) []models.Project {
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if q.Search != "" && !containsFold(p.Name, q.Search) && !containsFold(p.Description, q.Search) {
			continue
		}
		switch q.Status {
		case ProjectActive:
			if !isActive(p, now) {
				continue
			}
		case ProjectCompleted:
			if progress[p.ID] != 100 {
				continue
			}
		case ProjectOverdue:
			if !isOverdue(p, progress, now) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// ProjectSummary counts the filtered project list.
type ProjectSummary struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
}

// SummarizeProjects counts projects per status.
func SummarizeProjects(projects []models.Project, progress map[string]int, now time.Time) ProjectSummary {
	s := ProjectSummary{Total: len(projects)}
	for _, p := range projects {
		if isActive(p, now) {
			s.Active++
		}
		if progress[p.ID] == 100 {
			s.Completed++
		}
		if isOverdue(p, progress, now) {
			s.Overdue++
		}
	}
	return s
}

// DashboardStats are the headline numbers of a user's dashboard.
type DashboardStats struct {
	TotalProjects  int `json:"total_projects"`
	CompletedTasks int `json:"completed_tasks"`
	PendingTasks   int `json:"pending_tasks"`
	OverdueTasks   int `json:"overdue_tasks"`
}

// Dashboard summarizes a user's projects and tasks. A task is overdue when it is
// not done and its due date is before now.
func Dashboard(projects []models.Project, tasks []models.Task, now time.Time) DashboardStats {
	s := DashboardStats{TotalProjects: len(projects)}
	for _, t := range tasks {
		if t.Status == models.StatusDone {
			s.CompletedTasks++
			continue
		}
		s.PendingTasks++
		if due, ok := ParseDate(t.DueDate); ok && due.Before(now) {
			s.OverdueTasks++
		}
	}
	return s
}
