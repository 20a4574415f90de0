package repository

import (
	"time"

	"tasksphere/internal/models"
)

type seed struct {
	users    []models.StoredUser
	projects []models.Project
	tasks    []models.Task
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// seedData is the demo workspace written on first start.
func seedData() seed {
	users := []models.StoredUser{
		{ID: "1", Name: "Lena Hart", Email: "lena@tasksphere.com", Password: "123456", CreatedAt: day("2024-01-01")},
		{ID: "2", Name: "Marco Bell", Email: "marco@example.com", Password: "123456", CreatedAt: day("2024-01-02")},
		{ID: "3", Name: "Iris Novak", Email: "iris@example.com", Password: "123456", CreatedAt: day("2024-01-03")},
		{ID: "4", Name: "Tomas Reyes", Email: "tomas@example.com", Password: "123456", CreatedAt: day("2024-01-04")},
		{ID: "5", Name: "Noor Aziz", Email: "noor@example.com", Password: "123456", CreatedAt: day("2024-01-05")},
		{ID: "6", Name: "Elias Berg", Email: "elias@example.com", Password: "123456", CreatedAt: day("2024-01-06")},
	}
	for i := range users {
		users[i].Avatar = avatarURL(users[i].Name)
	}
	member := func(id string) models.User {
		for _, u := range users {
			if u.ID == id {
				p := u.Public()
				p.CreatedAt = nil
				return p
			}
		}
		panic("unknown seed user " + id)
	}

	projects := []models.Project{
		{
			ID: "1", Name: "TaskSphere Platform", Description: "Project and task management platform",
			StartDate: "2024-01-01", EndDate: "2024-06-30", Color: "#3B82F6", CreatorID: "1",
			Collaborators: []models.User{member("2"), member("3")},
			CreatedAt:     day("2024-01-01"), UpdatedAt: day("2024-01-15"),
		},
		{
			ID: "2", Name: "Mobile Storefront", Description: "Mobile app for online sales",
			StartDate: "2024-02-01", EndDate: "2024-08-31", Color: "#10B981", CreatorID: "1",
			Collaborators: []models.User{member("4"), member("5")},
			CreatedAt:     day("2024-02-01"), UpdatedAt: day("2024-02-10"),
		},
		{
			ID: "3", Name: "Analytics Dashboard", Description: "Real-time data analysis dashboard",
			StartDate: "2024-01-15", EndDate: "2024-05-15", Color: "#8B5CF6", CreatorID: "2",
			Collaborators: []models.User{member("1"), member("6")},
			CreatedAt:     day("2024-01-15"), UpdatedAt: day("2024-01-20"),
		},
		{
			ID: "4", Name: "API Gateway", Description: "Gateway for internal microservices",
			StartDate: "2024-03-01", EndDate: "2024-09-30", Color: "#F59E0B", CreatorID: "3",
			Collaborators: []models.User{},
			CreatedAt:     day("2024-03-01"), UpdatedAt: day("2024-03-01"),
		},
	}

	task := func(id, title string, status models.Status, priority models.Priority, due, projectID, creatorID string) models.Task {
		var projectName, creatorName string
		for _, p := range projects {
			if p.ID == projectID {
				projectName = p.Name
			}
		}
		for _, u := range users {
			if u.ID == creatorID {
				creatorName = u.Name
			}
		}
		return models.Task{
			ID: id, Title: title, Status: status, Priority: priority, DueDate: due,
			ProjectID: projectID, ProjectName: projectName, CreatorID: creatorID, CreatorName: creatorName,
			CreatedAt: day("2024-02-01"), UpdatedAt: day("2024-02-01"),
		}
	}

	tasks := []models.Task{
		task("1", "Design system tokens", models.StatusDone, models.PriorityHigh, "2024-02-15", "1", "1"),
		task("2", "Authentication flow", models.StatusInProgress, models.PriorityHigh, "2024-03-01", "1", "1"),
		task("3", "Kanban drag and drop", models.StatusTodo, models.PriorityMedium, "2024-03-20", "1", "2"),
		task("4", "Checkout screen", models.StatusTodo, models.PriorityHigh, "2024-04-10", "2", "1"),
		task("5", "Push notifications", models.StatusTodo, models.PriorityLow, "2024-05-01", "2", "4"),
		task("6", "Metrics ingestion", models.StatusInProgress, models.PriorityMedium, "2024-03-05", "3", "2"),
		task("7", "Chart components", models.StatusTodo, models.PriorityMedium, "2024-04-01", "3", "1"),
		task("8", "Rate limiting", models.StatusTodo, models.PriorityHigh, "2024-04-15", "4", "3"),
	}
	tasks[1].Assignee = ptr(member("2"))
	tasks[6].Assignee = ptr(member("6"))

	return seed{users: users, projects: projects, tasks: tasks}
}

func ptr[T any](v T) *T {
	return &v
}
