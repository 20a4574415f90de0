package models

import "time"

// Status is a board column and the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Columns lists the board columns in display order.
var Columns = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is one of the board statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// User is the public view of an account, attached to projects and tasks.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Avatar    string     `json:"avatar,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// StoredUser is the persisted account record. The password is kept in plaintext.
type StoredUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips the password.
func (u StoredUser) Public() User {
	created := u.CreatedAt
	return User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: &created,
	}
}

// Project groups tasks and collaborators.
type Project struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Color         string    `json:"color,omitempty"`
	CreatorID     string    `json:"creator_id"`
	Collaborators []User    `json:"collaborators"`
	Tasks         []Task    `json:"tasks,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasCollaborator reports whether userID is listed as a collaborator.
func (p Project) HasCollaborator(userID string) bool {
	for _, c := range p.Collaborators {
		if c.ID == userID {
			return true
		}
	}
	return false
}

// Task is a single card on a project board.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	DueDate     string    `json:"due_date"`
	ImageURL    string    `json:"image_url"`
	ProjectID   string    `json:"project_id"`
	CreatorID   string    `json:"creator_id"`
	CreatorName string    `json:"creator_name"`
	ProjectName string    `json:"project_name"`
	Assignee    *User     `json:"assignee,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProject is the input for creating a project.
type NewProject struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Color         string `json:"color"`
	CreatorID     string `json:"creator_id"`
	Collaborators []User `json:"collaborators"`
}

// ProjectUpdate carries the fields to change. Nil fields are left untouched and
// a non-nil Collaborators replaces the whole list.
type ProjectUpdate struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	Color         *string `json:"color"`
	Collaborators *[]User `json:"collaborators"`
}

// NewTask is the input for creating a task.
type NewTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"due_date"`
	ImageURL    string   `json:"image_url"`
	ProjectID   string   `json:"project_id"`
	CreatorID   string   `json:"creator_id"`
	CreatorName string   `json:"creator_name"`
	ProjectName string   `json:"project_name"`
	Assignee    *User    `json:"assignee"`
}

// TaskUpdate carries the task fields to change. ClearAssignee removes the assignee.
type TaskUpdate struct {
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	Status        *Status   `json:"status"`
	Priority      *Priority `json:"priority"`
	DueDate       *string   `json:"due_date"`
	ImageURL      *string   `json:"image_url"`
	Assignee      *User     `json:"assignee"`
	ClearAssignee bool      `json:"clear_assignee"`
}

// UserUpdate carries the profile fields to change.
type UserUpdate struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Avatar *string `json:"avatar"`
}
