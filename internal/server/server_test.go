package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"tasksphere/internal/board"
	"tasksphere/internal/codec"
	"tasksphere/internal/keylock"
	"tasksphere/internal/models"
	"tasksphere/internal/realtime"
	"tasksphere/internal/repository"
	"tasksphere/internal/storage/memory"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	os.Exit(m.Run())
}

type fakeDirectory struct {
	cleared int
}

func (*fakeDirectory) Suggestions(_ context.Context, count int) []models.User {
	return []models.User{{ID: "d1", Name: "Dir One", Email: "one@dir.test"}}[:min(count, 1)]
}

func (*fakeDirectory) Search(_ context.Context, term string, _ int) []models.User {
	return []models.User{{ID: "d2", Name: "Match " + term, Email: "match@dir.test"}}
}

func (*fakeDirectory) EmailExists(_ context.Context, email string) bool {
	return strings.EqualFold(email, "one@dir.test")
}

func (d *fakeDirectory) ClearCache() {
	d.cleared++
}

type recordingHub struct {
	events []realtime.Event
}

func (h *recordingHub) Publish(projectID string, ev realtime.Event) {
	ev.ProjectID = projectID
	h.events = append(h.events, ev)
}

func (h *recordingHub) Serve(w http.ResponseWriter, _ *http.Request, _, _ string) error {
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

type env struct {
	handler http.Handler
	codec   *codec.Codec
	hub     *recordingHub
	dir     *fakeDirectory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, Options{})
}

func newEnvWith(t *testing.T, opts Options) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := codec.New(memory.New(0), logger)
	locks := keylock.New()
	store := repository.New(c, nil, locks, logger, repository.Options{})
	store.Initialize()

	hub := &recordingHub{}
	dir := &fakeDirectory{}
	srv := New(Deps{Store: store, Codec: c, Locks: locks, Directory: dir, Hub: hub}, logger, opts)
	return &env{handler: srv.Handler(), codec: c, hub: hub, dir: dir}
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) expect(t *testing.T, method, path, body string, status int, out any) {
	t.Helper()
	rec := e.do(t, method, path, body)
	if rec.Code != status {
		t.Fatalf("%s %s = %d, want %d: %s", method, path, rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	e.expect(t, http.MethodGet, "/api/healthz", "", http.StatusOK, nil)
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)

	e.expect(t, http.MethodGet, "/api/auth/me", "", http.StatusNotFound, nil)
	e.expect(t, http.MethodPost, "/api/auth/login", `{"email":"lena@tasksphere.com","password":"nope"}`, http.StatusUnauthorized, nil)

	rec := e.do(t, http.MethodPost, "/api/auth/login", `{"email":"lena@tasksphere.com","password":"123456"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("login leaked the password: %s", rec.Body.String())
	}

	var me struct {
		User models.User `json:"user"`
	}
	e.expect(t, http.MethodGet, "/api/auth/me", "", http.StatusOK, &me)
	if me.User.ID != "1" {
		t.Fatalf("me = %+v", me.User)
	}

	e.expect(t, http.MethodPost, "/api/auth/register", `{"name":"Lena","email":"LENA@tasksphere.com","password":"x"}`, http.StatusConflict, nil)
	e.expect(t, http.MethodPost, "/api/auth/register", `{"name":"","email":"a@b.c","password":"x"}`, http.StatusBadRequest, nil)
	e.expect(t, http.MethodPost, "/api/auth/logout", "", http.StatusOK, nil)
	e.expect(t, http.MethodGet, "/api/auth/me", "", http.StatusNotFound, nil)
}

func TestProjectBoardLifecycle(t *testing.T) {
	e := newEnv(t)
	e.expect(t, http.MethodPost, "/api/auth/login", `{"email":"lena@tasksphere.com","password":"123456"}`, http.StatusOK, nil)

	var created struct {
		Project models.Project `json:"project"`
	}
	e.expect(t, http.MethodPost, "/api/projects", `{"name":"Launch"}`, http.StatusCreated, &created)
	pid := created.Project.ID
	if created.Project.CreatorID != "1" {
		t.Fatalf("creator = %q, want session user", created.Project.CreatorID)
	}

	var task struct {
		Task models.Task `json:"task"`
	}
	e.expect(t, http.MethodPost, "/api/projects/"+pid+"/tasks", `{"title":"Write launch post"}`, http.StatusCreated, &task)
	if task.Task.Status != models.StatusTodo || task.Task.ProjectName != "Launch" {
		t.Fatalf("task = %+v", task.Task)
	}
	tid := task.Task.ID

	var view struct {
		Columns []struct {
			ID    models.Status `json:"id"`
			Color string        `json:"color"`
			Tasks struct {
				Items []models.Task `json:"items"`
			} `json:"tasks"`
		} `json:"columns"`
		Stats board.Stats `json:"stats"`
	}
	e.expect(t, http.MethodGet, "/api/projects/"+pid+"/board", "", http.StatusOK, &view)
	if len(view.Columns) != 3 || len(view.Columns[0].Tasks.Items) != 1 || view.Columns[0].Color != board.DefaultColumnColor {
		t.Fatalf("board = %+v", view)
	}

	e.expect(t, http.MethodPost, "/api/projects/"+pid+"/board/moves",
		`{"from_column":"todo","from_index":0,"to_column":"done","to_index":0}`, http.StatusOK, &view)
	if view.Stats.Completion != 100 || len(view.Columns[2].Tasks.Items) != 1 {
		t.Fatalf("board after move = %+v", view)
	}
	e.expect(t, http.MethodGet, "/api/tasks/"+tid, "", http.StatusOK, &task)
	if task.Task.Status != models.StatusDone {
		t.Fatalf("status after move = %s", task.Task.Status)
	}

	e.expect(t, http.MethodPost, "/api/projects/"+pid+"/board/moves",
		`{"from_column":"todo","from_index":0,"to_column":"done","to_index":0}`, http.StatusBadRequest, nil)
	e.expect(t, http.MethodPut, "/api/projects/"+pid+"/board/columns/done/color", `{"color":"bg-green-700"}`, http.StatusOK, nil)
	e.expect(t, http.MethodPut, "/api/projects/"+pid+"/board/columns/backlog/color", `{"color":"bg-green-700"}`, http.StatusBadRequest, nil)
	e.expect(t, http.MethodGet, "/api/projects/"+pid+"/board", "", http.StatusOK, &view)
	if view.Columns[2].Color != "bg-green-700" {
		t.Fatalf("done color = %s", view.Columns[2].Color)
	}

	e.expect(t, http.MethodDelete, "/api/projects/"+pid, "", http.StatusOK, nil)
	e.expect(t, http.MethodGet, "/api/projects/"+pid, "", http.StatusNotFound, nil)
	e.expect(t, http.MethodGet, "/api/tasks/"+tid, "", http.StatusNotFound, nil)
	if e.codec.Has(board.OrderKey(pid, models.StatusDone)) || e.codec.Has(board.ColorKey(pid, models.StatusDone)) {
		t.Fatal("board records survived project deletion")
	}

	kinds := make([]string, 0, len(e.hub.events))
	for _, ev := range e.hub.events {
		if ev.ProjectID != pid {
			t.Fatalf("event for project %s, want %s", ev.ProjectID, pid)
		}
		kinds = append(kinds, ev.Type)
	}
	want := []string{realtime.TaskCreated, realtime.TaskMoved, realtime.ColumnColor, realtime.ProjectDeleted}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
}

func TestErrorMapping(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "bad json", method: http.MethodPost, path: "/api/projects", body: `{"name":`, want: http.StatusBadRequest},
		{name: "missing creator", method: http.MethodPost, path: "/api/projects", body: `{"name":"Orphan"}`, want: http.StatusBadRequest},
		{name: "task in unknown project", method: http.MethodPost, path: "/api/projects/missing/tasks", body: `{"title":"x"}`, want: http.StatusNotFound},
		{name: "invalid priority", method: http.MethodPost, path: "/api/projects/1/tasks", body: `{"title":"x","priority":"urgent","creator_id":"1"}`, want: http.StatusBadRequest},
		{name: "update unknown task", method: http.MethodPut, path: "/api/tasks/missing", body: `{"title":"x"}`, want: http.StatusNotFound},
		{name: "delete unknown task", method: http.MethodDelete, path: "/api/tasks/missing", want: http.StatusOK},
		{name: "email collision", method: http.MethodPut, path: "/api/users/2", body: `{"email":"lena@tasksphere.com"}`, want: http.StatusConflict},
		{name: "unknown board", method: http.MethodGet, path: "/api/projects/missing/board", want: http.StatusNotFound},
		{name: "unknown endpoint", method: http.MethodGet, path: "/api/nope", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if rec.Code >= 400 && !strings.Contains(rec.Body.String(), `"error"`) {
				t.Fatalf("error body = %s", rec.Body.String())
			}
		})
	}
}

func TestUserViews(t *testing.T) {
	e := newEnv(t)

	var tasks struct {
		Tasks struct {
			Items      []models.Task `json:"items"`
			TotalItems int           `json:"total_items"`
		} `json:"tasks"`
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
	}
	e.expect(t, http.MethodGet, "/api/users/1/tasks?status=todo", "", http.StatusOK, &tasks)
	if tasks.Tasks.TotalItems != 2 || tasks.Summary.Total != 2 {
		t.Fatalf("todo tasks = %+v", tasks)
	}
	for _, task := range tasks.Tasks.Items {
		if task.Status != models.StatusTodo || task.CreatorID != "1" {
			t.Fatalf("unexpected task %+v", task)
		}
	}

	var dash struct {
		Stats struct {
			TotalProjects  int `json:"total_projects"`
			CompletedTasks int `json:"completed_tasks"`
			PendingTasks   int `json:"pending_tasks"`
		} `json:"stats"`
		Progress map[string]int `json:"progress"`
	}
	e.expect(t, http.MethodGet, "/api/users/1/dashboard", "", http.StatusOK, &dash)
	if dash.Stats.TotalProjects != 3 || dash.Stats.CompletedTasks != 1 || dash.Stats.PendingTasks != 3 {
		t.Fatalf("dashboard = %+v", dash.Stats)
	}
	if dash.Progress["1"] != 33 {
		t.Fatalf("progress of project 1 = %d", dash.Progress["1"])
	}

	var projects struct {
		Projects struct {
			Items []models.Project `json:"items"`
		} `json:"projects"`
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
	}
	e.expect(t, http.MethodGet, "/api/projects?user_id=6&search=analytics", "", http.StatusOK, &projects)
	if len(projects.Projects.Items) != 1 || projects.Projects.Items[0].ID != "3" {
		t.Fatalf("projects of user 6 = %+v", projects.Projects.Items)
	}

	// The summary counts what the filter kept, not every visible project.
	e.expect(t, http.MethodGet, "/api/projects?search=gateway", "", http.StatusOK, &projects)
	if len(projects.Projects.Items) != 1 || projects.Summary.Total != 1 {
		t.Fatalf("filtered summary = %+v, items = %+v", projects.Summary, projects.Projects.Items)
	}
	e.expect(t, http.MethodGet, "/api/projects", "", http.StatusOK, &projects)
	if projects.Summary.Total != 4 {
		t.Fatalf("unfiltered summary total = %d, want 4", projects.Summary.Total)
	}
}

func TestCollaboratorEndpoints(t *testing.T) {
	e := newEnv(t)

	var out struct {
		Users []models.User `json:"users"`
	}
	e.expect(t, http.MethodGet, "/api/collaborators?count=5", "", http.StatusOK, &out)
	if len(out.Users) != 1 || out.Users[0].ID != "d1" {
		t.Fatalf("suggestions = %+v", out.Users)
	}
	e.expect(t, http.MethodGet, "/api/collaborators?q=ana", "", http.StatusOK, &out)
	if len(out.Users) != 1 || out.Users[0].Name != "Match ana" {
		t.Fatalf("search = %+v", out.Users)
	}

	var project struct {
		Project models.Project `json:"project"`
	}
	e.expect(t, http.MethodPost, "/api/projects/4/collaborators", `{"id":"d1","name":"Dir One","email":"one@dir.test"}`, http.StatusOK, &project)
	if !project.Project.HasCollaborator("d1") {
		t.Fatalf("collaborators = %+v", project.Project.Collaborators)
	}
	e.expect(t, http.MethodDelete, "/api/projects/4/collaborators/d1", "", http.StatusOK, &project)
	if project.Project.HasCollaborator("d1") {
		t.Fatalf("collaborator not removed: %+v", project.Project.Collaborators)
	}
}

func TestCollaboratorExists(t *testing.T) {
	e := newEnv(t)

	var out struct {
		Exists bool `json:"exists"`
	}
	e.expect(t, http.MethodGet, "/api/collaborators/exists?email=ONE@dir.test", "", http.StatusOK, &out)
	if !out.Exists {
		t.Fatal("expected directory email to exist")
	}
	e.expect(t, http.MethodGet, "/api/collaborators/exists?email=ghost@dir.test", "", http.StatusOK, &out)
	if out.Exists {
		t.Fatal("unexpected match for unknown email")
	}
	e.expect(t, http.MethodGet, "/api/collaborators/exists", "", http.StatusBadRequest, nil)
}

func TestAdminRoutes(t *testing.T) {
	off := newEnv(t)
	off.expect(t, http.MethodPost, "/api/admin/reset", "", http.StatusNotFound, nil)

	e := newEnvWith(t, Options{Admin: true})
	e.expect(t, http.MethodPost, "/api/projects", `{"name":"Extra","creator_id":"1"}`, http.StatusCreated, nil)

	var list struct {
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
	}
	e.expect(t, http.MethodPost, "/api/admin/seed", "", http.StatusOK, nil)
	e.expect(t, http.MethodGet, "/api/projects", "", http.StatusOK, &list)
	if list.Summary.Total != 5 {
		t.Fatalf("seed must keep existing data, got %d projects", list.Summary.Total)
	}

	e.expect(t, http.MethodPost, "/api/admin/reset", "", http.StatusOK, nil)
	e.expect(t, http.MethodGet, "/api/projects", "", http.StatusOK, &list)
	if list.Summary.Total != 4 {
		t.Fatalf("reset projects = %d, want 4", list.Summary.Total)
	}

	e.expect(t, http.MethodPost, "/api/admin/clear", "", http.StatusOK, nil)
	e.expect(t, http.MethodGet, "/api/projects", "", http.StatusOK, &list)
	if list.Summary.Total != 0 {
		t.Fatalf("clear left %d projects", list.Summary.Total)
	}
	if e.dir.cleared != 1 {
		t.Fatalf("directory cache cleared %d times, want 1", e.dir.cleared)
	}
}
