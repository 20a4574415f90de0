package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestStatusValid(t *testing.T) {
	for _, s := range Columns {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("blocked").Valid() {
		t.Error("unknown status should be invalid")
	}
	if Priority("urgent").Valid() {
		t.Error("unknown priority should be invalid")
	}
}

func TestPublicDropsPassword(t *testing.T) {
	u := StoredUser{ID: "1", Name: "Ana", Email: "ana@x.com", Password: "abc123", CreatedAt: time.Unix(0, 0).UTC()}
	data, err := json.Marshal(u.Public())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "password") || strings.Contains(string(data), "abc123") {
		t.Fatalf("public user leaks password: %s", data)
	}
}

func TestHasCollaborator(t *testing.T) {
	p := Project{Collaborators: []User{{ID: "2"}, {ID: "3"}}}
	if !p.HasCollaborator("3") {
		t.Error("expected collaborator 3")
	}
	if p.HasCollaborator("1") {
		t.Error("1 is not a collaborator")
	}
}
