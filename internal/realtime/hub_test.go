package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, r.URL.Query().Get("project"), "tester"); err != nil {
			t.Logf("serve: %v", err)
		}
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, project string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?project=" + project
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal %q: %v", msg, err)
	}
	return ev
}

// ping waits for the pong, which also proves the client is registered.
func ping(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ev := read(t, conn); ev.Type != "pong" {
		t.Fatalf("got %q, want pong", ev.Type)
	}
}

func TestPingPong(t *testing.T) {
	_, srv := startHub(t)
	ping(t, dial(t, srv, "p1"))
}

func TestPublishReachesProjectOnly(t *testing.T) {
	hub, srv := startHub(t)
	a := dial(t, srv, "p1")
	b := dial(t, srv, "p2")
	ping(t, a)
	ping(t, b)

	hub.Publish("p1", Event{Type: TaskMoved, Data: map[string]string{"task_id": "t1"}})

	ev := read(t, a)
	if ev.Type != TaskMoved || ev.ProjectID != "p1" {
		t.Fatalf("event = %+v", ev)
	}

	// b must see its own pong next, not the p1 event.
	ping(t, b)
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer+1; i++ {
			hub.Publish("p1", Event{Type: TaskDeleted})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked after the hub stopped")
	}
}
