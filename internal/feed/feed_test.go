package feed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastReachesConnectedClient(t *testing.T) {
	b := New()
	srv := httptest.NewServer(http.HandlerFunc(b.Handler))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 connected client, got %d", b.ClientCount())
	}

	sid := NewSession()
	b.Broadcast(Event{SessionID: sid, FuncIndex: 2, Stage: "lifted", Completed: 1, Total: 4})

	var ev Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if ev.SessionID != sid || ev.FuncIndex != 2 || ev.Stage != "lifted" {
		t.Errorf("unexpected event: %+v", ev)
	}
}
