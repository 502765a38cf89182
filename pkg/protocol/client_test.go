// ABOUTME: Tests for the WebSocket watch client
// ABOUTME: Runs a fake review server over httptest
package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

func fakeServer(t *testing.T, events ...Message) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != EventsPath {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var hello Message
		if err := conn.ReadJSON(&hello); err != nil || hello.Type != TypeClientHello {
			return
		}
		_ = conn.WriteJSON(Message{Type: TypeServerHello, Payload: ServerHello{ServerID: "srv-1", Name: "test", Version: Version}})

		for _, event := range events {
			_ = conn.WriteJSON(event)
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
}

func TestClientWatch(t *testing.T) {
	server := fakeServer(t,
		Message{Type: TypeAnalysisStarted, Payload: AnalysisEvent{FileID: "a"}},
		Message{Type: TypeReviewSubmitted, Payload: ReviewEvent{FileID: "a", Status: "approved"}},
	)
	defer server.Close()

	client := NewClient(Config{
		ServerAddr: strings.TrimPrefix(server.URL, "http://"),
		Name:       "test-watcher",
		Logger:     zaptest.NewLogger(t).Sugar(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var received []string
	if err := client.Watch(ctx, func(msg Message) {
		received = append(received, msg.Type)
	}); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	if len(received) != 2 || received[0] != TypeAnalysisStarted || received[1] != TypeReviewSubmitted {
		t.Errorf("unexpected events: %v", received)
	}
	if client.Server().ServerID != "srv-1" {
		t.Errorf("expected server id srv-1, got %q", client.Server().ServerID)
	}
	if client.IsConnected() {
		t.Error("expected client to be disconnected after stream end")
	}
}

func TestClientConnect_BadAddress(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(server.URL, "http://")
	server.Close()

	client := NewClient(Config{ServerAddr: addr})
	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("expected dial error, got nil")
	}
	if client.IsConnected() {
		t.Error("expected client to stay disconnected")
	}
}

func TestNewClient_GeneratesID(t *testing.T) {
	a := NewClient(Config{})
	b := NewClient(Config{})
	if a.config.ClientID == "" || a.config.ClientID == b.config.ClientID {
		t.Errorf("expected distinct generated ids, got %q and %q", a.config.ClientID, b.config.ClientID)
	}
}
