package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/redsand/roversim/sim/mission"
	"github.com/redsand/roversim/sim/world"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	hub.registerClient(client)

	if _, exists := hub.sessions["test-session"]; !exists {
		t.Error("Session was not created")
	}
	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sessionID := "multi-client-session"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}

	hub.registerClient(client1)
	hub.registerClient(client2)

	if len(hub.sessions[sessionID]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions[sessionID]))
	}

	hub.unregisterClient(client1)

	if len(hub.sessions[sessionID]) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", len(hub.sessions[sessionID]))
	}
	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestBroadcastSnapshotToSession(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sessionID := "broadcast-test"

	client := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	hub.registerClient(client)

	hub.PublishSnapshot(sessionID, mission.Snapshot{
		Step:     3,
		Position: world.Position{X: 5, Y: 3},
		Battery:  80,
		Daytime:  true,
	})
	hub.broadcastMessage(<-hub.broadcast)

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != sessionID {
			t.Errorf("Expected sessionID %s, got %s", sessionID, message.SessionID)
		}
		if message.Event != "telemetry" {
			t.Errorf("Expected event 'telemetry', got %s", message.Event)
		}
		if message.Snapshot == nil || message.Snapshot.Position.X != 5 || message.Snapshot.Battery != 80 {
			t.Errorf("Snapshot not correctly transmitted: %+v", message.Snapshot)
		}

	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}
}

func TestBroadcastSkipsOtherSessions(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, 256)}
	hub.registerClient(other)

	hub.PublishResult("target", &mission.Result{Success: true})
	hub.broadcastMessage(<-hub.broadcast)

	select {
	case <-other.send:
		t.Error("Client subscribed to a different session received the frame")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sessionID := "slow-client"

	client := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 1)}
	hub.registerClient(client)

	// Fill the client's buffer so the next frame cannot be delivered.
	client.send <- []byte("backlog")

	hub.PublishSnapshot(sessionID, mission.Snapshot{Step: 1})
	hub.broadcastMessage(<-hub.broadcast)

	if _, exists := hub.sessions[sessionID]; exists {
		t.Error("Slow client should have been dropped and its session cleaned up")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	// No Run loop is draining the channel; publishes beyond the buffer
	// must be dropped, not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.PublishSnapshot("s", mission.Snapshot{Step: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a saturated hub")
	}
	if len(hub.broadcast) != cap(hub.broadcast) {
		t.Errorf("broadcast buffer = %d frames, want full %d", len(hub.broadcast), cap(hub.broadcast))
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ws-test"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	hub.PublishResult("ws-test", &mission.Result{
		Success:       true,
		Reason:        mission.ReasonGoalReached,
		FinalPosition: world.Position{X: 9, Y: 9},
	})

	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if message.Event != "mission_finished" {
		t.Errorf("Expected event 'mission_finished', got %s", message.Event)
	}
	if message.Result == nil || !message.Result.Success || message.Result.Reason != mission.ReasonGoalReached {
		t.Errorf("Result not correctly received: %+v", message.Result)
	}
}
