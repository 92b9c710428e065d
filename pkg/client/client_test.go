// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsTestServer is a minimal realtime endpoint: it records the first join
// frame and lets the test push events to the connected client.
type wsTestServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conn  *websocket.Conn
	joins chan []string
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()
	ts := &wsTestServer{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		joins:    make(chan []string, 4),
	}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := ts.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.conn = conn
		ts.mu.Unlock()
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == TypeJoin {
				raw, _ := msg.Data.([]interface{})
				rooms := make([]string, 0, len(raw))
				for _, r := range raw {
					if s, ok := r.(string); ok {
						rooms = append(rooms, s)
					}
				}
				ts.joins <- rooms
			}
		}
	}))
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *wsTestServer) url() string {
	return "ws" + strings.TrimPrefix(ts.server.URL, "http")
}

func (ts *wsTestServer) push(t *testing.T, msg Message) {
	t.Helper()
	ts.mu.Lock()
	conn := ts.conn
	ts.mu.Unlock()
	if conn == nil {
		t.Fatal("no client connected")
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without URL")
	}
	if _, err := New(Config{URL: "ws://example"}); err == nil {
		t.Fatal("expected error without ResolveRooms")
	}
	c, err := New(Config{
		URL:          "ws://example",
		ResolveRooms: func(context.Context) ([]string, error) { return nil, nil },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle", c.State())
	}
}

func TestRunConnectsJoinsAndDeliversEvents(t *testing.T) {
	ts := newWSTestServer(t)

	events := make(chan Message, 4)
	c, err := New(Config{
		URL:   ts.url(),
		Token: "test-token",
		ResolveRooms: func(context.Context) ([]string, error) {
			return []string{"manga:1", "manga:2"}, nil
		},
		OnEvent: func(msg Message) { events <- msg },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	select {
	case rooms := <-ts.joins:
		if len(rooms) != 2 || rooms[0] != "manga:1" || rooms[1] != "manga:2" {
			t.Fatalf("joined rooms = %v", rooms)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no join frame received")
	}

	stateDeadline := time.Now().Add(time.Second)
	for c.State() != StateConnected {
		if time.Now().After(stateDeadline) {
			t.Fatalf("state = %v, want connected", c.State())
		}
		time.Sleep(5 * time.Millisecond)
	}

	ts.push(t, Message{Type: TypeChapterNew, Data: map[string]interface{}{"mangaId": "1"}})
	select {
	case msg := <-events:
		if msg.Type != TypeChapterNew {
			t.Fatalf("event type = %q", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	// A server that is already closed guarantees dial failures.
	dead := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(dead.URL, "http")
	dead.Close()

	var states []State
	var attempts []int
	var mu sync.Mutex
	c, err := New(Config{
		URL:          url,
		ResolveRooms: func(context.Context) ([]string, error) { return nil, nil },
		MaxAttempts:  3,
		RetryDelay:   5 * time.Millisecond,
		OnStateChange: func(s State, attempt int) {
			mu.Lock()
			states = append(states, s)
			attempts = append(attempts, attempt)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	runErr := c.Run(context.Background())
	if !errors.Is(runErr, ErrRetriesExhausted) {
		t.Fatalf("Run returned %v, want ErrRetriesExhausted", runErr)
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %v, want failed", c.State())
	}

	mu.Lock()
	defer mu.Unlock()
	var sawReconnecting bool
	for i, s := range states {
		if s == StateReconnecting {
			sawReconnecting = true
			if attempts[i] == 0 {
				t.Error("reconnecting state without attempt number")
			}
		}
	}
	if !sawReconnecting {
		t.Fatalf("states = %v, expected a reconnecting transition", states)
	}
	if states[len(states)-1] != StateFailed {
		t.Fatalf("final state = %v, want failed", states[len(states)-1])
	}
}

func TestJoinLeaveRequireConnection(t *testing.T) {
	c, err := New(Config{
		URL:          "ws://example",
		ResolveRooms: func(context.Context) ([]string, error) { return nil, nil },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Join("manga:1"); err == nil {
		t.Fatal("expected join to fail while disconnected")
	}
	if err := c.Leave("manga:1"); err == nil {
		t.Fatal("expected leave to fail while disconnected")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateReconnecting, "reconnecting"},
		{StateFailed, "failed"},
		{State(42), "state(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
