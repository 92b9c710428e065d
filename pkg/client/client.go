// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

// Package client implements a reconnecting MangaPulse realtime client.
//
// The connection lifecycle is an explicit state machine:
//
//	Idle -> Connecting -> Connected -> Reconnecting(attempt) -> ... -> Failed
//
// On every successful connect the client re-resolves its room set and
// re-joins; the server keeps no membership across reconnects. Reconnect
// attempts are bounded: after the attempt budget is exhausted the client
// enters the terminal Failed state and Run returns ErrRetriesExhausted.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is a phase of the connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Wire message types understood by the server.
const (
	TypeJoin           = "join"
	TypeLeave          = "leave"
	TypePing           = "ping"
	TypePong           = "pong"
	TypeChapterNew     = "chapter:new"
	TypeChapterUpdated = "chapter:updated"
	TypeMangaStatus    = "manga:status"
)

// Message is one frame on the realtime connection.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ErrRetriesExhausted is returned by Run once the reconnect attempt
// budget is spent. The client makes no further attempts.
var ErrRetriesExhausted = errors.New("client: reconnect attempts exhausted")

// Config tunes the client. URL and ResolveRooms are required.
type Config struct {
	// URL is the WebSocket endpoint, e.g. wss://host/api/v1/ws.
	URL string

	// Token is the bearer token, sent as a query parameter on the
	// handshake because browsers cannot set headers there.
	Token string

	// ResolveRooms returns the rooms to join after each (re)connect,
	// typically by calling GET /api/v1/rooms. Called on every successful
	// connection so membership tracks the account's current state.
	ResolveRooms func(ctx context.Context) ([]string, error)

	// MaxAttempts bounds consecutive failed connection attempts before
	// the client gives up. Default 5.
	MaxAttempts int

	// RetryDelay is the base reconnect delay; attempt n waits n times
	// this long. Default 1s.
	RetryDelay time.Duration

	// HandshakeTimeout bounds connection establishment. Default 10s.
	HandshakeTimeout time.Duration

	// OnEvent is invoked for every server-pushed event frame.
	OnEvent func(msg Message)

	// OnStateChange observes lifecycle transitions. attempt is non-zero
	// only for StateReconnecting.
	OnStateChange func(state State, attempt int)
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}

// Client is a reconnecting realtime connection. Not safe for concurrent
// Run calls; Join, Leave and State may be called from any goroutine.
type Client struct {
	cfg Config

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	attempt int
}

// New creates a client. Run must be called to connect.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("client: URL is required")
	}
	if cfg.ResolveRooms == nil {
		return nil, errors.New("client: ResolveRooms is required")
	}
	return &Client{cfg: cfg.withDefaults(), state: StateIdle}, nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(state State, attempt int) {
	c.mu.Lock()
	c.state = state
	c.attempt = attempt
	c.mu.Unlock()
	if c.cfg.OnStateChange != nil {
		c.cfg.OnStateChange(state, attempt)
	}
}

// Join asks the server to add this connection to the given rooms.
func (c *Client) Join(roomNames ...string) error {
	return c.write(Message{Type: TypeJoin, Data: roomNames})
}

// Leave asks the server to drop this connection from the given rooms.
func (c *Client) Leave(roomNames ...string) error {
	return c.write(Message{Type: TypeLeave, Data: roomNames})
}

func (c *Client) write(msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("client: not connected")
	}
	return conn.WriteJSON(msg)
}

// Run connects and serves events until the context is canceled or the
// reconnect budget is exhausted. It returns ctx.Err() on cancellation
// and ErrRetriesExhausted on permanent failure.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if attempt == 0 {
			c.setState(StateConnecting, 0)
		} else {
			c.setState(StateReconnecting, attempt)
			// Linear backoff: attempt n waits n * RetryDelay.
			select {
			case <-time.After(time.Duration(attempt) * c.cfg.RetryDelay):
			case <-ctx.Done():
				c.setState(StateIdle, 0)
				return ctx.Err()
			}
		}

		connected, err := c.connectAndServe(ctx)
		if ctx.Err() != nil {
			c.setState(StateIdle, 0)
			return ctx.Err()
		}

		// A session that reached Connected resets the budget; only
		// consecutive failures count toward it.
		if connected {
			attempt = 1
			continue
		}

		attempt++
		if attempt >= c.cfg.MaxAttempts {
			c.setState(StateFailed, attempt)
			return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt, err)
		}
	}
}

// connectAndServe performs one connection cycle: dial, resolve and join
// rooms, then read events until the connection drops. The bool reports
// whether the cycle reached the Connected state.
func (c *Client) connectAndServe(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	url := c.cfg.URL
	if c.cfg.Token != "" {
		sep := "?"
		for _, ch := range url {
			if ch == '?' {
				sep = "&"
				break
			}
		}
		url += sep + "token=" + c.cfg.Token
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return false, fmt.Errorf("dial: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	rooms, err := c.cfg.ResolveRooms(ctx)
	if err != nil {
		return false, fmt.Errorf("resolve rooms: %w", err)
	}
	if len(rooms) > 0 {
		if err := conn.WriteJSON(Message{Type: TypeJoin, Data: rooms}); err != nil {
			return false, fmt.Errorf("join: %w", err)
		}
	}

	c.setState(StateConnected, 0)

	// Close the socket when the context ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		switch msg.Type {
		case TypePong:
			// Keepalive reply, nothing to surface.
		default:
			if c.cfg.OnEvent != nil {
				c.cfg.OnEvent(msg)
			}
		}
	}
}
