// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mangapulse/mangapulse/internal/logging"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id      string
	userID  string
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
}

// NewClient creates a client for an upgraded connection. The userID ties
// log lines back to the authenticated identity; membership itself is
// keyed by the generated connection id.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	var limiter *rate.Limiter
	if hub.opts.MembershipRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(hub.opts.MembershipRatePerSec), hub.opts.MembershipBurst)
	}
	return &Client{
		id:      uuid.NewString(),
		userID:  userID,
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, hub.opts.SendBuffer),
		done:    make(chan struct{}),
		limiter: limiter,
	}
}

// close signals the write pump to send a close frame and exit. The send
// channel itself is never closed: the read pump keeps running until the
// peer notices the close frame and may still queue pong replies, and a
// send on a closed channel would panic. Safe to call more than once.
func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// ID returns the connection id used for membership operations.
func (c *Client) ID() string {
	return c.id
}

// Send exposes the outbound queue for readers outside the write pump,
// primarily delivery assertions in tests.
func (c *Client) Send() <-chan Message {
	return c.send
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("conn_id", c.id).Msg("unexpected websocket close error")
			}
			break
		}
		c.handleMessage(msg)
	}
}

// handleMessage dispatches a single client message. Malformed payloads
// are logged and dropped; only transport errors tear down the connection.
func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case MessageTypeJoin, MessageTypeLeave:
		if c.limiter != nil && !c.limiter.Allow() {
			logging.Warn().Str("conn_id", c.id).Str("user_id", c.userID).
				Msg("membership request rate limit exceeded, dropping")
			return
		}
		roomNames, err := decodeRoomList(msg.Data)
		if err != nil {
			logging.Warn().Err(err).Str("conn_id", c.id).Str("type", msg.Type).
				Msg("malformed membership payload, dropping")
			return
		}
		if msg.Type == MessageTypeJoin {
			c.hub.Join(c.id, roomNames...)
		} else {
			c.hub.Leave(c.id, roomNames...)
		}

	case MessageTypePing:
		select {
		case c.send <- Message{Type: MessageTypePong}:
		default:
		}

	default:
		logging.Debug().Str("conn_id", c.id).Str("type", msg.Type).
			Msg("ignoring unknown message type")
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// The hub detached this client.
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				logging.Error().Err(err).Msg("failed to write close message")
			}
			return

		case message := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
