// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package ws

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mangapulse/mangapulse/internal/logging"
	"github.com/mangapulse/mangapulse/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Options tunes hub and client behavior. Zero values fall back to the
// defaults below.
type Options struct {
	WriteWait            time.Duration
	PongWait             time.Duration
	MaxMessageSize       int64
	SendBuffer           int
	MembershipRatePerSec float64
	MembershipBurst      int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		WriteWait:            10 * time.Second,
		PongWait:             60 * time.Second,
		MaxMessageSize:       4096,
		SendBuffer:           64,
		MembershipRatePerSec: 5,
		MembershipBurst:      10,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.WriteWait <= 0 {
		o.WriteWait = def.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = def.PongWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = def.MaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = def.SendBuffer
	}
	return o
}

// pingPeriod must be shorter than PongWait so pings go out before the
// peer's read deadline expires.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

type delivery struct {
	room string
	msg  Message
}

// Hub tracks active connections and their room memberships and routes
// room-targeted events to member connections.
//
// Membership is held in a dual index: rooms maps a room name to its
// member clients, memberships maps a client back to its rooms. Both are
// guarded by mu and always mutated together.
type Hub struct {
	opts Options

	clients     map[*Client]bool
	byID        map[string]*Client
	rooms       map[string]map[*Client]struct{}
	memberships map[*Client]map[string]struct{}

	deliver    chan delivery
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub(opts Options) *Hub {
	return &Hub{
		opts:        opts.withDefaults(),
		clients:     make(map[*Client]bool),
		byID:        make(map[string]*Client),
		rooms:       make(map[string]map[*Client]struct{}),
		memberships: make(map[*Client]map[string]struct{}),
		deliver:     make(chan delivery, 256),
		Unregister:  make(chan *Client),
	}
}

// RunWithContext starts the hub with context support for graceful
// shutdown. Designed for use with suture supervision: when the context is
// canceled all connected clients are closed and ctx.Err() is returned.
//
// Uses priority-based selection so behavior stays predictable when
// multiple channels are ready:
//   - Priority 1: context cancellation (shutdown)
//   - Priority 2: client disconnects (Unregister)
//   - Priority 3: event delivery
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client disconnects (non-blocking check)
		select {
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		default:
		}

		// Priority 3: Handle deliveries or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case d := <-h.deliver:
			h.deliverToRoom(d.room, d.msg)
		}
	}
}

// Attach registers the connection synchronously. It must complete before
// the client's pumps start so the first inbound join frame always finds
// the connection in the index.
func (h *Hub) Attach(client *Client) {
	h.registerClient(client)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.byID[client.id] = client
	h.memberships[client] = make(map[string]struct{})
	total := len(h.clients)
	h.mu.Unlock()
	metrics.TrackWebSocketConnection(true)
	logging.Info().Str("conn_id", client.id).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if _, ok := h.clients[client]; ok {
		h.removeClientLocked(client)
		client.close()
		removed = true
	}
	total := len(h.clients)
	roomTotal := len(h.rooms)
	h.mu.Unlock()
	if removed {
		metrics.TrackWebSocketConnection(false)
		metrics.SetRoomCount(roomTotal)
	}
	logging.Info().Str("conn_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
}

// removeClientLocked strips the client from every index. Caller holds mu.
func (h *Hub) removeClientLocked(client *Client) {
	for room := range h.memberships[client] {
		delete(h.rooms[room], client)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.memberships, client)
	delete(h.byID, client.id)
	delete(h.clients, client)
}

// Join idempotently adds the connection to each named room. Unknown
// connection ids are a no-op; the connection may have disconnected in a
// race with the caller.
func (h *Hub) Join(connID string, roomNames ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.byID[connID]
	if !ok {
		return
	}
	for _, room := range roomNames {
		if room == "" {
			continue
		}
		if _, ok := h.rooms[room]; !ok {
			h.rooms[room] = make(map[*Client]struct{})
		}
		h.rooms[room][client] = struct{}{}
		h.memberships[client][room] = struct{}{}
	}
	metrics.SetRoomCount(len(h.rooms))
}

// Leave idempotently removes the connection from each named room.
// Unknown connection ids and non-member rooms are no-ops.
func (h *Hub) Leave(connID string, roomNames ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.byID[connID]
	if !ok {
		return
	}
	for _, room := range roomNames {
		delete(h.memberships[client], room)
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	metrics.SetRoomCount(len(h.rooms))
}

// Rooms returns the connection's current membership, sorted. Unknown
// connection ids yield an empty slice.
func (h *Hub) Rooms(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.byID[connID]
	if !ok {
		return []string{}
	}
	names := make([]string, 0, len(h.memberships[client]))
	for room := range h.memberships[client] {
		names = append(names, room)
	}
	sort.Strings(names)
	return names
}

// Deliver queues an event for every current member of the room. Delivery
// is fire-and-forget: when the hub's queue is full the event is dropped
// and logged, never blocking the caller.
func (h *Hub) Deliver(room string, msg Message) {
	select {
	case h.deliver <- delivery{room: room, msg: msg}:
	default:
		logging.Warn().Str("room", room).Str("message_type", msg.Type).
			Msg("delivery channel full, dropping event")
	}
}

// deliverToRoom sends the message to a consistent snapshot of the room's
// membership. Clients whose send buffer is full are torn down, the same
// policy the write pump applies to slow readers.
func (h *Hub) deliverToRoom(room string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok || len(members) == 0 {
		return
	}

	// Sort by connection id so delivery order is reproducible in tests.
	clients := make([]*Client, 0, len(members))
	for client := range members {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		h.removeClientLocked(client)
		client.close()
		logging.Warn().Str("conn_id", client.id).Str("room", room).
			Msg("dropped slow websocket client")
	}
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is not logged as an error; cancellation is the
// expected shutdown path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients closes every connected client in id order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		h.removeClientLocked(client)
		client.close()
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of rooms with at least one member.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
