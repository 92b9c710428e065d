// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

// Package notify publishes catalogue lifecycle events and bridges them
// into the realtime hub.
//
// Business code calls the Notifier's typed operations; each maps to
// exactly one room and one event kind. Events travel over a watermill
// publisher (the in-process Go channel bus by default, NATS JetStream
// when built with -tags=nats) and the Bridge subscriber feeds them to
// the hub. Publishing is fire-and-forget with no replay: connections not
// joined at delivery time miss the event permanently.
package notify

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mangapulse/mangapulse/internal/rooms"
	"github.com/mangapulse/mangapulse/internal/ws"
)

// Topic is the single bus topic all lifecycle events flow through.
// Routing to rooms happens at the bridge, not in topic structure.
const Topic = "manga.events"

// Event kinds reuse the wire message types so the bridge forwards them
// unchanged.
const (
	KindChapterNew     = ws.MessageTypeChapterNew
	KindChapterUpdated = ws.MessageTypeChapterUpdated
	KindMangaStatus    = ws.MessageTypeMangaStatus
)

// Event is an immutable lifecycle notification bound for one room.
type Event struct {
	ID         string                 `json:"id"`
	Kind       string                 `json:"kind"`
	Room       string                 `json:"room"`
	MangaID    string                 `json:"mangaId"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// NewEvent builds an event targeting the manga's room.
func NewEvent(kind, mangaID string, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Room:       rooms.ForManga(mangaID),
		MangaID:    mangaID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// ToMessage encodes the event as a watermill message. The event ID
// doubles as the message UUID for transport-level deduplication.
func (e Event) ToMessage() (*message.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	msg := message.NewMessage(e.ID, body)
	msg.Metadata.Set("kind", e.Kind)
	msg.Metadata.Set("room", e.Room)
	return msg, nil
}

// EventFromMessage decodes a watermill message back into an event.
func EventFromMessage(msg *message.Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if e.Kind == "" || e.Room == "" {
		return Event{}, fmt.Errorf("event missing kind or room")
	}
	return e, nil
}
