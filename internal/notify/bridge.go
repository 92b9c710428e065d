// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package notify

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mangapulse/mangapulse/internal/logging"
	"github.com/mangapulse/mangapulse/internal/ws"
)

// Bridge consumes lifecycle events from the bus and routes them into the
// hub's rooms. It is the only consumer of the event topic inside the
// server process.
type Bridge struct {
	subscriber message.Subscriber
	hub        *ws.Hub
}

// NewBridge creates a bridge from the given subscriber to the hub.
func NewBridge(subscriber message.Subscriber, hub *ws.Hub) *Bridge {
	return &Bridge{subscriber: subscriber, hub: hub}
}

// Serve subscribes to the event topic and forwards events until the
// context is canceled. It satisfies suture's Service interface and is
// safe to restart: the subscription is re-established on each call.
func (b *Bridge) Serve(ctx context.Context) error {
	messages, err := b.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	logging.Info().Str("component", "event-bridge").Str("topic", Topic).Msg("event bridge started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "event-bridge").Msg("event bridge stopped")
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				logging.Info().Str("component", "event-bridge").Msg("subscription closed")
				return ctx.Err()
			}
			b.forward(msg)
		}
	}
}

// forward routes one bus message into its room. Malformed messages are
// acked and dropped; redelivery cannot fix a decode failure.
func (b *Bridge) forward(msg *message.Message) {
	defer msg.Ack()

	event, err := EventFromMessage(msg)
	if err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping undecodable event")
		return
	}

	b.hub.Deliver(event.Room, ws.Message{
		Type: event.Kind,
		Data: event.Payload,
	})
}
