// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package notify

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mangapulse/mangapulse/internal/logging"
	"github.com/mangapulse/mangapulse/internal/metrics"
	"github.com/mangapulse/mangapulse/internal/models"
)

// Notifier exposes the typed notification operations business logic
// calls after catalogue mutations.
//
// Publishing never blocks or fails the calling operation: errors are
// logged and returned for tests to observe, but callers are expected to
// discard them. A Notifier with a nil publisher swallows all events;
// this is the configured state before the transport comes up.
type Notifier struct {
	publisher message.Publisher
}

// NewNotifier creates a notifier over the given publisher. A nil
// publisher is valid and turns every notify call into a logged no-op.
func NewNotifier(publisher message.Publisher) *Notifier {
	return &Notifier{publisher: publisher}
}

// NotifyNewChapter publishes a chapter:new event to the manga's room.
func (n *Notifier) NotifyNewChapter(ctx context.Context, mangaID string, chapter *models.Chapter) error {
	return n.publish(ctx, NewEvent(KindChapterNew, mangaID, map[string]interface{}{
		"mangaId": mangaID,
		"chapter": chapter,
	}))
}

// NotifyChapterUpdated publishes a chapter:updated event to the manga's room.
func (n *Notifier) NotifyChapterUpdated(ctx context.Context, mangaID string, chapter *models.Chapter) error {
	return n.publish(ctx, NewEvent(KindChapterUpdated, mangaID, map[string]interface{}{
		"mangaId": mangaID,
		"chapter": chapter,
	}))
}

// NotifyMangaStatus publishes a manga:status event carrying the given
// status fields merged with the manga id.
func (n *Notifier) NotifyMangaStatus(ctx context.Context, mangaID string, statusFields map[string]interface{}) error {
	payload := map[string]interface{}{"mangaId": mangaID}
	for k, v := range statusFields {
		if k == "mangaId" {
			continue
		}
		payload[k] = v
	}
	return n.publish(ctx, NewEvent(KindMangaStatus, mangaID, payload))
}

func (n *Notifier) publish(ctx context.Context, event Event) error {
	if n == nil || n.publisher == nil {
		logging.Ctx(ctx).Debug().
			Str("kind", event.Kind).
			Str("room", event.Room).
			Msg("notification transport not initialized, dropping event")
		return nil
	}

	msg, err := event.ToMessage()
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("kind", event.Kind).Msg("failed to encode notification")
		return err
	}

	if err := n.publisher.Publish(Topic, msg); err != nil {
		metrics.RecordEventPublishError(event.Kind)
		logging.Ctx(ctx).Warn().Err(err).
			Str("kind", event.Kind).
			Str("room", event.Room).
			Msg("failed to publish notification")
		return fmt.Errorf("failed to publish %s: %w", event.Kind, err)
	}

	metrics.RecordEventPublished(event.Kind)
	logging.Ctx(ctx).Debug().
		Str("kind", event.Kind).
		Str("room", event.Room).
		Str("event_id", event.ID).
		Msg("notification published")
	return nil
}
