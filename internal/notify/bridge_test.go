// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mangapulse/mangapulse/internal/models"
	"github.com/mangapulse/mangapulse/internal/ws"
)

// startBridge runs a hub and a bridge over the in-process bus and
// returns the notifier feeding them.
func startBridge(t *testing.T) (*ws.Hub, *Notifier) {
	t.Helper()

	bus := NewGoChannelBus()
	t.Cleanup(func() { _ = bus.Close() })

	hub := ws.NewHub(ws.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = hub.RunWithContext(ctx) }()

	bridge := NewBridge(bus, hub)
	go func() { _ = bridge.Serve(ctx) }()

	// Give the subscription a moment to establish before publishing.
	time.Sleep(20 * time.Millisecond)

	return hub, NewNotifier(bus)
}

func registerClient(t *testing.T, hub *ws.Hub) *ws.Client {
	t.Helper()
	client := ws.NewClient(hub, nil, "u1")
	hub.Attach(client)
	return client
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}

func TestBridgeDeliversToJoinedConnection(t *testing.T) {
	hub, notifier := startBridge(t)
	client := registerClient(t, hub)

	hub.Join(client.ID(), "manga:m1")

	chapter := &models.Chapter{ID: "c1", MangaID: "m1", Number: 1}
	if err := notifier.NotifyNewChapter(context.Background(), "m1", chapter); err != nil {
		t.Fatalf("NotifyNewChapter() error = %v", err)
	}

	select {
	case msg := <-client.Send():
		if msg.Type != ws.MessageTypeChapterNew {
			t.Errorf("message type = %q, want chapter:new", msg.Type)
		}
		payload, ok := msg.Data.(map[string]interface{})
		if !ok {
			t.Fatalf("payload type = %T, want map", msg.Data)
		}
		if payload["mangaId"] != "m1" {
			t.Errorf("payload mangaId = %v, want m1", payload["mangaId"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("joined connection did not receive the event")
	}
}

func TestBridgeSkipsNonMembers(t *testing.T) {
	hub, notifier := startBridge(t)
	member := registerClient(t, hub)
	outsider := registerClient(t, hub)

	hub.Join(member.ID(), "manga:m1")
	hub.Join(outsider.ID(), "manga:other")

	if err := notifier.NotifyMangaStatus(context.Background(), "m1", map[string]interface{}{"status": "hiatus"}); err != nil {
		t.Fatalf("NotifyMangaStatus() error = %v", err)
	}

	select {
	case <-member.Send():
	case <-time.After(2 * time.Second):
		t.Fatal("member did not receive the event")
	}

	select {
	case msg := <-outsider.Send():
		t.Errorf("non-member received %v, want nothing", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBridgeAfterDisconnectDeliversNothing(t *testing.T) {
	hub, notifier := startBridge(t)
	client := registerClient(t, hub)

	hub.Join(client.ID(), "manga:m3")
	hub.Unregister <- client
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })

	// No members left: the publish must not error or crash.
	if err := notifier.NotifyNewChapter(context.Background(), "m3", &models.Chapter{ID: "c9"}); err != nil {
		t.Fatalf("NotifyNewChapter() after disconnect error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if hub.RoomCount() != 0 {
		t.Errorf("RoomCount() = %d, want 0", hub.RoomCount())
	}
}

func TestBridgeDropsUndecodableMessages(t *testing.T) {
	bus := NewGoChannelBus()
	t.Cleanup(func() { _ = bus.Close() })

	hub := ws.NewHub(ws.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	bridge := NewBridge(bus, hub)
	go func() { _ = bridge.Serve(ctx) }()
	time.Sleep(20 * time.Millisecond)

	if err := bus.Publish(Topic, message.NewMessage("bad", []byte("not json"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	// The bridge must keep serving after a decode failure.
	notifier := NewNotifier(bus)
	client := ws.NewClient(hub, nil, "u1")
	hub.Attach(client)
	hub.Join(client.ID(), "manga:m1")

	if err := notifier.NotifyNewChapter(context.Background(), "m1", &models.Chapter{ID: "c1"}); err != nil {
		t.Fatalf("NotifyNewChapter() error = %v", err)
	}
	select {
	case msg := <-client.Send():
		if msg.Type != ws.MessageTypeChapterNew {
			t.Errorf("message type = %q, want chapter:new", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bridge stopped forwarding after undecodable message")
	}
}
