// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mangapulse/mangapulse/internal/models"
	"github.com/mangapulse/mangapulse/internal/rooms"
	"github.com/mangapulse/mangapulse/internal/ws"
)

// dialWS opens an authenticated WebSocket connection against the test
// server. The token rides in the query string the way a browser client
// would send it.
func dialWS(t *testing.T, ts *testServer, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/api/v1/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// joinRooms sends a join frame and waits for a ping/pong round trip.
// Frames on one connection are processed in order, so the pong proves
// the join has been applied.
func joinRooms(t *testing.T, conn *websocket.Conn, roomNames []string) {
	t.Helper()
	if err := conn.WriteJSON(ws.Message{Type: ws.MessageTypeJoin, Data: roomNames}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	if err := conn.WriteJSON(ws.Message{Type: ws.MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	var msg ws.Message
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if msg.Type != ws.MessageTypePong {
		t.Fatalf("type = %q, want %q", msg.Type, ws.MessageTypePong)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	var msg ws.Message
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return msg
}

func TestRealtimeChapterNotification(t *testing.T) {
	ts := newTestServer(t)
	reader, readerToken := ts.createUser(t, "reader", "Reader One", "hunter2secret", models.RoleUser)
	_, authorToken := ts.createUser(t, "oda", "Eiichiro Oda", "hunter2secret", models.RoleMangaAdmin)

	manga, err := ts.db.CreateManga(context.Background(), &models.Manga{
		Title: "One Piece", Author: "Eiichiro Oda", Source: models.SourceLocal,
	})
	if err != nil {
		t.Fatalf("CreateManga: %v", err)
	}
	if err := ts.db.AddFavorite(context.Background(), reader.ID, manga.ID, models.SourceLocal); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}

	// Bootstrap the room list the way a real client does.
	data := decodeData(t, ts.request(t, http.MethodGet, "/api/v1/rooms", readerToken, nil))
	raw := data["rooms"].([]interface{})
	roomNames := make([]string, 0, len(raw))
	for _, r := range raw {
		roomNames = append(roomNames, r.(string))
	}
	if len(roomNames) != 1 {
		t.Fatalf("rooms = %v, want one room", roomNames)
	}

	conn := dialWS(t, ts, readerToken)
	joinRooms(t, conn, roomNames)

	resp := ts.request(t, http.MethodPost, "/api/v1/mangas/"+manga.ID+"/chapters", authorToken,
		CreateChapterRequest{Number: 1, Title: "Romance Dawn"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create chapter status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	msg := readEvent(t, conn)
	if msg.Type != ws.MessageTypeChapterNew {
		t.Fatalf("type = %q, want %q", msg.Type, ws.MessageTypeChapterNew)
	}
	payload, ok := msg.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data is %T, want object", msg.Data)
	}
	if payload["mangaId"] != manga.ID {
		t.Fatalf("mangaId = %v, want %s", payload["mangaId"], manga.ID)
	}
}

func TestRealtimeStatusNotification(t *testing.T) {
	ts := newTestServer(t)
	reader, readerToken := ts.createUser(t, "reader", "Reader One", "hunter2secret", models.RoleUser)
	_, adminToken := ts.createUser(t, "root", "Site Admin", "hunter2secret", models.RoleAdmin)

	manga, err := ts.db.CreateManga(context.Background(), &models.Manga{
		Title: "One Piece", Author: "Eiichiro Oda", Source: models.SourceLocal,
	})
	if err != nil {
		t.Fatalf("CreateManga: %v", err)
	}
	if err := ts.db.AddFavorite(context.Background(), reader.ID, manga.ID, models.SourceLocal); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}

	conn := dialWS(t, ts, readerToken)
	joinRooms(t, conn, []string{rooms.ForManga(manga.ID)})

	resp := ts.request(t, http.MethodPatch, "/api/v1/mangas/"+manga.ID+"/status", adminToken,
		UpdateMangaStatusRequest{Status: models.StatusCompleted})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	msg := readEvent(t, conn)
	if msg.Type != ws.MessageTypeMangaStatus {
		t.Fatalf("type = %q, want %q", msg.Type, ws.MessageTypeMangaStatus)
	}
	payload := msg.Data.(map[string]interface{})
	if payload["status"] != models.StatusCompleted {
		t.Fatalf("status = %v, want %s", payload["status"], models.StatusCompleted)
	}
}

func TestNonMemberReceivesNothing(t *testing.T) {
	ts := newTestServer(t)
	_, readerToken := ts.createUser(t, "reader", "Reader One", "hunter2secret", models.RoleUser)
	_, authorToken := ts.createUser(t, "oda", "Eiichiro Oda", "hunter2secret", models.RoleMangaAdmin)

	manga, err := ts.db.CreateManga(context.Background(), &models.Manga{
		Title: "One Piece", Author: "Eiichiro Oda",
	})
	if err != nil {
		t.Fatalf("CreateManga: %v", err)
	}

	// Connected but never joined the manga's room.
	conn := dialWS(t, ts, readerToken)
	joinRooms(t, conn, nil)

	resp := ts.request(t, http.MethodPost, "/api/v1/mangas/"+manga.ID+"/chapters", authorToken,
		CreateChapterRequest{Number: 1, Title: "Romance Dawn"})
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var msg ws.Message
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("unexpected message for non-member: %+v", msg)
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	ts := newTestServer(t)
	reader, readerToken := ts.createUser(t, "reader", "Reader One", "hunter2secret", models.RoleUser)
	_, authorToken := ts.createUser(t, "oda", "Eiichiro Oda", "hunter2secret", models.RoleMangaAdmin)

	manga, err := ts.db.CreateManga(context.Background(), &models.Manga{
		Title: "One Piece", Author: "Eiichiro Oda", Source: models.SourceLocal,
	})
	if err != nil {
		t.Fatalf("CreateManga: %v", err)
	}
	if err := ts.db.AddFavorite(context.Background(), reader.ID, manga.ID, models.SourceLocal); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}

	room := rooms.ForManga(manga.ID)
	conn := dialWS(t, ts, readerToken)
	joinRooms(t, conn, []string{room})

	// Leave again, single string payload form.
	if err := conn.WriteJSON(ws.Message{Type: ws.MessageTypeLeave, Data: room}); err != nil {
		t.Fatalf("write leave: %v", err)
	}
	if err := conn.WriteJSON(ws.Message{Type: ws.MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	msg := readEvent(t, conn)
	if msg.Type != ws.MessageTypePong {
		t.Fatalf("type = %q, want pong", msg.Type)
	}

	resp := ts.request(t, http.MethodPost, "/api/v1/mangas/"+manga.ID+"/chapters", authorToken,
		CreateChapterRequest{Number: 1, Title: "Romance Dawn"})
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var late ws.Message
	if err := conn.ReadJSON(&late); err == nil {
		t.Fatalf("unexpected message after leave: %+v", late)
	}
}

func TestDisconnectedClientIsForgotten(t *testing.T) {
	ts := newTestServer(t)
	reader, readerToken := ts.createUser(t, "reader", "Reader One", "hunter2secret", models.RoleUser)
	_, authorToken := ts.createUser(t, "oda", "Eiichiro Oda", "hunter2secret", models.RoleMangaAdmin)

	manga, err := ts.db.CreateManga(context.Background(), &models.Manga{
		Title: "One Piece", Author: "Eiichiro Oda", Source: models.SourceLocal,
	})
	if err != nil {
		t.Fatalf("CreateManga: %v", err)
	}
	if err := ts.db.AddFavorite(context.Background(), reader.ID, manga.ID, models.SourceLocal); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}

	conn := dialWS(t, ts, readerToken)
	joinRooms(t, conn, []string{rooms.ForManga(manga.ID)})
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for ts.hub.GetClientCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("hub did not forget the disconnected client")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if ts.hub.RoomCount() != 0 {
		t.Fatalf("room count = %d, want 0", ts.hub.RoomCount())
	}

	// Publishing afterwards must not fail.
	resp := ts.request(t, http.MethodPost, "/api/v1/mangas/"+manga.ID+"/chapters", authorToken,
		CreateChapterRequest{Number: 1, Title: "Romance Dawn"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create chapter status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestWebSocketRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatal("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
}
