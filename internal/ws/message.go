// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package ws

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Message types for WebSocket communication. The event names are the wire
// contract shared with browser clients; changing them breaks deployed
// readers.
const (
	MessageTypeJoin  = "join"
	MessageTypeLeave = "leave"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"

	MessageTypeChapterNew     = "chapter:new"
	MessageTypeChapterUpdated = "chapter:updated"
	MessageTypeMangaStatus    = "manga:status"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// decodeRoomList accepts the join/leave payload, which may be a single
// room name or a list of room names.
func decodeRoomList(data interface{}) ([]string, error) {
	switch v := data.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("empty room name")
		}
		return []string{v}, nil
	case []interface{}:
		names := make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok || name == "" {
				return nil, fmt.Errorf("room list must contain non-empty strings")
			}
			names = append(names, name)
		}
		return names, nil
	case []string:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported room payload type %T", data)
	}
}
