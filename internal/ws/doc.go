// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

// Package ws implements the realtime connection registry.
//
// The Hub owns all connection and room-membership state. Each upgraded
// WebSocket connection becomes a Client with a generated connection id;
// clients join and leave rooms over the wire ("join"/"leave" messages
// carrying one room name or a list), and backend code routes events into
// rooms with Hub.Deliver.
//
// Guarantees:
//   - Join and Leave are idempotent and serialized per hub; operations
//     naming an unknown connection id are silent no-ops, since the
//     connection may have disconnected in a race with the caller.
//   - Deliver sees a consistent snapshot of a room's membership: a
//     connection mid-unregister receives nothing, a connection whose join
//     completed before the delivery began always receives the event.
//   - There is no queuing or replay. Connections not joined at delivery
//     time miss the event permanently.
//
// The hub holds no session continuity across a disconnect: a
// reconnecting client must re-resolve its room set through the bootstrap
// endpoint and re-issue joins.
package ws
