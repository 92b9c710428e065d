// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package services

import (
	"context"
)

// EventBridge matches the notify bridge's Serve method.
type EventBridge interface {
	Serve(ctx context.Context) error
}

// BridgeService wraps the event bridge as a supervised service. The
// bridge re-establishes its subscription on every Serve call, which makes
// supervised restarts safe.
type BridgeService struct {
	bridge EventBridge
	name   string
}

// NewBridgeService creates a new bridge service wrapper.
func NewBridgeService(bridge EventBridge) *BridgeService {
	return &BridgeService{
		bridge: bridge,
		name:   "event-bridge",
	}
}

// Serve implements suture.Service.
func (s *BridgeService) Serve(ctx context.Context) error {
	return s.bridge.Serve(ctx)
}

// String implements fmt.Stringer for logging.
func (s *BridgeService) String() string {
	return s.name
}
