// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package services

import (
	"context"
)

// ContextRunner matches the hub's RunWithContext method without
// importing the ws package.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the WebSocket hub as a supervised service. The hub's
// RunWithContext already implements the suture.Service pattern, so this
// wrapper delegates to it and provides a name for logging.
type HubService struct {
	hub  ContextRunner
	name string
}

// NewHubService creates a new hub service wrapper.
func NewHubService(hub ContextRunner) *HubService {
	return &HubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
func (s *HubService) String() string {
	return s.name
}
