// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package services

import (
	"context"
	"errors"
	"testing"
)

type fakeRunner struct {
	err error
	ran bool
}

func (f *fakeRunner) RunWithContext(_ context.Context) error {
	f.ran = true
	return f.err
}

func (f *fakeRunner) Serve(_ context.Context) error {
	f.ran = true
	return f.err
}

func TestHubServiceDelegates(t *testing.T) {
	runner := &fakeRunner{err: errors.New("hub stopped")}
	svc := NewHubService(runner)

	if err := svc.Serve(context.Background()); !errors.Is(err, runner.err) {
		t.Fatalf("Serve returned %v, want delegate error", err)
	}
	if !runner.ran {
		t.Fatal("expected RunWithContext to be called")
	}
	if svc.String() != "websocket-hub" {
		t.Fatalf("String() = %q", svc.String())
	}
}

func TestBridgeServiceDelegates(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewBridgeService(runner)

	if err := svc.Serve(context.Background()); err != nil {
		t.Fatalf("Serve returned %v", err)
	}
	if !runner.ran {
		t.Fatal("expected Serve to be called")
	}
	if svc.String() != "event-bridge" {
		t.Fatalf("String() = %q", svc.String())
	}
}
