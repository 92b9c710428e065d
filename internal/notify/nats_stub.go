// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

//go:build !nats

package notify

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mangapulse/mangapulse/internal/config"
)

// NATSTransport is a stub when NATS dependencies are not compiled in.
// Build with -tags=nats to enable the JetStream transport.
type NATSTransport struct{}

// NewNATSTransport returns an error when NATS support is not compiled in.
func NewNATSTransport(cfg *config.NATSConfig) (*NATSTransport, error) {
	return nil, fmt.Errorf("NATS transport not available: build with -tags=nats")
}

// Publisher returns nil for the stub implementation.
func (t *NATSTransport) Publisher() message.Publisher {
	return nil
}

// Subscriber returns nil for the stub implementation.
func (t *NATSTransport) Subscriber() message.Subscriber {
	return nil
}

// Close is a no-op stub.
func (t *NATSTransport) Close() error {
	return nil
}
