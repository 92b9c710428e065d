// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

package notify

import (
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewGoChannelBus creates the in-process event bus used when the NATS
// transport is not compiled in or not enabled. The returned pub/sub pair
// is the same object; Close tears down both sides.
func NewGoChannelBus() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		// Matches the hub's delivery queue depth; events beyond it block
		// the publisher goroutine briefly rather than being dropped here.
		OutputChannelBuffer: 256,
	}, NewWatermillLogger())
}
