// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

//go:build nats

package notify

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mangapulse/mangapulse/internal/config"
	"github.com/mangapulse/mangapulse/internal/logging"
)

// NATSTransport runs the JetStream event transport: an optional embedded
// NATS server plus watermill publisher and subscriber over it. The
// publisher is wrapped in a circuit breaker so a broker outage degrades
// notifications to logged drops instead of stalling catalogue writes.
type NATSTransport struct {
	embedded   *server.Server
	publisher  message.Publisher
	subscriber message.Subscriber
	clientURL  string
}

// NewNATSTransport starts the transport described by cfg.
func NewNATSTransport(cfg *config.NATSConfig) (*NATSTransport, error) {
	t := &NATSTransport{clientURL: cfg.URL}

	if cfg.EmbeddedServer {
		ns, err := startEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		t.embedded = ns
		t.clientURL = ns.ClientURL()
	}

	logger := NewWatermillLogger()
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.Timeout(cfg.ConnectTimeout),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         t.clientURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		t.shutdownEmbedded()
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	t.publisher = newBreakerPublisher(pub)

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:         t.clientURL,
		NatsOptions: natsOpts,
		Unmarshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverNew(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		t.shutdownEmbedded()
		return nil, fmt.Errorf("failed to create NATS subscriber: %w", err)
	}
	t.subscriber = sub

	logging.Info().Str("url", t.clientURL).Bool("embedded", cfg.EmbeddedServer).
		Msg("NATS event transport started")
	return t, nil
}

// Publisher returns the circuit-breaker-wrapped publisher.
func (t *NATSTransport) Publisher() message.Publisher {
	return t.publisher
}

// Subscriber returns the JetStream subscriber for the bridge.
func (t *NATSTransport) Subscriber() message.Subscriber {
	return t.subscriber
}

// Close tears down subscriber, publisher and the embedded server.
func (t *NATSTransport) Close() error {
	var firstErr error
	if t.subscriber != nil {
		if err := t.subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if t.publisher != nil {
		if err := t.publisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.shutdownEmbedded()
	return firstErr
}

func (t *NATSTransport) shutdownEmbedded() {
	if t.embedded != nil {
		t.embedded.Shutdown()
		t.embedded.WaitForShutdown()
	}
}

func startEmbeddedServer(cfg *config.NATSConfig) (*server.Server, error) {
	opts := &server.Options{
		ServerName:         "mangapulse-events",
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.MaxMemory,
		JetStreamMaxStore:  cfg.MaxStore,
		Port:               server.RANDOM_PORT,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}
	ns.ConfigureLogger()
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within timeout")
	}
	return ns, nil
}

// breakerPublisher wraps a publisher with a circuit breaker. While the
// breaker is open publishes fail fast; notifications are best-effort so
// the failure surfaces only in logs.
type breakerPublisher struct {
	inner message.Publisher
	cb    *gobreaker.CircuitBreaker[interface{}]
}

func newBreakerPublisher(inner message.Publisher) *breakerPublisher {
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "nats-publish",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("publish circuit breaker state changed")
		},
	})
	return &breakerPublisher{inner: inner, cb: cb}
}

func (p *breakerPublisher) Publish(topic string, msgs ...*message.Message) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.inner.Publish(topic, msgs...)
	})
	return err
}

func (p *breakerPublisher) Close() error {
	return p.inner.Close()
}

var _ watermill.LoggerAdapter = (*watermillLogger)(nil)
