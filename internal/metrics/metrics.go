// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

// Package metrics provides Prometheus instrumentation for the API
// surface, the realtime hub and the event pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mangapulse_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangapulse_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangapulse_api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// Realtime Metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangapulse_websocket_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	RoomMemberships = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangapulse_room_memberships",
			Help: "Number of rooms with at least one member",
		},
	)

	// Event Pipeline Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangapulse_events_published_total",
			Help: "Total number of lifecycle events published to the bus",
		},
		[]string{"kind"},
	)

	EventsPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangapulse_events_publish_errors_total",
			Help: "Total number of failed event publishes",
		},
		[]string{"kind"},
	)

	RoomResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangapulse_room_resolutions_total",
			Help: "Total number of room resolutions by role",
		},
		[]string{"role"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// TrackWebSocketConnection adjusts the connection gauge.
func TrackWebSocketConnection(connected bool) {
	if connected {
		WebSocketConnections.Inc()
	} else {
		WebSocketConnections.Dec()
	}
}

// SetRoomCount records the current number of populated rooms.
func SetRoomCount(n int) {
	RoomMemberships.Set(float64(n))
}

// RecordEventPublished records a successful publish of the given kind.
func RecordEventPublished(kind string) {
	EventsPublished.WithLabelValues(kind).Inc()
}

// RecordEventPublishError records a failed publish of the given kind.
func RecordEventPublishError(kind string) {
	EventsPublishErrors.WithLabelValues(kind).Inc()
}

// RecordRoomResolution records one bootstrap resolution for a role.
func RecordRoomResolution(role string) {
	RoomResolutions.WithLabelValues(role).Inc()
}
