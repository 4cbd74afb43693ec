// Package telemetry registers the service's Prometheus collectors. Metrics
// are package-level so any component can record without plumbing a registry
// handle through call sites.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubscriptionsOpen tracks live realtime subscriptions (chat-level and
	// per-message event subscriptions combined).
	SubscriptionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agentlab_subscriptions_open",
		Help: "Number of live realtime subscriptions.",
	})

	// SnapshotsDelivered counts snapshot notifications fanned out to
	// subscribers.
	SnapshotsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agentlab_snapshots_delivered_total",
		Help: "Snapshot notifications delivered to subscribers.",
	})

	// EventsIngested counts event fragments accepted on the ingest path.
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agentlab_events_ingested_total",
		Help: "Assistant output event fragments ingested.",
	})

	// MessagesAppended counts messages appended across all chats.
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agentlab_messages_appended_total",
		Help: "Messages appended to conversation trees.",
	})

	// LiveSessions tracks currently attached websocket chat views.
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agentlab_live_sessions",
		Help: "Currently attached live chat views.",
	})

	// RequestDuration observes HTTP handler latency by route and method.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentlab_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)
