// Package metrics provides Prometheus metrics for the messenger client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesSent counts messages confirmed by the data service.
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_messages_sent_total",
			Help: "Total number of messages confirmed by the data service",
		},
	)

	// SendFailures counts sends rejected after the optimistic append.
	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_send_failures_total",
			Help: "Total number of message sends that failed",
		},
	)

	// MessagesReceived counts chat_message events applied to the store.
	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_messages_received_total",
			Help: "Total number of pushed chat messages applied",
		},
	)

	// GatewayEvents tracks push events by name, including unknown ones.
	GatewayEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_gateway_events_total",
			Help: "Total number of gateway push events by event name",
		},
		[]string{"event"},
	)

	// TypingSignals tracks outbound typing start/stop commands.
	TypingSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_typing_signals_total",
			Help: "Total number of outbound typing signals by state",
		},
		[]string{"state"},
	)

	// ActiveUploads tracks attachment uploads currently in flight.
	ActiveUploads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "messenger_active_uploads",
			Help: "Number of attachment uploads currently in flight",
		},
	)

	// UploadFailures counts failed attachment uploads.
	UploadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_upload_failures_total",
			Help: "Total number of failed attachment uploads",
		},
	)

	// APIErrors tracks data service failures by taxonomy class.
	APIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_api_errors_total",
			Help: "Total number of data service errors by class",
		},
		[]string{"class"},
	)
)
