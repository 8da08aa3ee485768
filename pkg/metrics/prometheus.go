package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision paths.
const (
	PathManual    = "manual"
	PathAutomatic = "automatic"
)

var (
	ApplicationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanflow_applications_created_total",
			Help: "Total number of applications created, by automatic validation",
		},
		[]string{"automatic"},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanflow_decisions_total",
			Help: "Total number of decisions applied by path and resulting status",
		},
		[]string{"path", "decision"},
	)

	CapacityRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loanflow_capacity_requests_total",
			Help: "Total number of capacity evaluation requests published",
		},
	)

	CapacityResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanflow_capacity_results_total",
			Help: "Capacity results handled by outcome",
		},
		[]string{"outcome"},
	)

	ChannelPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanflow_channel_publish_failures_total",
			Help: "Outbound publish failures by channel",
		},
		[]string{"channel"},
	)

	MessagesDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanflow_messages_dead_lettered_total",
			Help: "Messages forwarded to a dead-letter queue after exhausting redeliveries",
		},
		[]string{"queue"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanflow_notifications_sent_total",
			Help: "Decision notifications delivered by medium",
		},
		[]string{"medium"},
	)

	PollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loanflow_poll_batch_duration_seconds",
			Help:    "Time spent handling one received batch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"queue"},
	)
)
