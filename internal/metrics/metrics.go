package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "groupchat"

// Session Metrics
var (
	// SessionsActive tracks currently connected clients across all transports
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected client sessions",
		},
	)

	// SessionsTotal counts accepted sessions by transport ("tcp" or "websocket")
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total client sessions accepted by transport",
		},
		[]string{"transport"},
	)

	// ProtocolErrors counts sessions terminated by an undecodable request
	ProtocolErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Total sessions closed because of a malformed request",
		},
	)

	// NotMemberErrors counts posts to groups the sender never joined
	NotMemberErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "not_member_errors_total",
			Help:      "Total posts rejected because the sender had not joined the group",
		},
	)
)

// Group Metrics
var (
	// Groups tracks the number of groups in the registry. Groups are never removed.
	Groups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "groups",
			Help:      "Number of groups ever created",
		},
	)

	// JoinsTotal counts accepted joins
	JoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Total group joins",
		},
	)

	// PostsTotal counts posts fanned out by groups
	PostsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Total messages posted to groups",
		},
	)

	// MembersPruned counts members removed after their mailbox disconnected
	MembersPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "members_pruned_total",
			Help:      "Total group members removed because their client disconnected",
		},
	)

	// FanoutSize observes how many members each post was offered to
	FanoutSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_members",
			Help:      "Members offered each posted message",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)
)

// Mailbox Metrics
var (
	// MessagesEnqueued counts replies accepted into outbound mailboxes
	MessagesEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_enqueued_total",
			Help:      "Total replies accepted into client outbound queues",
		},
	)

	// MessagesDropped counts replies discarded because an outbound queue was full
	MessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Total replies dropped by outbound queue backpressure",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
