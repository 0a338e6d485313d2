package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	UsersRegistered   prometheus.Counter
	InterestsSent     prometheus.Counter
	InterestDecisions *prometheus.CounterVec
	MessagesSent      prometheus.Counter
	MessagesRelayed   prometheus.Counter
	OnlineSessions    prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	NotificationFails prometheus.Counter
}

// New creates and registers every collector on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "vivah_users_registered_total",
			Help: "Total number of identities registered",
		}),
		InterestsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "vivah_interests_sent_total",
			Help: "Total number of interests sent",
		}),
		InterestDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vivah_interest_decisions_total",
			Help: "Interest transitions out of pending, by outcome",
		}, []string{"outcome"}),
		MessagesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "vivah_messages_sent_total",
			Help: "Total number of messages persisted",
		}),
		MessagesRelayed: f.NewCounter(prometheus.CounterOpts{
			Name: "vivah_messages_relayed_total",
			Help: "Messages forwarded to an online receiver",
		}),
		OnlineSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "vivah_online_sessions",
			Help: "Live relay sessions currently registered",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vivah_http_requests_total",
			Help: "HTTP requests by route pattern, method and status",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vivah_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		NotificationFails: f.NewCounter(prometheus.CounterOpts{
			Name: "vivah_notification_failures_total",
			Help: "Notifications that could not be delivered to the sender backend",
		}),
	}
}

// NewNop returns collectors bound to a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) IncrementUsersRegistered() {
	if m != nil {
		m.UsersRegistered.Inc()
	}
}

func (m *Metrics) IncrementInterestsSent() {
	if m != nil {
		m.InterestsSent.Inc()
	}
}

func (m *Metrics) ObserveInterestDecision(outcome string) {
	if m != nil {
		m.InterestDecisions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementMessagesSent() {
	if m != nil {
		m.MessagesSent.Inc()
	}
}

func (m *Metrics) IncrementMessagesRelayed() {
	if m != nil {
		m.MessagesRelayed.Inc()
	}
}

func (m *Metrics) SetOnlineSessions(n int) {
	if m != nil {
		m.OnlineSessions.Set(float64(n))
	}
}

func (m *Metrics) IncrementNotificationFailures() {
	if m != nil {
		m.NotificationFails.Inc()
	}
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(route, method, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(route, method, status).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
	}
}
