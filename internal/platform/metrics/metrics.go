package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EventsCreated        prometheus.Counter
	EventsClosed         prometheus.Counter
	EventsDeleted        prometheus.Counter
	Registrations        prometheus.Counter
	Withdrawals          prometheus.Counter
	RegistrationRejected *prometheus.CounterVec
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	HTTPDuration         *prometheus.HistogramVec
}

// Rejection reasons for the registration_rejected_total counter.
const (
	ReasonDuplicate = "duplicate"
	ReasonCapacity  = "capacity"
	ReasonClosed    = "closed"
	ReasonCompleted = "completed"
)

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EventsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "communitylink_events_created_total",
			Help: "Total number of events published",
		}),
		EventsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "communitylink_events_closed_total",
			Help: "Total number of events closed by their owner",
		}),
		EventsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "communitylink_events_deleted_total",
			Help: "Total number of events deleted",
		}),
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "communitylink_registrations_total",
			Help: "Total number of successful registrations",
		}),
		Withdrawals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "communitylink_withdrawals_total",
			Help: "Total number of registrations withdrawn",
		}),
		RegistrationRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "communitylink_registration_rejected_total",
			Help: "Registrations rejected by the ledger, by reason",
		}, []string{"reason"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "communitylink_event_cache_hits_total",
			Help: "Upcoming-events cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "communitylink_event_cache_misses_total",
			Help: "Upcoming-events cache misses",
		}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "communitylink_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) ObserveHTTPDuration(method, route, status string, seconds float64) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, route, status).Observe(seconds)
	}
}

func (m *Metrics) IncrementEventsCreated() {
	if m != nil {
		m.EventsCreated.Inc()
	}
}

func (m *Metrics) IncrementEventsClosed() {
	if m != nil {
		m.EventsClosed.Inc()
	}
}

func (m *Metrics) IncrementEventsDeleted() {
	if m != nil {
		m.EventsDeleted.Inc()
	}
}

func (m *Metrics) IncrementRegistrations() {
	if m != nil {
		m.Registrations.Inc()
	}
}

func (m *Metrics) IncrementWithdrawals() {
	if m != nil {
		m.Withdrawals.Inc()
	}
}

func (m *Metrics) IncrementRegistrationRejected(reason string) {
	if m != nil {
		m.RegistrationRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) IncrementCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}
