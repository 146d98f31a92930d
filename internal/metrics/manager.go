package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterRateLimitedRequests prometheus.Counter
	CounterIdempotentReplays   prometheus.Counter
	CounterAppointmentsBooked  prometheus.Counter
	CounterAppointmentConflict prometheus.Counter
	CounterSessionsStarted     prometheus.Counter
	CounterSessionsFinished    *prometheus.CounterVec
	CounterSetsLogged          prometheus.Counter
	CounterPersonalBests       prometheus.Counter

	// gauges
	GaugeRequests prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("trainer_core", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("trainer_core", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterRateLimitedRequests: counter("rate_limited_requests", "The total number of rate limited requests"),
		CounterIdempotentReplays:   counter("idempotent_replays", "Responses replayed for a repeated Idempotency-Key"),
		CounterAppointmentsBooked:  counter("appointments_booked", "The total number of booked appointments"),
		CounterAppointmentConflict: counter("appointment_conflicts", "Bookings or reschedules rejected for overlapping a trainer appointment"),
		CounterSessionsStarted:     counter("sessions_started", "The total number of created workout sessions"),
		CounterSessionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_finished",
			Help:      "Workout sessions leaving in_progress, by final status",
		}, []string{"status"}),
		CounterSetsLogged:    counter("sets_logged", "The total number of logged sets"),
		CounterPersonalBests: counter("personal_bests", "The total number of new personal bests"),

		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),

		HistogramRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Histogram of response time for requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status_code"}),
	}
}
