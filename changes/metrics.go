package changes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opPeek = "peek"
	opPush = "push"
)

// Metrics counts what happened to each incoming change. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	received   prometheus.Counter
	stored     prometheus.Counter
	duplicates prometheus.Counter
	failures   *prometheus.CounterVec
}

// NewMetrics registers the change collectors with reg. Registering twice
// with the same registry panics, like any promauto collector.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		received: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mediaspyy",
			Subsystem: "changes",
			Name:      "received_total",
			Help:      "Playback snapshots received from the browser.",
		}),
		stored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mediaspyy",
			Subsystem: "changes",
			Name:      "stored_total",
			Help:      "Snapshots that differed from the last stored record and were pushed.",
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mediaspyy",
			Subsystem: "changes",
			Name:      "duplicates_total",
			Help:      "Snapshots dropped for matching the last stored record.",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediaspyy",
			Subsystem: "changes",
			Name:      "failures_total",
			Help:      "Storage calls that failed while handling a change.",
		}, []string{"op"}),
	}
}

func (m *Metrics) incReceived() {
	if m == nil {
		return
	}
	m.received.Inc()
}

func (m *Metrics) incStored() {
	if m == nil {
		return
	}
	m.stored.Inc()
}

func (m *Metrics) incDuplicate() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

func (m *Metrics) incFailure(op string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op).Inc()
}
