// Package metrics exposes Prometheus counters for platform creation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Recorder counts persisted platforms and downstream dispatch outcomes.
type Recorder struct {
	created  prometheus.Counter
	dispatch *prometheus.CounterVec
}

// NewRecorder registers the platform counters with reg.
// Pass prometheus.DefaultRegisterer to expose them on /-/metrics.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		created: factory.NewCounter(prometheus.CounterOpts{
			Name: "platforms_created_total",
			Help: "Platforms committed to the record store.",
		}),
		dispatch: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "platforms_downstream_dispatch_total",
			Help: "Downstream notifications by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}
}

// PlatformCreated increments the creation counter. A nil Recorder is a no-op.
func (r *Recorder) PlatformCreated() {
	if r == nil {
		return
	}

	r.created.Inc()
}

// Dispatch records one downstream attempt. A nil Recorder is a no-op.
func (r *Recorder) Dispatch(channel, outcome string) {
	if r == nil {
		return
	}

	r.dispatch.WithLabelValues(channel, outcome).Inc()
}
