// Package metrics records session timings and failures as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hstreamenv"

// Recorder holds the collectors for one orchestrator. The zero value is not
// usable; a nil *Recorder discards everything.
type Recorder struct {
	bootstrapDuration prometheus.Histogram
	sessionDuration   prometheus.Histogram
	provisionFailures *prometheus.CounterVec
	teardownFailures  *prometheus.CounterVec
	bindingFailures   prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered. If an identical collector is already registered (for
// example by a second orchestrator in the same binary), the existing one is
// reused.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		bootstrapDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bootstrap_duration_seconds",
			Help:      "Time from the start of provisioning until the cluster is handed to the test.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Time from the start of provisioning until teardown finished.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		provisionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_failures_total",
			Help:      "Sessions that failed to provision, by the role that failed.",
		}, []string{"role"}),
		teardownFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teardown_failures_total",
			Help:      "Teardown steps that failed, by step.",
		}, []string{"step"}),
		bindingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "binding_failures_total",
			Help:      "Capability setters that panicked.",
		}),
	}
	if reg == nil {
		return r, nil
	}

	var err error
	if r.bootstrapDuration, err = register(reg, r.bootstrapDuration); err != nil {
		return nil, err
	}
	if r.sessionDuration, err = register(reg, r.sessionDuration); err != nil {
		return nil, err
	}
	if r.provisionFailures, err = register(reg, r.provisionFailures); err != nil {
		return nil, err
	}
	if r.teardownFailures, err = register(reg, r.teardownFailures); err != nil {
		return nil, err
	}
	if r.bindingFailures, err = register(reg, r.bindingFailures); err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveBootstrap records a successful bootstrap.
func (r *Recorder) ObserveBootstrap(d time.Duration) {
	if r == nil {
		return
	}
	r.bootstrapDuration.Observe(d.Seconds())
}

// ObserveSession records the total duration of a torn down session.
func (r *Recorder) ObserveSession(d time.Duration) {
	if r == nil {
		return
	}
	r.sessionDuration.Observe(d.Seconds())
}

// ProvisioningFailed counts a failed bootstrap.
func (r *Recorder) ProvisioningFailed(role string) {
	if r == nil {
		return
	}
	r.provisionFailures.WithLabelValues(role).Inc()
}

// TeardownFailed counts a failed teardown step.
func (r *Recorder) TeardownFailed(step string) {
	if r == nil {
		return
	}
	r.teardownFailures.WithLabelValues(step).Inc()
}

// BindingFailed counts a panicking capability setter.
func (r *Recorder) BindingFailed() {
	if r == nil {
		return
	}
	r.bindingFailures.Inc()
}
