// Package prometheus exports xhermes signals as Prometheus metrics.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/trickstertwo/xhermes"
)

// Probe turns bus signals into counters and histograms.
type Probe struct {
	triggers  *prometheus.CounterVec
	faults    *prometheus.CounterVec
	repeats   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	stages    *prometheus.HistogramVec
	created   prometheus.Counter
	destroyed prometheus.Counter
	resets    *prometheus.CounterVec
}

var _ xhermes.Probe = (*Probe)(nil)

// NewProbe constructs the instruments and registers them against reg.
func NewProbe(reg prometheus.Registerer) *Probe {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Probe{
		triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "xhermes",
				Name:      "triggers_total",
				Help:      "Trigger passes by busline, event and outcome.",
			},
			[]string{"busline", "event", "status"},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "xhermes",
				Name:      "observer_faults_total",
				Help:      "Observers that returned an error or panicked.",
			},
			[]string{"busline", "event", "role"},
		),
		repeats: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "xhermes",
				Name:      "resolve_repeated_total",
				Help:      "Ignored repeated resolve calls.",
			},
			[]string{"busline", "event"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "xhermes",
				Name:      "trigger_duration_seconds",
				Help:      "Wall time of completed trigger passes.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"busline", "event"},
		),
		stages: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "xhermes",
				Name:      "stage_duration_seconds",
				Help:      "Wall time of each before/on/after stage.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"busline", "role"},
		),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xhermes",
			Name:      "buslines_created_total",
			Help:      "Buslines created by Subscribe.",
		}),
		destroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xhermes",
			Name:      "buslines_destroyed_total",
			Help:      "Buslines destroyed explicitly or by a hard reset.",
		}),
		resets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "xhermes",
				Name:      "resets_total",
				Help:      "Reset and hard reset calls.",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(p.triggers, p.faults, p.repeats, p.duration, p.stages, p.created, p.destroyed, p.resets)
	return p
}

func (p *Probe) OnSignal(s xhermes.Signal) {
	switch s.Type {
	case xhermes.SignalTriggerDone, xhermes.SignalUnknownEvent, xhermes.SignalInactiveEvent:
		p.triggers.WithLabelValues(s.Busline, s.Event, s.Status.String()).Inc()
		if s.Type == xhermes.SignalTriggerDone && s.Duration > 0 {
			p.duration.WithLabelValues(s.Busline, s.Event).Observe(s.Duration.Seconds())
		}
	case xhermes.SignalStageDone:
		if s.Duration > 0 {
			p.stages.WithLabelValues(s.Busline, s.Role.String()).Observe(s.Duration.Seconds())
		}
	case xhermes.SignalObserverFault:
		p.faults.WithLabelValues(s.Busline, s.Event, s.Role.String()).Inc()
	case xhermes.SignalResolveRepeated:
		p.repeats.WithLabelValues(s.Busline, s.Event).Inc()
	case xhermes.SignalBuslineCreated:
		p.created.Inc()
	case xhermes.SignalBuslineDestroyed:
		p.destroyed.Inc()
	case xhermes.SignalReset:
		p.resets.WithLabelValues("reset").Inc()
	case xhermes.SignalHardReset:
		p.resets.WithLabelValues("hard_reset").Inc()
	}
}

// TriggersCounter exposes one trigger counter for tests and diagnostics.
func (p *Probe) TriggersCounter(busline, event string, status xhermes.Status) prometheus.Counter {
	return p.triggers.WithLabelValues(busline, event, status.String())
}

// FaultsCounter exposes one fault counter for tests and diagnostics.
func (p *Probe) FaultsCounter(busline, event string, role xhermes.Role) prometheus.Counter {
	return p.faults.WithLabelValues(busline, event, role.String())
}

// Handler returns an HTTP handler for a custom registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
