package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "breakout_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
	orders   *prometheus.CounterVec
	signals  prometheus.Counter
	skips    *prometheus.CounterVec
	failures *prometheus.CounterVec
	exits    *prometheus.CounterVec
	stops    prometheus.Counter
	faults   prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_total",
		Help:      "Orders submitted, by outcome (placed, simulated, failed).",
	}, []string{"outcome"})
	signals := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "breakout_signals_total",
		Help:      "Total number of breakout signals observed.",
	})
	skips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "entry_skipped_total",
		Help:      "Entries skipped after a signal, by reason.",
	}, []string{"reason"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "flow_failed_total",
		Help:      "Entry and exit flow failures.",
	}, []string{"flow"})
	exits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "exits_total",
		Help:      "Position monitor exits, by reason.",
	}, []string{"reason"})
	stops := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "scheduled_stops_total",
		Help:      "Total number of scheduled stops executed.",
	})
	faults := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "cycle_faults_total",
		Help:      "Total number of supervisor cycles that ended in an unhandled fault.",
	})

	registry.MustRegister(orders, signals, skips, failures, exits, stops, faults)

	m := &Metrics{
		OrdersPlaced:      promCounter{orders.WithLabelValues("placed")},
		OrdersSimulated:   promCounter{orders.WithLabelValues("simulated")},
		OrdersFailed:      promCounter{orders.WithLabelValues("failed")},
		Signals:           promCounter{signals},
		ResolutionFailed:  promCounter{skips.WithLabelValues("unresolved")},
		AdmissionRejected: promCounter{skips.WithLabelValues("premium_out_of_band")},
		EntryFailed:       promCounter{failures.WithLabelValues("entry")},
		ExitFailed:        promCounter{failures.WithLabelValues("exit")},
		ExitStopLoss:      promCounter{exits.WithLabelValues("stop_loss")},
		ExitTarget:        promCounter{exits.WithLabelValues("target")},
		ExitOperatorStop:  promCounter{exits.WithLabelValues("operator_stop")},
		ScheduledStops:    promCounter{stops},
		CycleFaults:       promCounter{faults},
	}

	return &Prometheus{
		Metrics:  m,
		registry: registry,
		orders:   orders,
		signals:  signals,
		skips:    skips,
		failures: failures,
		exits:    exits,
		stops:    stops,
		faults:   faults,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
