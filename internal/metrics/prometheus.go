package metrics

import "github.com/prometheus/client_golang/prometheus"

// PrometheusSink is the concrete Sink wired into a deployed service. It
// follows the direct promauto-free style (explicit New+Register) so the
// caller controls which registry it lands on instead of always touching the
// global default one.
type PrometheusSink struct {
	solvable         prometheus.Gauge
	filtered         prometheus.Gauge
	erroredEstimates prometheus.Counter
	timeouts         prometheus.Counter
	cycles           prometheus.Counter
}

// NewPrometheusSink creates the metric set and registers it on registerer.
func NewPrometheusSink(registerer prometheus.Registerer) (*PrometheusSink, error) {
	s := &PrometheusSink{
		solvable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "orderbook",
			Subsystem: "auction",
			Name:      "solvable_orders",
			Help:      "Number of orders in the most recently published auction snapshot.",
		}),
		filtered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "orderbook",
			Subsystem: "auction",
			Name:      "filtered_orders",
			Help:      "Number of orders dropped from the last cycle for lacking a native price.",
		}),
		erroredEstimates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderbook",
			Subsystem: "auction",
			Name:      "price_estimate_errors_total",
			Help:      "Total number of native price lookups that errored.",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderbook",
			Subsystem: "auction",
			Name:      "price_collection_timeouts_total",
			Help:      "Total number of cycles where native price collection hit its deadline.",
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderbook",
			Subsystem: "auction",
			Name:      "updates_total",
			Help:      "Total number of successful auction snapshot publications.",
		}),
	}

	for _, c := range []prometheus.Collector{s.solvable, s.filtered, s.erroredEstimates, s.timeouts, s.cycles} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusSink) AuctionUpdated(solvable, filtered, erroredEstimates uint64, timeout bool) {
	s.solvable.Set(float64(solvable))
	s.filtered.Set(float64(filtered))
	s.erroredEstimates.Add(float64(erroredEstimates))
	s.cycles.Inc()
	if timeout {
		s.timeouts.Inc()
	}
}
