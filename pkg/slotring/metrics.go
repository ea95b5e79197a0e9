package slotring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ringMetrics holds the per-ring Prometheus instruments. All methods are
// nil-safe so call sites stay unconditional.
type ringMetrics struct {
	writes       prometheus.Counter
	overwrites   prometheus.Counter
	consumes     prometheus.Counter
	peeks        prometheus.Counter
	slotTimeouts prometheus.Counter
	dataTimeouts prometheus.Counter
}

func newRingMetrics(reg prometheus.Registerer, capacity int, consumable func() float64) *ringMetrics {
	factory := promauto.With(reg)

	factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "slotring",
		Name:      "capacity",
		Help:      "Number of slots in the ring.",
	}).Set(float64(capacity))

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "slotring",
		Name:      "consumable_slots",
		Help:      "Current length of the drained-queue.",
	}, consumable)

	return &ringMetrics{
		writes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "slotring",
			Name:      "writes_total",
			Help:      "Write handles granted.",
		}),
		overwrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "slotring",
			Name:      "overwrites_total",
			Help:      "Writes that clobbered an undrained slot.",
		}),
		consumes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "slotring",
			Name:      "consumes_total",
			Help:      "Consume handles granted.",
		}),
		peeks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "slotring",
			Name:      "peeks_total",
			Help:      "Peek read handles granted.",
		}),
		slotTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "slotring",
			Name:      "slot_timeouts_total",
			Help:      "Lock acquisitions that hit the deadline.",
		}),
		dataTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "slotring",
			Name:      "data_timeouts_total",
			Help:      "Availability waits that hit the deadline.",
		}),
	}
}

func (m *ringMetrics) incWrites() {
	if m != nil {
		m.writes.Inc()
	}
}

func (m *ringMetrics) incOverwrites() {
	if m != nil {
		m.overwrites.Inc()
	}
}

func (m *ringMetrics) incConsumes() {
	if m != nil {
		m.consumes.Inc()
	}
}

func (m *ringMetrics) incPeeks() {
	if m != nil {
		m.peeks.Inc()
	}
}

func (m *ringMetrics) incSlotTimeouts() {
	if m != nil {
		m.slotTimeouts.Inc()
	}
}

func (m *ringMetrics) incDataTimeouts() {
	if m != nil {
		m.dataTimeouts.Inc()
	}
}
