// Package stress drives a slotring.Ring under concurrent load and reports
// what happened. It backs the ringbench command; tests use it directly with
// small scenarios.
package stress

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/calvinalkan/slotring/pkg/slotring"
)

// Scenario describes one stress run. Zero fields take defaults; see
// withDefaults.
type Scenario struct {
	// Capacity is the ring size N.
	Capacity int `json:"capacity"`

	// Writes is the number of values the producer publishes.
	Writes int `json:"writes"`

	// Consumers is the number of draining goroutines.
	Consumers int `json:"consumers"`

	// Peekers is the number of goroutines hammering ReadNewest.
	Peekers int `json:"peekers"`

	// LockTimeoutMillis overrides the ring's lock timeout. Zero keeps the
	// ring default.
	LockTimeoutMillis int `json:"lock_timeout_ms"`

	// Metrics enables a private Prometheus registry for the run; its
	// final counter values are folded into the report.
	Metrics bool `json:"metrics"`
}

func (s Scenario) withDefaults() Scenario {
	if s.Capacity == 0 {
		s.Capacity = 64
	}

	if s.Writes == 0 {
		s.Writes = 10_000
	}

	if s.Consumers == 0 {
		s.Consumers = 2
	}

	return s
}

func (s Scenario) validate() error {
	if s.Capacity < 1 {
		return fmt.Errorf("capacity %d must be positive: %w", s.Capacity, errInvalidScenario)
	}

	if s.Writes < 1 {
		return fmt.Errorf("writes %d must be positive: %w", s.Writes, errInvalidScenario)
	}

	if s.Consumers < 1 {
		return fmt.Errorf("consumers %d must be positive: %w", s.Consumers, errInvalidScenario)
	}

	if s.Peekers < 0 {
		return fmt.Errorf("peekers %d must not be negative: %w", s.Peekers, errInvalidScenario)
	}

	return nil
}

var errInvalidScenario = errors.New("stress: invalid scenario")

// Report is the outcome of one Run.
type Report struct {
	Writes          int64   `json:"writes"`
	Overwrites      int64   `json:"overwrites"`
	Consumes        int64   `json:"consumes"`
	Peeks           int64   `json:"peeks"`
	SlotTimeouts    int64   `json:"slot_timeouts"`
	DataTimeouts    int64   `json:"data_timeouts"`
	OrderViolations int64   `json:"order_violations"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`

	// Metrics holds the ring's gathered Prometheus samples when the
	// scenario enabled them.
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Run executes the scenario: one producer, sc.Consumers drainers checking
// per-goroutine FIFO order, sc.Peekers observers. It returns once the
// producer has finished and the drained-queue is empty; values lost to
// overwrites are never drained.
func Run(logger log.Logger, sc Scenario) (Report, error) {
	sc = sc.withDefaults()

	if err := sc.validate(); err != nil {
		return Report{}, err
	}

	var registry *prometheus.Registry
	if sc.Metrics {
		registry = prometheus.NewRegistry()
	}

	ring, err := slotring.New[uint64](slotring.Options{
		Capacity:    sc.Capacity,
		LockTimeout: time.Duration(sc.LockTimeoutMillis) * time.Millisecond,
		Metrics:     registerer(registry),
	})
	if err != nil {
		return Report{}, fmt.Errorf("create ring: %w", err)
	}

	_ = logger.Log("msg", "starting run", "capacity", sc.Capacity, "writes", sc.Writes,
		"consumers", sc.Consumers, "peekers", sc.Peekers)

	var (
		writes          atomic.Int64
		overwrites      atomic.Int64
		consumes        atomic.Int64
		peeks           atomic.Int64
		slotTimeouts    atomic.Int64
		dataTimeouts    atomic.Int64
		orderViolations atomic.Int64
	)

	start := time.Now()
	producerDone := atomic.NewBool(false)
	peekersStop := make(chan struct{})

	var consumerWG sync.WaitGroup

	for range sc.Consumers {
		consumerWG.Add(1)

		go func() {
			defer consumerWG.Done()

			// Pops are totally ordered by queue order, so each
			// consumer's own value sequence must be increasing.
			var last uint64

			haveLast := false

			for {
				handle, consumeErr := ring.ConsumeNext()
				if consumeErr != nil {
					switch {
					case errors.Is(consumeErr, slotring.ErrDataTimeout):
						dataTimeouts.Inc()
					case errors.Is(consumeErr, slotring.ErrSlotTimeout):
						slotTimeouts.Inc()
					}

					if producerDone.Load() && ring.ConsumableSlots() == 0 {
						return
					}

					continue
				}

				value := *handle.Value()
				handle.Release()
				consumes.Inc()

				if haveLast && value <= last {
					orderViolations.Inc()
				}

				last = value
				haveLast = true
			}
		}()
	}

	var peekerWG sync.WaitGroup

	for range sc.Peekers {
		peekerWG.Add(1)

		go func() {
			defer peekerWG.Done()

			for {
				select {
				case <-peekersStop:
					return
				default:
				}

				handle, peekErr := ring.ReadNewest()
				if peekErr != nil {
					continue
				}

				handle.Release()
				peeks.Inc()
			}
		}()
	}

	for i := range sc.Writes {
		for {
			handle, writeErr := ring.WriteNext()
			if writeErr != nil {
				slotTimeouts.Inc()

				continue
			}

			handle.Set(uint64(i) + 1)

			if handle.Overwrote() {
				overwrites.Inc()
			}

			handle.Release()
			writes.Inc()

			break
		}
	}

	producerDone.Store(true)
	consumerWG.Wait()
	close(peekersStop)
	peekerWG.Wait()

	report := Report{
		Writes:          writes.Load(),
		Overwrites:      overwrites.Load(),
		Consumes:        consumes.Load(),
		Peeks:           peeks.Load(),
		SlotTimeouts:    slotTimeouts.Load(),
		DataTimeouts:    dataTimeouts.Load(),
		OrderViolations: orderViolations.Load(),
		ElapsedSeconds:  time.Since(start).Seconds(),
	}

	if registry != nil {
		report.Metrics, err = gatherCounters(registry)
		if err != nil {
			return Report{}, fmt.Errorf("gather metrics: %w", err)
		}
	}

	_ = logger.Log("msg", "run finished",
		"writes", report.Writes,
		"overwrites", report.Overwrites,
		"consumes", report.Consumes,
		"peeks", report.Peeks,
		"order_violations", report.OrderViolations,
		"elapsed", time.Since(start))

	return report, nil
}

// registerer keeps the Options.Metrics field nil when no registry exists. A
// plain `opts.Metrics = registry` with a nil *prometheus.Registry would
// produce a non-nil interface holding a nil pointer.
func registerer(registry *prometheus.Registry) prometheus.Registerer {
	if registry == nil {
		return nil
	}

	return registry
}

// gatherCounters flattens the registry's gauge and counter samples into a
// name -> value map for the report.
func gatherCounters(registry *prometheus.Registry) (map[string]float64, error) {
	families, err := registry.Gather()
	if err != nil {
		return nil, err
	}

	samples := make(map[string]float64, len(families))

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				samples[family.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				samples[family.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}

	return samples, nil
}
