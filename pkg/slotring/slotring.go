// Package slotring provides a fixed-capacity, multi-threaded circular slot
// buffer for single-producer / multiple-consumer pipelines.
//
// A [Ring] holds N slots of some element type T. The producer claims exclusive
// write access to the slot under the write cursor; consumers claim shared read
// access to filled slots. Two consumer flavors exist: peek readers
// ([Ring.ReadSlot], [Ring.ReadNewest]) which never alter buffer state, and
// draining consumers ([Ring.ConsumeNext]) which mark the slot as drained when
// their handle is released.
//
// # Basic Usage
//
//	ring, err := slotring.New[int](slotring.Options{Capacity: 8})
//	if err != nil {
//	    // only fails on invalid options
//	}
//
//	// Produce
//	w, err := ring.WriteNext()
//	if err == nil {
//	    w.Set(42)
//	    w.Release()
//	}
//
//	// Consume
//	c, err := ring.ConsumeNext()
//	if err == nil {
//	    v := *c.Value()
//	    c.Release()
//	    _ = v
//	}
//
// # Concurrency
//
// The contract is single-producer: at most one goroutine may call
// [Ring.WriteNext]. Any number of goroutines may peek and consume
// concurrently, with each other and with the producer.
//
// The producer is allowed to lap slow consumers: writing to a slot whose
// previous content was never drained is an overwrite, reported through
// [WriteHandle.Overwrote]. Draining consumers see slots in production order;
// peek readers have no ordering guarantee.
//
// Every handle must be released exactly once. Pair each successful
// acquisition with a deferred Release:
//
//	w, err := ring.WriteNext()
//	if err != nil {
//	    return err
//	}
//	defer w.Release()
//
// Release is idempotent and safe on a nil handle, so a deferred release of a
// failed acquisition is a no-op.
//
// # Error Handling
//
// All blocking operations are bounded by [Options.LockTimeout] (default
// [DefaultLockTimeout]). Expiry surfaces as one of two sentinel errors,
// checked with [errors.Is]:
//
//   - [ErrSlotTimeout]: a per-slot or coarse lock could not be acquired in
//     time. Transient; retry after a short delay.
//   - [ErrDataTimeout]: no filled slot became available in time. Transient;
//     retry, skip, or escalate.
//
// Both are backpressure signals. A failed operation leaves the ring
// unchanged and returns a nil handle.
package slotring

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLockTimeout bounds every blocking primitive (per-slot lock, coarse
// lock, availability wait) when [Options.LockTimeout] is zero.
const DefaultLockTimeout = time.Second

// Sentinel errors returned by slotring operations.
//
// Callers should use [errors.Is] to check error types:
//
//	if errors.Is(err, slotring.ErrSlotTimeout) {
//	    // back off and retry
//	}
var (
	// ErrSlotTimeout indicates a lock acquisition (per-slot shared or
	// exclusive, or the coarse cursor lock) did not succeed within the
	// deadline.
	//
	// Recovery: retry after a short delay.
	ErrSlotTimeout = errors.New("slotring: slot acquisition timed out")

	// ErrDataTimeout indicates no slot became consumable within the
	// deadline. Returned only by [Ring.ReadNewest] and [Ring.ConsumeNext].
	//
	// Recovery: retry after a short delay, or treat as "buffer empty".
	ErrDataTimeout = errors.New("slotring: no data available before timeout")

	// ErrInvalidInput indicates invalid arguments were provided.
	//
	// Common causes: non-positive [Options.Capacity], slot index out of
	// range.
	//
	// This is a programming error.
	ErrInvalidInput = errors.New("slotring: invalid input")
)

// Options configure a new [Ring].
type Options struct {
	// Capacity is the number of slots N. Must be positive.
	Capacity int

	// LockTimeout bounds every blocking primitive. Zero means
	// [DefaultLockTimeout].
	LockTimeout time.Duration

	// Metrics, when non-nil, registers the ring's gauges and counters
	// with the given registerer. Nil disables instrumentation.
	Metrics prometheus.Registerer
}
