package slotring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// Locking architecture
//
//  1. Per-slot lock (slotDesc.lock) — shared for readers/consumers,
//     exclusive for the producer. Deadline-bounded.
//
//  2. Coarse lock (Ring.coarse) — weight-1 semaphore serialising write
//     cursor advances and Clear. Deadline-bounded.
//
//  3. Queue mutex (drainQueue.mu) — guards the drained-queue entries, the
//     per-slot queued flags and the waiter list. Plain mutex; critical
//     sections are O(1) apart from Clear's reset.
//
// Lock ordering: per-slot lock → coarse lock → queue mutex. WriteNext takes
// the slot lock before the coarse lock; Clear and String take only the
// coarse lock; consumers wait on the queue mutex without holding a slot lock,
// then take the slot lock and pop the entry under the queue mutex while still
// holding it (slot lock → queue mutex).

// Ring is a fixed-capacity circular buffer of N slots of T with per-slot
// reader/writer locking.
//
// At most one goroutine may produce via [Ring.WriteNext]; any number may
// peek and consume concurrently. All methods are bounded by the configured
// lock timeout; see the package documentation for the error contract.
//
// A Ring must be obtained via [New]; the zero value is not usable.
type Ring[T any] struct {
	_ [0]func() // prevent external construction

	cells []T
	slots []slotDesc

	// coarse serialises cursor advances, Clear and the String snapshot.
	coarse *semaphore.Weighted

	// cursor is the index the next WriteNext will target. Written only
	// under coarse; read racily by observers.
	cursor atomic.Int32

	queue   drainQueue
	timeout time.Duration

	met *ringMetrics
}

// New creates a Ring with the given options.
//
// Possible errors: [ErrInvalidInput] if Capacity is not positive.
func New[T any](opts Options) (*Ring[T], error) {
	if opts.Capacity < 1 {
		return nil, fmt.Errorf("capacity %d must be positive: %w", opts.Capacity, ErrInvalidInput)
	}

	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	r := &Ring[T]{
		cells:   make([]T, opts.Capacity),
		slots:   make([]slotDesc, opts.Capacity),
		coarse:  semaphore.NewWeighted(1),
		timeout: timeout,
	}

	for i := range r.slots {
		r.slots[i].lock = newSlotLock()
	}

	if opts.Metrics != nil {
		r.met = newRingMetrics(opts.Metrics, opts.Capacity, func() float64 {
			return float64(r.queue.length())
		})
	}

	return r, nil
}

// opCtx returns the deadline context bounding one operation. Every blocking
// primitive inside the call shares it; which primitive observes the expiry
// determines the error kind.
func (r *Ring[T]) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *Ring[T]) lockCoarse(ctx context.Context) error {
	return r.coarse.Acquire(ctx, 1)
}

func (r *Ring[T]) unlockCoarse() {
	r.coarse.Release(1)
}

// WriteNext grants exclusive write access to the slot under the write
// cursor and advances the cursor.
//
// If the slot's previous content was never drained the write is an
// overwrite, reported by [WriteHandle.Overwrote]; the old queue entry stays
// in place and release will not enqueue the slot a second time.
//
// Only the single producer goroutine may call WriteNext.
//
// Possible errors: [ErrSlotTimeout].
func (r *Ring[T]) WriteNext() (*WriteHandle[T], error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	// Single producer: the cursor cannot move between this load and the
	// advance below. The coarse lock still serialises the advance against
	// Clear and String.
	cur := int(r.cursor.Load())
	desc := &r.slots[cur]

	if err := desc.lock.lockExclusive(ctx); err != nil {
		r.met.incSlotTimeouts()

		return nil, fmt.Errorf("write slot %d: %w", cur, ErrSlotTimeout)
	}

	if err := r.lockCoarse(ctx); err != nil {
		desc.lock.unlockExclusive()
		r.met.incSlotTimeouts()

		return nil, fmt.Errorf("advance cursor past slot %d: %w", cur, ErrSlotTimeout)
	}

	overwrote := desc.dirty.Load()
	desc.writing.Store(true)
	r.cursor.Store(int32((cur + 1) % len(r.slots)))
	r.unlockCoarse()

	r.met.incWrites()

	if overwrote {
		r.met.incOverwrites()
	}

	return &WriteHandle[T]{
		ring:      r,
		slot:      cur,
		cell:      &r.cells[cur],
		overwrote: overwrote,
		bound:     true,
	}, nil
}

// ReadSlot grants shared read access to slot i without affecting its
// drained state.
//
// Possible errors: [ErrInvalidInput], [ErrSlotTimeout].
func (r *Ring[T]) ReadSlot(i int) (*ReadHandle[T], error) {
	if i < 0 || i >= len(r.slots) {
		return nil, fmt.Errorf("slot index %d out of range [0, %d): %w", i, len(r.slots), ErrInvalidInput)
	}

	ctx, cancel := r.opCtx()
	defer cancel()

	desc := &r.slots[i]

	if err := desc.lock.lockShared(ctx); err != nil {
		r.met.incSlotTimeouts()

		return nil, fmt.Errorf("read slot %d: %w", i, ErrSlotTimeout)
	}

	desc.nReading.Inc()
	r.met.incPeeks()

	return &ReadHandle[T]{ring: r, slot: i, cell: &r.cells[i], bound: true}, nil
}

// ReadNewest grants shared read access to the most recently filled slot (the
// back of the drained-queue) without removing it from the queue. Two
// concurrent peekers may both observe the same slot.
//
// Possible errors: [ErrDataTimeout], [ErrSlotTimeout].
func (r *Ring[T]) ReadNewest() (*ReadHandle[T], error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	idx, ok := r.queue.await(ctx, true)
	if !ok {
		r.met.incDataTimeouts()

		return nil, fmt.Errorf("read newest: %w", ErrDataTimeout)
	}

	desc := &r.slots[idx]

	if err := desc.lock.lockShared(ctx); err != nil {
		r.met.incSlotTimeouts()

		return nil, fmt.Errorf("read newest slot %d: %w", idx, ErrSlotTimeout)
	}

	desc.nReading.Inc()
	r.met.incPeeks()

	return &ReadHandle[T]{ring: r, slot: idx, cell: &r.cells[idx], bound: true}, nil
}

// ConsumeNext grants shared read access to the least recently filled slot
// and removes it from the drained-queue. The slot stays dirty until the
// handle is released.
//
// Deliveries across all consumers follow queue order, which is production
// order modulo overwrites.
//
// Possible errors: [ErrDataTimeout], [ErrSlotTimeout]. On a slot-lock
// timeout the availability signal is re-broadcast so other waiters can race
// for the same entry.
func (r *Ring[T]) ConsumeNext() (*ConsumeHandle[T], error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	for {
		idx, ok := r.queue.await(ctx, false)
		if !ok {
			r.met.incDataTimeouts()

			return nil, fmt.Errorf("consume next: %w", ErrDataTimeout)
		}

		desc := &r.slots[idx]

		if err := desc.lock.lockShared(ctx); err != nil {
			r.queue.notifyAll()
			r.met.incSlotTimeouts()

			return nil, fmt.Errorf("consume slot %d: %w", idx, ErrSlotTimeout)
		}

		if !r.queue.popIfFront(idx, desc) {
			// Another consumer drained this entry between our peek and
			// lock. The lock we hold is for the wrong claim; retry.
			desc.lock.unlockShared()

			continue
		}

		desc.nReading.Inc()
		r.met.incConsumes()

		return &ConsumeHandle[T]{ring: r, slot: idx, cell: &r.cells[idx], bound: true}, nil
	}
}

// Clear empties the drained-queue, resets every slot to idle and resets the
// write cursor to 0.
//
// Precondition (documented, not enforced): no live handles and no concurrent
// calls. Behaviour is undefined if a writer or reader holds a slot lock.
//
// Possible errors: [ErrSlotTimeout] if the coarse lock cannot be taken.
func (r *Ring[T]) Clear() error {
	ctx, cancel := r.opCtx()
	defer cancel()

	if err := r.lockCoarse(ctx); err != nil {
		r.met.incSlotTimeouts()

		return fmt.Errorf("clear: %w", ErrSlotTimeout)
	}

	defer r.unlockCoarse()

	r.queue.reset(r.slots)

	for i := range r.slots {
		r.slots[i].dirty.Store(false)
	}

	r.cursor.Store(0)

	return nil
}

// Size returns the ring's capacity N.
func (r *Ring[T]) Size() int {
	return len(r.slots)
}

// IsWritten reports whether slot i is held by an unreleased write handle.
// Out-of-range indices report false. Advisory; the value may be stale by the
// time it is observed.
func (r *Ring[T]) IsWritten(i int) bool {
	if i < 0 || i >= len(r.slots) {
		return false
	}

	return r.slots[i].writing.Load()
}

// IsRead reports whether slot i has at least one live read or consume
// handle. Out-of-range indices report false. Advisory.
func (r *Ring[T]) IsRead(i int) bool {
	return r.ConcurrentReads(i) > 0
}

// ConcurrentReads returns the number of live read/consume handles on slot i.
// Out-of-range indices report 0. Advisory.
func (r *Ring[T]) ConcurrentReads(i int) int {
	if i < 0 || i >= len(r.slots) {
		return 0
	}

	return int(r.slots[i].nReading.Load())
}

// ConsumableSlots returns the drained-queue length: the number of filled
// slots awaiting a consumer. Advisory.
func (r *Ring[T]) ConsumableSlots() int {
	return r.queue.length()
}

// String renders a single-line snapshot: one triple per slot in index
// order, triples separated by one space, wrapped in "[ " and " ]".
//
//	" W "  slot held by a writer
//	"kR "  slot with k live readers
//	" X "  slot filled and awaiting drain
//	" . "  slot idle
//
// The snapshot is serialised against cursor advances and Clear when the
// coarse lock is free, and rendered racily otherwise. Advisory either way.
func (r *Ring[T]) String() string {
	if r.coarse.TryAcquire(1) {
		defer r.coarse.Release(1)
	}

	var b strings.Builder

	b.WriteString("[ ")

	for i := range r.slots {
		desc := &r.slots[i]

		if i > 0 {
			b.WriteByte(' ')
		}

		switch {
		case desc.writing.Load():
			b.WriteString(" W ")
		case desc.nReading.Load() > 0:
			fmt.Fprintf(&b, "%dR ", desc.nReading.Load())
		case desc.dirty.Load():
			b.WriteString(" X ")
		default:
			b.WriteString(" . ")
		}
	}

	b.WriteString(" ]")

	return b.String()
}
