package slotring

import (
	"context"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// maxReaders is the reader weight ceiling of a slot lock. A writer acquires
// the full weight, so any value larger than a realistic concurrent reader
// count works.
const maxReaders = 1 << 30

// slotLock is a reader/writer lock with deadline-bounded acquisition, built
// on a weighted semaphore. Acquisition is FIFO, so a waiting writer is not
// starved by a stream of late readers.
type slotLock struct {
	sem *semaphore.Weighted
}

func newSlotLock() slotLock {
	return slotLock{sem: semaphore.NewWeighted(maxReaders)}
}

func (l *slotLock) lockExclusive(ctx context.Context) error {
	return l.sem.Acquire(ctx, maxReaders)
}

func (l *slotLock) unlockExclusive() {
	l.sem.Release(maxReaders)
}

func (l *slotLock) lockShared(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *slotLock) unlockShared() {
	l.sem.Release(1)
}

// slotDesc is the per-slot descriptor: the slot's lock plus the state the
// observers report. The flag fields are written only by the holder of the
// slot's lock in the appropriate mode; observers load them racily, which is
// documented as advisory.
type slotDesc struct {
	lock slotLock

	// writing is true iff an unreleased write handle references this slot.
	writing atomic.Bool

	// nReading counts live peek/consume handles on this slot.
	nReading atomic.Int32

	// dirty is true iff the slot has been filled and not yet drained.
	dirty atomic.Bool

	// queued is true iff the slot's index is currently in the
	// drained-queue. Guarded by the queue mutex, not the slot lock; it is
	// what keeps an overwritten slot from being enqueued twice.
	queued bool
}
