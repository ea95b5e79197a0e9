package slotring

// noCopy flags accidental handle copies to go vet. Duplicating a handle must
// not duplicate lock ownership.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// WriteHandle is the producer's scoped ownership token for one slot. It
// holds the slot's exclusive lock; releasing it publishes the slot to
// consumers.
//
// Handles must not be copied. Release is idempotent and nil-safe.
type WriteHandle[T any] struct {
	_         noCopy
	ring      *Ring[T]
	slot      int
	cell      *T
	bound     bool
	overwrote bool
}

// Slot returns the index this handle governs.
func (h *WriteHandle[T]) Slot() int { return h.slot }

// Value returns a pointer to the slot's cell. Valid until Release.
func (h *WriteHandle[T]) Value() *T { return h.cell }

// Set stores v into the slot's cell.
func (h *WriteHandle[T]) Set(v T) { *h.cell = v }

// Overwrote reports whether the slot's previous content had never been
// drained when this write was granted.
func (h *WriteHandle[T]) Overwrote() bool { return h.overwrote }

// Release clears the slot's writing flag, marks it dirty, enqueues it for
// consumers (unless its stale entry is still queued), signals availability
// and drops the exclusive lock.
func (h *WriteHandle[T]) Release() {
	if h == nil || !h.bound {
		return
	}

	h.bound = false

	r := h.ring
	desc := &r.slots[h.slot]

	desc.writing.Store(false)
	desc.dirty.Store(true)
	r.queue.push(h.slot, desc)
	desc.lock.unlockExclusive()
}

// ReadHandle is a peek reader's scoped ownership token. It holds the slot's
// shared lock and never alters the slot's drained state.
//
// Handles must not be copied. Release is idempotent and nil-safe.
type ReadHandle[T any] struct {
	_     noCopy
	ring  *Ring[T]
	slot  int
	cell  *T
	bound bool
}

// Slot returns the index this handle governs.
func (h *ReadHandle[T]) Slot() int { return h.slot }

// Value returns a pointer to the slot's cell. Callers must treat the cell
// as read-only; the lock held is shared.
func (h *ReadHandle[T]) Value() *T { return h.cell }

// Release decrements the slot's reader count and drops the shared lock. The
// drained-queue is untouched.
func (h *ReadHandle[T]) Release() {
	if h == nil || !h.bound {
		return
	}

	h.bound = false

	desc := &h.ring.slots[h.slot]
	desc.nReading.Dec()
	desc.lock.unlockShared()
}

// ConsumeHandle is a draining consumer's scoped ownership token. Its queue
// entry was already popped at acquisition; the slot stays dirty until
// Release.
//
// Handles must not be copied. Release is idempotent and nil-safe.
type ConsumeHandle[T any] struct {
	_     noCopy
	ring  *Ring[T]
	slot  int
	cell  *T
	bound bool
}

// Slot returns the index this handle governs.
func (h *ConsumeHandle[T]) Slot() int { return h.slot }

// Value returns a pointer to the slot's cell. Callers must treat the cell
// as read-only; the lock held is shared.
func (h *ConsumeHandle[T]) Value() *T { return h.cell }

// Release marks the slot drained, decrements the reader count and drops the
// shared lock.
func (h *ConsumeHandle[T]) Release() {
	if h == nil || !h.bound {
		return
	}

	h.bound = false

	desc := &h.ring.slots[h.slot]
	desc.dirty.Store(false)
	desc.nReading.Dec()
	desc.lock.unlockShared()
}
