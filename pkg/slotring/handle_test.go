package slotring_test

import (
	"testing"

	"github.com/calvinalkan/slotring/pkg/slotring"
)

func Test_Release_Is_Idempotent_For_Write_Handles(t *testing.T) {
	t.Parallel()

	ring := newTestRing(t, 1)

	writeHandle, err := ring.WriteNext()
	if err != nil {
		t.Fatalf("WriteNext: %v", err)
	}

	writeHandle.Release()
	writeHandle.Release()

	// A double release must not have released the lock twice: the slot is
	// still consumable exactly once and writable again.
	if got := ring.ConsumableSlots(); got != 1 {
		t.Fatalf("ConsumableSlots() = %d after double release, want 1", got)
	}

	next, err := ring.WriteNext()
	if err != nil {
		t.Fatalf("WriteNext after double release: %v", err)
	}

	next.Release()
}

func Test_Release_Is_Idempotent_For_Read_And_Consume_Handles(t *testing.T) {
	t.Parallel()

	ring := newTestRing(t, 1)

	writeHandle, err := ring.WriteNext()
	if err != nil {
		t.Fatalf("WriteNext: %v", err)
	}

	writeHandle.Release()

	readHandle, err := ring.ReadSlot(0)
	if err != nil {
		t.Fatalf("ReadSlot: %v", err)
	}

	readHandle.Release()
	readHandle.Release()

	if got := ring.ConcurrentReads(0); got != 0 {
		t.Fatalf("ConcurrentReads(0) = %d after double read release, want 0", got)
	}

	consumeHandle, err := ring.ConsumeNext()
	if err != nil {
		t.Fatalf("ConsumeNext: %v", err)
	}

	consumeHandle.Release()
	consumeHandle.Release()

	if got := ring.ConcurrentReads(0); got != 0 {
		t.Fatalf("ConcurrentReads(0) = %d after double consume release, want 0", got)
	}

	// The writer must be able to take the slot exclusively again.
	next, err := ring.WriteNext()
	if err != nil {
		t.Fatalf("WriteNext after releases: %v", err)
	}

	next.Release()
}

func Test_Release_On_Nil_Handle_Is_NoOp(t *testing.T) {
	t.Parallel()

	var (
		writeHandle   *slotring.WriteHandle[int]
		readHandle    *slotring.ReadHandle[int]
		consumeHandle *slotring.ConsumeHandle[int]
	)

	writeHandle.Release()
	readHandle.Release()
	consumeHandle.Release()
}

func Test_WriteHandle_Set_Stores_Value_In_Slot_Cell(t *testing.T) {
	t.Parallel()

	ring := newTestRing(t, 2)

	writeHandle, err := ring.WriteNext()
	if err != nil {
		t.Fatalf("WriteNext: %v", err)
	}

	writeHandle.Set(99)

	if got := *writeHandle.Value(); got != 99 {
		t.Fatalf("cell holds %d after Set, want 99", got)
	}

	writeHandle.Release()

	consumeHandle, err := ring.ConsumeNext()
	if err != nil {
		t.Fatalf("ConsumeNext: %v", err)
	}

	defer consumeHandle.Release()

	if got := *consumeHandle.Value(); got != 99 {
		t.Fatalf("consumed %d, want 99", got)
	}
}

func Test_ConsumeHandle_Release_Marks_Slot_Drained(t *testing.T) {
	t.Parallel()

	ring := newTestRing(t, 1)

	writeHandle, err := ring.WriteNext()
	if err != nil {
		t.Fatalf("WriteNext: %v", err)
	}

	writeHandle.Release()

	consumeHandle, err := ring.ConsumeNext()
	if err != nil {
		t.Fatalf("ConsumeNext: %v", err)
	}

	consumeHandle.Release()

	// Drained slot: the next write must not report an overwrite.
	next, err := ring.WriteNext()
	if err != nil {
		t.Fatalf("WriteNext after drain: %v", err)
	}

	defer next.Release()

	if next.Overwrote() {
		t.Fatal("write after a completed drain must not report an overwrite")
	}
}
