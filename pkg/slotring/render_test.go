package slotring_test

import (
	"testing"
)

func Test_String_Renders_Idle_Slots_As_Dots(t *testing.T) {
	t.Parallel()

	ring := newTestRing(t, 3)

	if got, want := ring.String(), "[  .   .   .  ]"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func Test_String_Renders_Writer_Reader_And_Dirty_Triples(t *testing.T) {
	t.Parallel()

	ring := newTestRing(t, 5)

	// Slots 0, 1: written and drained -> idle.
	// Slots 2, 3: written, never drained -> dirty.
	// Slot 4: written, never drained, one live reader.
	// Consumption is FIFO, so the drained set must be a prefix of the
	// production order.
	for slot := range 5 {
		writeHandle, err := ring.WriteNext()
		if err != nil {
			t.Fatalf("WriteNext slot %d: %v", slot, err)
		}

		writeHandle.Release()

		if slot >= 2 {
			continue // leave dirty
		}

		consumeHandle, err := ring.ConsumeNext()
		if err != nil {
			t.Fatalf("ConsumeNext slot %d: %v", slot, err)
		}

		consumeHandle.Release()
	}

	readHandle, err := ring.ReadSlot(4)
	if err != nil {
		t.Fatalf("ReadSlot(4): %v", err)
	}

	defer readHandle.Release()

	if got, want := ring.String(), "[  .   .   X   X  1R  ]"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func Test_String_Renders_Writing_Slot_As_W(t *testing.T) {
	t.Parallel()

	ring := newTestRing(t, 2)

	writeHandle, err := ring.WriteNext()
	if err != nil {
		t.Fatalf("WriteNext: %v", err)
	}

	defer writeHandle.Release()

	if got, want := ring.String(), "[  W   .  ]"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func Test_String_Renders_Reader_Count_Digit(t *testing.T) {
	t.Parallel()

	ring := newTestRing(t, 1)

	writeHandle, err := ring.WriteNext()
	if err != nil {
		t.Fatalf("WriteNext: %v", err)
	}

	writeHandle.Release()

	read1, err := ring.ReadSlot(0)
	if err != nil {
		t.Fatalf("first ReadSlot: %v", err)
	}

	defer read1.Release()

	read2, err := ring.ReadSlot(0)
	if err != nil {
		t.Fatalf("second ReadSlot: %v", err)
	}

	defer read2.Release()

	if got, want := ring.String(), "[ 2R  ]"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
