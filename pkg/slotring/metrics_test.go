package slotring_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/slotring/pkg/slotring"
)

func Test_Metrics_Count_Operations_When_Registerer_Provided(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	ring, err := slotring.New[int](slotring.Options{
		Capacity:    2,
		LockTimeout: shortTimeout,
		Metrics:     registry,
	})
	require.NoError(t, err)

	// One availability timeout on the empty ring.
	_, err = ring.ConsumeNext()
	require.ErrorIs(t, err, slotring.ErrDataTimeout)

	// Three writes; the third laps slot 0 undrained -> one overwrite.
	for range 3 {
		writeHandle, writeErr := ring.WriteNext()
		require.NoError(t, writeErr)
		writeHandle.Release()
	}

	// One peek, one consume.
	readHandle, err := ring.ReadNewest()
	require.NoError(t, err)
	readHandle.Release()

	consumeHandle, err := ring.ConsumeNext()
	require.NoError(t, err)
	consumeHandle.Release()

	expected := `
# HELP slotring_capacity Number of slots in the ring.
# TYPE slotring_capacity gauge
slotring_capacity 2
# HELP slotring_consumable_slots Current length of the drained-queue.
# TYPE slotring_consumable_slots gauge
slotring_consumable_slots 1
# HELP slotring_writes_total Write handles granted.
# TYPE slotring_writes_total counter
slotring_writes_total 3
# HELP slotring_overwrites_total Writes that clobbered an undrained slot.
# TYPE slotring_overwrites_total counter
slotring_overwrites_total 1
# HELP slotring_consumes_total Consume handles granted.
# TYPE slotring_consumes_total counter
slotring_consumes_total 1
# HELP slotring_peeks_total Peek read handles granted.
# TYPE slotring_peeks_total counter
slotring_peeks_total 1
# HELP slotring_data_timeouts_total Availability waits that hit the deadline.
# TYPE slotring_data_timeouts_total counter
slotring_data_timeouts_total 1
`

	err = testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"slotring_capacity",
		"slotring_consumable_slots",
		"slotring_writes_total",
		"slotring_overwrites_total",
		"slotring_consumes_total",
		"slotring_peeks_total",
		"slotring_data_timeouts_total",
	)
	require.NoError(t, err)
}

func Test_Metrics_Are_Disabled_When_Registerer_Is_Nil(t *testing.T) {
	t.Parallel()

	ring, err := slotring.New[int](slotring.Options{Capacity: 1, LockTimeout: shortTimeout})
	require.NoError(t, err)

	writeHandle, err := ring.WriteNext()
	require.NoError(t, err)
	writeHandle.Release()

	consumeHandle, err := ring.ConsumeNext()
	require.NoError(t, err)
	consumeHandle.Release()
}
