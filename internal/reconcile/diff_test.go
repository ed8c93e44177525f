package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/bpixm/internal/slots"
	"github.com/kingrea/bpixm/internal/topology"
)

func TestDiffLayer(t *testing.T) {
	layer := topology.Layer{Name: "L1", Ladders: 1, ZPositions: 2, TBMs: 1}
	plan := slots.New(layer, slots.RolePlan)
	mounted := slots.New(layer, slots.RoleMounted)

	require.NoError(t, plan.Set(slots.Address{Ladder: 0, Z: 1}, "M1"))
	require.NoError(t, mounted.Set(slots.Address{Ladder: 0, Z: 1}, "M1"))
	require.NoError(t, mounted.Set(slots.Address{Ladder: 0, Z: 2}, "M2"))
	require.NoError(t, plan.Set(slots.Address{Ladder: 0, Z: 3}, "M3"))
	require.NoError(t, mounted.Set(slots.Address{Ladder: 0, Z: 3}, "M4"))

	got := DiffLayer(plan, mounted)
	want := [][]SlotStatus{{StatusEmpty, StatusMatch, StatusMountedUnplanned, StatusMismatch}}
	assert.Equal(t, want, got)
	assert.True(t, StatusMismatch.Deviates())
	assert.False(t, StatusMatch.Deviates())

	require.NoError(t, mounted.Set(slots.Address{Ladder: 0, Z: 1}, ""))
	assert.Equal(t, StatusPlannedOnly, DiffLayer(plan, mounted)[0][1])
	assert.Equal(t, "planned-only", StatusPlannedOnly.String())
}
