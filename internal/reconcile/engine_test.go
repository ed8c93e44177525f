package reconcile

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/bpixm/internal/slots"
	"github.com/kingrea/bpixm/internal/topology"
)

func exampleLayer() topology.Layer {
	return topology.Layer{Name: "L1", Ladders: 2, ZPositions: 4, TBMs: 1}
}

func newPair() (*slots.Matrix, *slots.Matrix) {
	layer := exampleLayer()
	return slots.New(layer, slots.RoleMounted), slots.New(layer, slots.RolePlan)
}

func TestWorkedExample(t *testing.T) {
	mounted, plan := newPair()
	e := New()

	_, err := e.TryMount(mounted, plan, slots.Address{Ladder: 0, Z: 0}, "M00123")
	require.NoError(t, err)

	_, err = e.TryMount(mounted, plan, slots.Address{Ladder: 1, Z: 5}, "M00123")
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict), "want ConflictError, got %v", err)
	assert.Equal(t, slots.Address{Ladder: 0, Z: 0}, conflict.Existing)
	assert.True(t, errors.Is(err, ErrAlreadyMounted))

	prev, err := e.Clear(mounted, slots.Address{Ladder: 0, Z: 0})
	require.NoError(t, err)
	assert.Equal(t, "M00123", prev)

	_, err = e.TryMount(mounted, plan, slots.Address{Ladder: 1, Z: 5}, "M00123")
	require.NoError(t, err)
	assert.Equal(t, "M00123", mounted.At(slots.Address{Ladder: 1, Z: 5}))
	assert.Equal(t, "", mounted.At(slots.Address{Ladder: 0, Z: 0}))
}

func TestShapeRejection(t *testing.T) {
	mounted, plan := newPair()
	e := New()

	_, err := e.TryMount(mounted, plan, slots.Address{Ladder: 0, Z: 0}, "X9")
	var shape *ShapeError
	require.True(t, errors.As(err, &shape))
	assert.True(t, errors.Is(err, ErrInvalidShape))

	_, err = e.TryMount(mounted, plan, slots.Address{Ladder: 0, Z: 0}, "M123456")
	require.True(t, errors.As(err, &shape))
	assert.Contains(t, shape.Reason, "longer than 6")

	outcome, err := e.TryMount(mounted, plan, slots.Address{Ladder: 0, Z: 0}, "")
	require.NoError(t, err)
	assert.True(t, outcome.NoOp)
	assert.False(t, mounted.Dirty())
	assert.Empty(t, e.Audit())
}

func TestIdempotentRemount(t *testing.T) {
	mounted, plan := newPair()
	e := New()
	addr := slots.Address{Ladder: 1, Z: 2}

	first, err := e.TryMount(mounted, plan, addr, "M77")
	require.NoError(t, err)
	assert.False(t, first.Reconfirmed)
	after := mounted.Rows()

	second, err := e.TryMount(mounted, plan, addr, "M77")
	require.NoError(t, err)
	assert.True(t, second.Reconfirmed)
	assert.Equal(t, after, mounted.Rows())
}

func TestDivergenceIsAWarning(t *testing.T) {
	mounted, plan := newPair()
	addr := slots.Address{Ladder: 0, Z: 3}
	require.NoError(t, plan.Set(addr, "M1000"))
	e := New()

	outcome, err := e.Check(mounted, plan, addr, "M2000")
	require.NoError(t, err)
	require.NotNil(t, outcome.Divergence)
	assert.Equal(t, Divergence{Planned: "M1000", Attempted: "M2000"}, *outcome.Divergence)
	assert.Equal(t, "", mounted.At(addr), "Check must not mutate")

	outcome, err = e.TryMount(mounted, plan, addr, "M2000")
	require.NoError(t, err)
	require.NotNil(t, outcome.Divergence)
	assert.Equal(t, "M2000", mounted.At(addr))

	outcome, err = e.TryMount(mounted, plan, slots.Address{Ladder: 0, Z: 4}, "M3000")
	require.NoError(t, err)
	assert.Nil(t, outcome.Divergence, "empty plan slot never diverges")
}

func TestReplaceRecordsAuditPair(t *testing.T) {
	mounted, plan := newPair()
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := New(WithClock(func() time.Time { return stamp }))
	addr := slots.Address{Ladder: 0, Z: 1}

	_, err := e.TryMount(mounted, plan, addr, "M1")
	require.NoError(t, err)
	outcome, err := e.TryMount(mounted, plan, addr, "M2")
	require.NoError(t, err)
	assert.True(t, outcome.Replaced())
	assert.Equal(t, "M1", outcome.Previous)

	audit := e.Audit()
	require.Len(t, audit, 2)
	assert.Equal(t, AuditEntry{Layer: "L1", Address: addr, Previous: "M1", Current: "M2", At: stamp}, audit[1])
	assert.True(t, mounted.Dirty())
}

func TestOutOfRange(t *testing.T) {
	mounted, plan := newPair()
	e := New()
	_, err := e.TryMount(mounted, plan, slots.Address{Ladder: 2, Z: 0}, "M1")
	assert.True(t, errors.Is(err, ErrOutOfRange))
	_, err = e.Clear(mounted, slots.Address{Ladder: 0, Z: 8})
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestClearHalfLadder(t *testing.T) {
	mounted, plan := newPair()
	e := New()
	for z := 0; z < 8; z++ {
		_, err := e.TryMount(mounted, plan, slots.Address{Ladder: 1, Z: z}, fmt.Sprintf("M%d", z+1))
		require.NoError(t, err)
	}
	cleared, err := e.ClearHalfLadder(mounted, 1, topology.SidePlus)
	require.NoError(t, err)
	require.Len(t, cleared, 4)
	assert.Equal(t, "M5", cleared[0].Previous)
	assert.Equal(t, []string{"", "", "", ""}, mounted.Slice(1, topology.SidePlus))
	assert.Equal(t, []string{"M1", "M2", "M3", "M4"}, mounted.Slice(1, topology.SideMinus))
}

func TestUniquenessHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		mounted, plan := newPair()
		e := New()
		for step := 0; step < 60; step++ {
			addr := slots.Address{Ladder: rng.Intn(2), Z: rng.Intn(8)}
			if rng.Intn(5) == 0 {
				_, err := e.Clear(mounted, addr)
				require.NoError(t, err)
				continue
			}
			_, _ = e.TryMount(mounted, plan, addr, fmt.Sprintf("M%d", rng.Intn(10)))
		}
		seen := map[string]bool{}
		for _, row := range mounted.Rows() {
			for _, id := range row {
				if id == "" {
					continue
				}
				require.Falsef(t, seen[id], "round %d: %s mounted twice", round, id)
				seen[id] = true
			}
		}
	}
}

func TestLayerMismatch(t *testing.T) {
	mounted := slots.New(exampleLayer(), slots.RoleMounted)
	plan := slots.New(topology.Layer{Name: "L2", Ladders: 3, ZPositions: 4, TBMs: 1}, slots.RolePlan)
	_, err := New().Check(mounted, plan, slots.Address{Ladder: 0, Z: 0}, "M1")
	assert.True(t, errors.Is(err, ErrLayerMismatch))
}
