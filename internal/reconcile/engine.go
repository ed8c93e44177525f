// Package reconcile validates and applies mount operations on a layer's
// mounted matrix and compares it against the mounting plan.
package reconcile

import (
	"fmt"
	"time"

	"github.com/kingrea/bpixm/internal/slots"
	"github.com/kingrea/bpixm/internal/topology"
)

// Divergence flags a mount that differs from the plan. It never blocks.
type Divergence struct {
	Planned   string
	Attempted string
}

// MountOutcome describes what TryMount did (or Check would do).
type MountOutcome struct {
	Address  slots.Address
	Previous string
	Current  string
	// NoOp is set for an empty ID: nothing to mount.
	NoOp bool
	// Reconfirmed is set when the ID already sits at Address.
	Reconfirmed bool
	// Divergence is non-nil when the plan names a different module.
	Divergence *Divergence
}

// Replaced reports whether a different module left the slot.
func (o MountOutcome) Replaced() bool {
	return o.Previous != "" && o.Previous != o.Current
}

// AuditEntry records one accepted change of a slot.
type AuditEntry struct {
	Layer    string
	Address  slots.Address
	Previous string
	Current  string
	At       time.Time
}

// Engine applies mount and clear operations and keeps an audit trail.
type Engine struct {
	audit []AuditEntry
	now   func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for audit timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// New creates an engine with an empty audit trail.
func New(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check runs the shape, uniqueness and divergence checks of TryMount
// without touching the matrix.
func (e *Engine) Check(mounted, plan *slots.Matrix, addr slots.Address, id string) (MountOutcome, error) {
	if !mounted.Contains(addr) {
		return MountOutcome{}, fmt.Errorf("%w: %s in %s", ErrOutOfRange, addr, mounted.Layer().Name)
	}
	outcome := MountOutcome{Address: addr, Previous: mounted.At(addr), Current: id}
	if id == "" {
		outcome.NoOp = true
		outcome.Current = outcome.Previous
		return outcome, nil
	}
	if !topology.ValidModuleIDShape(id) {
		return MountOutcome{}, &ShapeError{ID: id, Reason: "expected M followed by digits"}
	}
	if len(id) > topology.MaxModuleIDLength {
		return MountOutcome{}, &ShapeError{ID: id, Reason: fmt.Sprintf("longer than %d characters", topology.MaxModuleIDLength)}
	}
	for _, existing := range mounted.FindAll(id) {
		if existing == addr {
			outcome.Reconfirmed = true
			continue
		}
		return MountOutcome{}, &ConflictError{ID: id, Existing: existing}
	}
	if plan != nil {
		if plan.Layer().Ladders != mounted.Layer().Ladders || plan.Layer().SlotsPerLadder() != mounted.Layer().SlotsPerLadder() {
			return MountOutcome{}, ErrLayerMismatch
		}
		if planned := plan.At(addr); planned != "" && planned != id {
			outcome.Divergence = &Divergence{Planned: planned, Attempted: id}
		}
	}
	return outcome, nil
}

// TryMount installs id at addr. Shape and uniqueness violations are
// returned as *ShapeError and *ConflictError; a plan divergence is only
// reported in the outcome. Mounting an ID that is already at addr changes
// nothing and still succeeds.
func (e *Engine) TryMount(mounted, plan *slots.Matrix, addr slots.Address, id string) (MountOutcome, error) {
	outcome, err := e.Check(mounted, plan, addr, id)
	if err != nil || outcome.NoOp {
		return outcome, err
	}
	e.record(mounted, addr, outcome.Previous, id)
	if outcome.Reconfirmed {
		return outcome, nil
	}
	if err := mounted.Set(addr, id); err != nil {
		return MountOutcome{}, err
	}
	return outcome, nil
}

// Clear empties addr and returns what was there.
func (e *Engine) Clear(mounted *slots.Matrix, addr slots.Address) (string, error) {
	if !mounted.Contains(addr) {
		return "", fmt.Errorf("%w: %s in %s", ErrOutOfRange, addr, mounted.Layer().Name)
	}
	previous := mounted.At(addr)
	if err := mounted.Set(addr, ""); err != nil {
		return "", err
	}
	e.record(mounted, addr, previous, "")
	return previous, nil
}

// ClearHalfLadder empties every slot of one side of a ladder.
func (e *Engine) ClearHalfLadder(mounted *slots.Matrix, ladder int, side topology.Side) ([]AuditEntry, error) {
	var cleared []AuditEntry
	for _, z := range mounted.Layer().HalfLadderSlots(ladder, side) {
		addr := slots.Address{Ladder: ladder, Z: z}
		previous, err := e.Clear(mounted, addr)
		if err != nil {
			return cleared, err
		}
		cleared = append(cleared, AuditEntry{Layer: mounted.Layer().Name, Address: addr, Previous: previous, At: e.now()})
	}
	return cleared, nil
}

// Audit returns a copy of every accepted change, oldest first.
func (e *Engine) Audit() []AuditEntry {
	return append([]AuditEntry(nil), e.audit...)
}

func (e *Engine) record(mounted *slots.Matrix, addr slots.Address, previous, current string) {
	e.audit = append(e.audit, AuditEntry{
		Layer:    mounted.Layer().Name,
		Address:  addr,
		Previous: previous,
		Current:  current,
		At:       e.now(),
	})
}
