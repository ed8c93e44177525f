// Package slots holds the module-ID and hub-ID grid of one layer, in either
// its planned or its as-mounted role, together with the line-oriented text
// formats those grids are stored in.
package slots

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kingrea/bpixm/internal/topology"
)

// UnknownHubID marks a TBM whose hub ID has not been assigned.
const UnknownHubID = -1

// Role distinguishes the two matrices kept per layer.
type Role string

const (
	RolePlan    Role = "plan"
	RoleMounted Role = "mounted"
)

// Address locates one slot inside a layer.
type Address struct {
	Ladder int
	Z      int
}

func (a Address) String() string {
	return fmt.Sprintf("(%d,%d)", a.Ladder, a.Z)
}

// HubIDs holds one hub ID per TBM of a slot.
type HubIDs []int

// Matrix is the grid of one layer in one role.
type Matrix struct {
	layer   topology.Layer
	role    Role
	modules [][]string
	hubIDs  [][]HubIDs
	dirty   bool
}

// New returns an empty matrix: every slot unoccupied and every hub ID unknown.
// Each slot gets its own HubIDs backing array.
func New(layer topology.Layer, role Role) *Matrix {
	m := &Matrix{
		layer:   layer,
		role:    role,
		modules: make([][]string, layer.Ladders),
		hubIDs:  make([][]HubIDs, layer.Ladders),
	}
	for ladder := 0; ladder < layer.Ladders; ladder++ {
		m.modules[ladder] = make([]string, layer.SlotsPerLadder())
		row := make([]HubIDs, layer.SlotsPerLadder())
		for z := range row {
			row[z] = unknownHubIDs(layer.TBMs)
		}
		m.hubIDs[ladder] = row
	}
	return m
}

func unknownHubIDs(tbms int) HubIDs {
	ids := make(HubIDs, tbms)
	for i := range ids {
		ids[i] = UnknownHubID
	}
	return ids
}

// Layer returns the geometry this matrix was built for.
func (m *Matrix) Layer() topology.Layer { return m.layer }

// Role reports whether this is a plan or a mounted matrix.
func (m *Matrix) Role() Role { return m.role }

// Contains reports whether addr is inside the grid.
func (m *Matrix) Contains(addr Address) bool {
	return m.layer.Contains(addr.Ladder, addr.Z)
}

// At returns the module ID stored at addr ("" when empty or out of range).
func (m *Matrix) At(addr Address) string {
	if !m.Contains(addr) {
		return ""
	}
	return m.modules[addr.Ladder][addr.Z]
}

// Set stores id at addr and marks the matrix dirty.
func (m *Matrix) Set(addr Address, id string) error {
	if !m.Contains(addr) {
		return fmt.Errorf("slots: address %s outside layer %s", addr, m.layer.Name)
	}
	m.modules[addr.Ladder][addr.Z] = id
	m.dirty = true
	return nil
}

// HubIDsAt returns a copy of the hub IDs of addr.
func (m *Matrix) HubIDsAt(addr Address) HubIDs {
	if !m.Contains(addr) {
		return nil
	}
	return append(HubIDs(nil), m.hubIDs[addr.Ladder][addr.Z]...)
}

// SetHubIDs replaces the hub IDs of addr; the length must match the TBM count.
func (m *Matrix) SetHubIDs(addr Address, ids HubIDs) error {
	if !m.Contains(addr) {
		return fmt.Errorf("slots: address %s outside layer %s", addr, m.layer.Name)
	}
	if len(ids) != m.layer.TBMs {
		return fmt.Errorf("slots: %d hub ids for %d tbms", len(ids), m.layer.TBMs)
	}
	m.hubIDs[addr.Ladder][addr.Z] = append(HubIDs(nil), ids...)
	return nil
}

// Row returns a copy of one ladder's module IDs.
func (m *Matrix) Row(ladder int) []string {
	if ladder < 0 || ladder >= len(m.modules) {
		return nil
	}
	return append([]string(nil), m.modules[ladder]...)
}

// Rows returns a copy of the whole module grid.
func (m *Matrix) Rows() [][]string {
	rows := make([][]string, len(m.modules))
	for i := range m.modules {
		rows[i] = m.Row(i)
	}
	return rows
}

// Slice returns the module IDs of one half-ladder in ascending Z order.
func (m *Matrix) Slice(ladder int, side topology.Side) []string {
	zs := m.layer.HalfLadderSlots(ladder, side)
	out := make([]string, len(zs))
	for i, z := range zs {
		out[i] = m.At(Address{Ladder: ladder, Z: z})
	}
	return out
}

// HubIDSlice is the hub ID counterpart of Slice.
func (m *Matrix) HubIDSlice(ladder int, side topology.Side) []HubIDs {
	zs := m.layer.HalfLadderSlots(ladder, side)
	out := make([]HubIDs, len(zs))
	for i, z := range zs {
		out[i] = m.HubIDsAt(Address{Ladder: ladder, Z: z})
	}
	return out
}

// Find returns the first address holding id, scanning ladders then Z.
func (m *Matrix) Find(id string) (Address, bool) {
	if id == "" {
		return Address{}, false
	}
	for ladder, row := range m.modules {
		for z, candidate := range row {
			if candidate == id {
				return Address{Ladder: ladder, Z: z}, true
			}
		}
	}
	return Address{}, false
}

// FindAll returns every address holding id.
func (m *Matrix) FindAll(id string) []Address {
	if id == "" {
		return nil
	}
	var found []Address
	for ladder, row := range m.modules {
		for z, candidate := range row {
			if candidate == id {
				found = append(found, Address{Ladder: ladder, Z: z})
			}
		}
	}
	return found
}

// Clone returns a deep copy, dirty flag included.
func (m *Matrix) Clone() *Matrix {
	c := New(m.layer, m.role)
	for ladder := range m.modules {
		copy(c.modules[ladder], m.modules[ladder])
		for z := range m.hubIDs[ladder] {
			c.hubIDs[ladder][z] = append(HubIDs(nil), m.hubIDs[ladder][z]...)
		}
	}
	c.dirty = m.dirty
	return c
}

// Dirty reports unsaved in-memory changes.
func (m *Matrix) Dirty() bool { return m.dirty }

// MarkDirty flags the matrix as changed.
func (m *Matrix) MarkDirty() { m.dirty = true }

// MarkClean is called after the matrix has been persisted.
func (m *Matrix) MarkClean() { m.dirty = false }

// FormatHubIDs joins the IDs with "/"; an empty tuple renders as "".
func FormatHubIDs(ids HubIDs) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, "/")
}
