package reconcile

import "github.com/kingrea/bpixm/internal/slots"

// SlotStatus compares one mounted slot against the plan.
type SlotStatus int

const (
	StatusEmpty            SlotStatus = iota // nothing planned, nothing mounted
	StatusMatch                              // mounted as planned
	StatusMountedUnplanned                   // mounted, plan empty
	StatusMismatch                           // mounted differs from plan
	StatusPlannedOnly                        // planned, not yet mounted
)

func (s SlotStatus) String() string {
	switch s {
	case StatusMatch:
		return "match"
	case StatusMountedUnplanned:
		return "mounted-unplanned"
	case StatusMismatch:
		return "mismatch"
	case StatusPlannedOnly:
		return "planned-only"
	default:
		return "empty"
	}
}

// Deviates reports whether the mounted slot disagrees with the plan.
func (s SlotStatus) Deviates() bool {
	return s == StatusMountedUnplanned || s == StatusMismatch
}

// DiffLayer compares plan and mounted slot by slot. The result only
// depends on the two matrices.
func DiffLayer(plan, mounted *slots.Matrix) [][]SlotStatus {
	layer := mounted.Layer()
	grid := make([][]SlotStatus, layer.Ladders)
	for ladder := range grid {
		row := make([]SlotStatus, layer.SlotsPerLadder())
		for z := range row {
			addr := slots.Address{Ladder: ladder, Z: z}
			row[z] = compare(plan.At(addr), mounted.At(addr))
		}
		grid[ladder] = row
	}
	return grid
}

func compare(planned, mounted string) SlotStatus {
	switch {
	case planned == "" && mounted == "":
		return StatusEmpty
	case mounted == "":
		return StatusPlannedOnly
	case planned == "":
		return StatusMountedUnplanned
	case planned == mounted:
		return StatusMatch
	default:
		return StatusMismatch
	}
}
