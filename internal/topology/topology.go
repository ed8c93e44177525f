// internal/topology/topology.go
//
// Addressing and naming rules for barrel layers. Nothing in this package
// touches the filesystem; it only knows how ladders, Z-positions and
// half-ladders are numbered and how module IDs are displayed.

package topology

import (
	"fmt"
	"strings"
)

const (
	// EmptyPlaceholder is shown for a slot without a module.
	EmptyPlaceholder = "-----"
	// UnrecognizedPlaceholder is shown for IDs that are not of the form M<digits>.
	UnrecognizedPlaceholder = "M$$$$"
	// MaxModuleIDLength is the longest ID, prefix included, accepted for mounting.
	MaxModuleIDLength = 6
)

// Side selects one half of a ladder.
type Side int

const (
	SideMinus Side = 0
	SidePlus  Side = 1
)

func (s Side) String() string {
	if s == SidePlus {
		return "+"
	}
	return "-"
}

// ZNumbering picks how Z-positions are labelled. The dataset has seen two
// conventions; every label in the tool goes through Layer.ZPositionLabel so
// only one of them is ever active.
type ZNumbering string

const (
	// ZNumberingOneBased labels the outermost minus slot Z{n}- and the
	// innermost plus slot Z1+.
	ZNumberingOneBased ZNumbering = "one-based"
	// ZNumberingZeroBased is the legacy variant: Z{n-1}- ... Z0-, Z0+ ... Z{n-1}+.
	ZNumberingZeroBased ZNumbering = "zero-based"
)

// ParseZNumbering maps a config value onto a numbering rule.
func ParseZNumbering(value string) (ZNumbering, error) {
	switch ZNumbering(strings.ToLower(strings.TrimSpace(value))) {
	case "", ZNumberingOneBased:
		return ZNumberingOneBased, nil
	case ZNumberingZeroBased:
		return ZNumberingZeroBased, nil
	default:
		return "", fmt.Errorf("topology: unknown z numbering %q", value)
	}
}

// Layer describes the geometry of one barrel layer.
type Layer struct {
	Name       string
	Ladders    int
	ZPositions int // per side
	TBMs       int
	Numbering  ZNumbering
}

// Validate reports geometry that cannot be addressed.
func (l Layer) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("topology: layer name is required")
	}
	if l.Ladders < 1 {
		return fmt.Errorf("topology: layer %s: ladders must be >= 1", l.Name)
	}
	if l.ZPositions < 1 {
		return fmt.Errorf("topology: layer %s: z positions must be >= 1", l.Name)
	}
	if l.TBMs < 1 {
		return fmt.Errorf("topology: layer %s: tbms must be >= 1", l.Name)
	}
	return nil
}

// SlotsPerLadder is the number of addressable Z slots on one ladder.
func (l Layer) SlotsPerLadder() int {
	return 2 * l.ZPositions
}

// Contains reports whether (ladder, z) addresses a slot of this layer.
func (l Layer) Contains(ladder, z int) bool {
	return ladder >= 0 && ladder < l.Ladders && z >= 0 && z < l.SlotsPerLadder()
}

// SideOf returns the half of the ladder a Z index belongs to.
func (l Layer) SideOf(z int) Side {
	if z < l.ZPositions {
		return SideMinus
	}
	return SidePlus
}

// ZPositionLabel names a Z index, e.g. "Z4-" or "Z1+".
func (l Layer) ZPositionLabel(z int) string {
	if l.Numbering == ZNumberingZeroBased {
		if z < l.ZPositions {
			return fmt.Sprintf("Z%d-", l.ZPositions-z-1)
		}
		return fmt.Sprintf("Z%d+", z-l.ZPositions)
	}
	if z < l.ZPositions {
		return fmt.Sprintf("Z%d-", l.ZPositions-z)
	}
	return fmt.Sprintf("Z%d+", z-l.ZPositions+1)
}

// ZPositionLabels returns the labels for every slot of a ladder, minus side first.
func (l Layer) ZPositionLabels() []string {
	labels := make([]string, l.SlotsPerLadder())
	for z := range labels {
		labels[z] = l.ZPositionLabel(z)
	}
	return labels
}

// HalfLadderSlots returns the Z indices of one side in ascending order.
func (l Layer) HalfLadderSlots(ladder int, side Side) []int {
	start := 0
	if side == SidePlus {
		start = l.ZPositions
	}
	slots := make([]int, l.ZPositions)
	for i := range slots {
		slots[i] = start + i
	}
	return slots
}

// LadderName is the 1-based display name of a ladder.
func (l Layer) LadderName(ladder int) string {
	return fmt.Sprintf("L%d", ladder+1)
}

// HalfLadderName is e.g. "L3-" for the minus side of the third ladder.
func (l Layer) HalfLadderName(ladder int, side Side) string {
	return l.LadderName(ladder) + side.String()
}

// ValidModuleIDShape reports whether raw is "M" followed by one or more digits.
func ValidModuleIDShape(raw string) bool {
	if len(raw) < 2 || raw[0] != 'M' {
		return false
	}
	for _, r := range raw[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatModuleName renders a stored ID for display. Foreign or corrupt
// values never raise; they collapse to a placeholder.
func FormatModuleName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EmptyPlaceholder
	}
	if ValidModuleIDShape(trimmed) {
		return trimmed
	}
	return UnrecognizedPlaceholder
}

// NormalizeBarcode fixes scanner input: some barcode labels print a
// leading "D" where the ID starts with "M".
func NormalizeBarcode(raw string) string {
	id := strings.TrimSpace(raw)
	if strings.HasPrefix(id, "D") {
		id = "M" + id[1:]
	}
	return id
}
