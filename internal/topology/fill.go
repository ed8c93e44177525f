package topology

import (
	"fmt"
	"strings"
)

// FillDirection controls the order in which a half-ladder is scanned when
// the crew mounts modules one after another.
type FillDirection string

const (
	FillInwards     FillDirection = "inwards"
	FillOutwards    FillDirection = "outwards"
	FillLeftToRight FillDirection = "lefttoright"
	FillRightToLeft FillDirection = "righttoleft"
)

// FillDirections lists the accepted values in menu order.
var FillDirections = []FillDirection{FillInwards, FillOutwards, FillLeftToRight, FillRightToLeft}

// ParseFillDirection accepts one of the FillDirections, case-insensitively.
// An empty value defaults to inwards.
func ParseFillDirection(value string) (FillDirection, error) {
	v := FillDirection(strings.ToLower(strings.TrimSpace(value)))
	if v == "" {
		return FillInwards, nil
	}
	for _, d := range FillDirections {
		if v == d {
			return d, nil
		}
	}
	return "", fmt.Errorf("topology: unknown fill direction %q", value)
}

// Arrows is the short pictogram shown next to the setting.
func (d FillDirection) Arrows() string {
	switch d {
	case FillOutwards:
		return "<- ->"
	case FillLeftToRight:
		return "-> ->"
	case FillRightToLeft:
		return "<- <-"
	default:
		return "-> <-"
	}
}

// FillOrder returns the Z indices of a half-ladder in scan order.
//
// Inwards starts at the outer end of each side and walks towards the
// centre of the ladder, outwards does the reverse. The left/right variants
// ignore the ladder centre and walk the whole grid row in one direction.
func (l Layer) FillOrder(ladder int, side Side, dir FillDirection) []int {
	slots := l.HalfLadderSlots(ladder, side)
	switch dir {
	case FillLeftToRight:
		return slots
	case FillRightToLeft:
		return reversed(slots)
	case FillOutwards:
		if side == SideMinus {
			return reversed(slots)
		}
		return slots
	default:
		if side == SideMinus {
			return slots
		}
		return reversed(slots)
	}
}

func reversed(in []int) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
