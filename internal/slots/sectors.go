package slots

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Sectors maps a sector ID to the 0-based ladder indices it groups.
// The file lists ladders 1-based, the way they are labelled on screen.
type Sectors map[int][]int

// ParseSectors reads lines of the form "sectorID : n1,n2,...". Blank lines
// are ignored; malformed lines are reported and skipped.
func ParseSectors(r io.Reader, ladders int) (Sectors, LoadReport, error) {
	sectors := Sectors{}
	var report LoadReport
	err := eachLine(r, func(index int, line string) {
		if strings.TrimSpace(line) == "" {
			return
		}
		reject := func(reason string) {
			report.Rejected = append(report.Rejected, &FormatError{
				Source: "sectors", Line: index + 1, Reason: reason, Text: line,
			})
		}
		head, tail, ok := strings.Cut(line, ":")
		if !ok {
			reject("missing ':'")
			return
		}
		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			reject("sector id is not an integer")
			return
		}
		var members []int
		for _, part := range strings.Split(tail, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				reject(fmt.Sprintf("ladder %q is not an integer", part))
				return
			}
			if n < 1 || n > ladders {
				reject(fmt.Sprintf("ladder %d outside 1..%d", n, ladders))
				return
			}
			members = append(members, n-1)
		}
		sectors[id] = members
		report.Applied++
	})
	if err != nil {
		return sectors, report, fmt.Errorf("slots: read sectors: %w", err)
	}
	return sectors, report, nil
}

// SectorOf returns the sector a ladder belongs to.
func (s Sectors) SectorOf(ladder int) (int, bool) {
	for _, id := range s.IDs() {
		for _, member := range s[id] {
			if member == ladder {
				return id, true
			}
		}
	}
	return 0, false
}

// IDs returns the sector IDs in ascending order.
func (s Sectors) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
