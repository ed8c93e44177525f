package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/bpixm/internal/reconcile"
	"github.com/kingrea/bpixm/internal/revision"
	"github.com/kingrea/bpixm/internal/session"
	"github.com/kingrea/bpixm/internal/slots"
	"github.com/kingrea/bpixm/internal/topology"
)

// hubIDBits is the number of jumpers that encode one hub ID.
const hubIDBits = 5

func ladderLabels(layer topology.Layer) []string {
	labels := make([]string, layer.Ladders)
	for i := range labels {
		labels[i] = layer.LadderName(i)
	}
	return labels
}

func moduleCells(m *slots.Matrix) [][]string {
	rows := m.Rows()
	for _, row := range rows {
		for z, id := range row {
			row[z] = topology.FormatModuleName(id)
		}
	}
	return rows
}

// halfLadderCells shows each ladder as two cells, minus side then plus side.
func halfLadderCells(m *slots.Matrix) (header []string, cells [][]string) {
	layer := m.Layer()
	header = []string{"minus side", "plus side"}
	cells = make([][]string, layer.Ladders)
	for l := range cells {
		for _, side := range []topology.Side{topology.SideMinus, topology.SidePlus} {
			ids := m.Slice(l, side)
			names := make([]string, len(ids))
			for i, id := range ids {
				names[i] = topology.FormatModuleName(id)
			}
			cells[l] = append(cells[l], strings.Join(names, " "))
		}
	}
	return header, cells
}

// renderTable lays out a layer grid with ladder labels and Z headers.
func renderTable(layer topology.Layer, cell func(l, z int) string) string {
	var b strings.Builder
	b.WriteString(pad("", 6))
	for _, label := range layer.ZPositionLabels() {
		b.WriteString(pad(label, cellWidth))
	}
	b.WriteString("\n")
	for l := 0; l < layer.Ladders; l++ {
		b.WriteString(pad(layer.LadderName(l), 6))
		for z := 0; z < layer.SlotsPerLadder(); z++ {
			b.WriteString(cell(l, z))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderModules renders one matrix as a table of module names.
func RenderModules(m *slots.Matrix) string {
	return renderTable(m.Layer(), func(l, z int) string {
		return pad(topology.FormatModuleName(m.At(slots.Address{Ladder: l, Z: z})), cellWidth)
	})
}

// RenderStatus renders the mounted matrix colored by its agreement with the plan.
func RenderStatus(plan, mounted *slots.Matrix, styles Styles) string {
	statuses := reconcile.DiffLayer(plan, mounted)
	counts := map[reconcile.SlotStatus]int{}
	table := renderTable(mounted.Layer(), func(l, z int) string {
		status := statuses[l][z]
		counts[status]++
		name := topology.FormatModuleName(mounted.At(slots.Address{Ladder: l, Z: z}))
		if status == reconcile.StatusPlannedOnly {
			name = "(" + topology.FormatModuleName(plan.At(slots.Address{Ladder: l, Z: z})) + ")"
		}
		return styles.Status(status).Render(pad(name, cellWidth))
	})
	var legend []string
	for _, status := range []reconcile.SlotStatus{
		reconcile.StatusMatch, reconcile.StatusMismatch, reconcile.StatusMountedUnplanned,
		reconcile.StatusPlannedOnly, reconcile.StatusEmpty,
	} {
		legend = append(legend, styles.Status(status).Render(fmt.Sprintf("%s: %d", status, counts[status])))
	}
	return table + "\n" + strings.Join(legend, "  ")
}

// RenderHubIDs renders the hub ID grid of a matrix.
func RenderHubIDs(m *slots.Matrix) string {
	return renderTable(m.Layer(), func(l, z int) string {
		ids := slots.FormatHubIDs(m.HubIDsAt(slots.Address{Ladder: l, Z: z}))
		if ids == "" {
			ids = "?"
		}
		return pad(ids, cellWidth)
	})
}

// RenderJumpers draws the hub ID jumper settings of one slot, least
// significant bit first. A closed jumper marks a set bit.
func RenderJumpers(ids slots.HubIDs) string {
	var b strings.Builder
	for tbm, id := range ids {
		fmt.Fprintf(&b, "TBM %d of %d => HUB ID = %d\n", tbm+1, len(ids), id)
		if id == slots.UnknownHubID {
			b.WriteString("  unknown\n")
			continue
		}
		for bit := 0; bit < hubIDBits; bit++ {
			if (id>>bit)&1 == 1 {
				fmt.Fprintf(&b, "%d   O------O\n", bit)
			} else {
				fmt.Fprintf(&b, "%d   O      O  <<\n", bit)
			}
		}
	}
	return b.String()
}

// RenderRevisions lists revisions, marking HEAD and the current one.
func RenderRevisions(revs []revision.Summary, current int) string {
	var b strings.Builder
	for _, r := range revs {
		marker := " "
		if r.Number == current {
			marker = "*"
		}
		line := fmt.Sprintf("%s REV %d: %s", marker, r.Number, r.Date())
		if r.Head {
			line += " (HEAD)"
		}
		if r.Tag != "" {
			line += fmt.Sprintf(" %q", r.Tag)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RenderSearch formats a search result.
func RenderSearch(r session.SearchResult) string {
	join := func(ps []session.Position) string {
		if len(ps) == 0 {
			return "-"
		}
		parts := make([]string, len(ps))
		for i, p := range ps {
			parts[i] = p.String()
		}
		return strings.Join(parts, ", ")
	}
	rows := [][2]string{
		{"MODULE:", r.ID},
		{"STORAGE:", r.Location},
		{"PLAN POSITION:", join(r.Planned)},
		{"MOUNTED AT:", join(r.Mounted)},
	}
	var lines []string
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, pad(row[0], 15), row[1]))
	}
	return strings.Join(lines, "\n")
}
