package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const cellWidth = 9

// gridModel lets the operator walk a ladder x slot grid with the arrow
// keys (or hjkl) and pick one cell.
type gridModel struct {
	title     string
	header    []string
	rowLabels []string
	cells     [][]string
	styles    Styles

	row, col int
	done     bool
}

func newGrid(title string, header, rowLabels []string, cells [][]string, styles Styles) gridModel {
	return gridModel{title: title, header: header, rowLabels: rowLabels, cells: cells, styles: styles}
}

func (m gridModel) Init() tea.Cmd { return nil }

func (m gridModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.done = false
		return m, tea.Quit
	case "enter", " ":
		m.done = true
		return m, tea.Quit
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < len(m.cells)-1 {
			m.row++
		}
	case "left", "h":
		if m.col > 0 {
			m.col--
		}
	case "right", "l":
		if m.col < len(m.cells[m.row])-1 {
			m.col++
		}
	case "home":
		m.col = 0
	case "end":
		m.col = max(0, len(m.cells[m.row])-1)
	}
	if n := len(m.cells[m.row]); m.col >= n {
		m.col = max(0, n-1)
	}
	return m, nil
}

func (m gridModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(m.styles.Title.Render(m.title))
		b.WriteString("\n")
	}
	labelWidth := 0
	for _, l := range m.rowLabels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}
	labelWidth += 2
	if len(m.header) > 0 {
		b.WriteString(strings.Repeat(" ", labelWidth))
		for _, h := range m.header {
			b.WriteString(pad(h, cellWidth))
		}
		b.WriteString("\n")
	}
	for r, row := range m.cells {
		label := ""
		if r < len(m.rowLabels) {
			label = m.rowLabels[r]
		}
		b.WriteString(pad(label, labelWidth))
		for c, cell := range row {
			text := pad(cell, cellWidth)
			if r == m.row && c == m.col {
				text = m.styles.Cursor.Render(pad("["+cell+"]", cellWidth))
			}
			b.WriteString(text)
		}
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Muted.Render("arrows/hjkl move, enter select, esc back"))
	return b.String()
}

// pad left-aligns s in a field of width runes.
func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
