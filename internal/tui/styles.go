package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/bpixm/internal/reconcile"
)

var (
	colorAccent  = lipgloss.Color("#5B8DEF")
	colorAlert   = lipgloss.Color("#FF6B6B")
	colorBorder  = lipgloss.Color("#444444")
	colorMuted   = lipgloss.Color("#888888")
	colorText    = lipgloss.Color("#AAAAAA")
	colorOK      = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
)

// Styles is the palette of one terminal. Without colors every style only
// keeps its layout (borders, padding, bold).
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Cursor  lipgloss.Style
	Box     lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style

	status map[reconcile.SlotStatus]lipgloss.Style
}

// NewStyles builds the palette.
func NewStyles(colors bool) Styles {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	s := Styles{
		Title:   lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle(),
		Cursor:  lipgloss.NewStyle().Reverse(true),
		Box:     box,
		Info:    box,
		Warning: box,
		Error:   box,
		Success: box,
		status:  map[reconcile.SlotStatus]lipgloss.Style{},
	}
	if !colors {
		return s
	}
	s.Title = s.Title.Foreground(colorAccent)
	s.Muted = s.Muted.Foreground(colorMuted)
	s.Cursor = s.Cursor.Foreground(colorAccent)
	s.Box = box.BorderForeground(colorBorder)
	s.Info = box.BorderForeground(colorAccent)
	s.Warning = box.BorderForeground(colorWarning)
	s.Error = box.BorderForeground(colorAlert)
	s.Success = box.BorderForeground(colorOK)
	s.status[reconcile.StatusMatch] = lipgloss.NewStyle().Foreground(colorOK)
	s.status[reconcile.StatusMismatch] = lipgloss.NewStyle().Foreground(colorAlert).Bold(true)
	s.status[reconcile.StatusMountedUnplanned] = lipgloss.NewStyle().Foreground(colorWarning)
	s.status[reconcile.StatusPlannedOnly] = lipgloss.NewStyle().Foreground(colorText)
	return s
}

// Status returns the style of a slot in the status view.
func (s Styles) Status(status reconcile.SlotStatus) lipgloss.Style {
	if style, ok := s.status[status]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// Notice picks the box for a notification kind.
func (s Styles) Notice(kind NoticeKind) lipgloss.Style {
	switch kind {
	case NoticeWarning:
		return s.Warning
	case NoticeError:
		return s.Error
	case NoticeSuccess:
		return s.Success
	default:
		return s.Info
	}
}
