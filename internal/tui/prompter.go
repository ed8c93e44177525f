package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// ErrCancelled is returned when the operator backs out of a prompt.
var ErrCancelled = errors.New("tui: cancelled")

// NoticeKind selects how a notification is framed.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "OK"
	case NoticeWarning:
		return "WARNING"
	case NoticeError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Option is one entry of a PickOne menu. Hotkey selects it directly.
type Option struct {
	Key    string
	Title  string
	Desc   string
	Hotkey string
}

// Prompter is everything the menus need from a terminal.
type Prompter interface {
	// PickOne returns the Key of the chosen option.
	PickOne(title string, options []Option) (string, error)
	// PickCell shows a labelled grid and returns the chosen row and column.
	PickCell(title string, header, rowLabels []string, cells [][]string) (row, col int, err error)
	// Input reads one line of text.
	Input(prompt string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(question string) (bool, error)
	// Clear wipes the screen.
	Clear()
	// Notify shows a framed message.
	Notify(kind NoticeKind, msg string)
	// Show prints a titled block of text.
	Show(title, body string)
}

// Terminal implements Prompter with bubbletea programs and huh forms.
type Terminal struct {
	in     io.Reader
	out    io.Writer
	styles Styles
	colors bool
	width  int
}

// NewTerminal creates a prompter reading from in and drawing to out.
func NewTerminal(in io.Reader, out io.Writer, colors bool, width int) *Terminal {
	return &Terminal{in: in, out: out, styles: NewStyles(colors), colors: colors, width: width}
}

// Styles returns the palette used for output.
func (t *Terminal) Styles() Styles { return t.styles }

func (t *Terminal) run(model tea.Model) (tea.Model, error) {
	final, err := tea.NewProgram(model, tea.WithInput(t.in), tea.WithOutput(t.out)).Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	return final, nil
}

// PickOne shows options as a list menu and returns the chosen key.
func (t *Terminal) PickOne(title string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", ErrCancelled
	}
	final, err := t.run(newPicker(title, options, t.width, t.colors))
	if err != nil {
		return "", err
	}
	p := final.(pickerModel)
	if p.chosen < 0 {
		return "", ErrCancelled
	}
	return options[p.chosen].Key, nil
}

// PickCell shows cells as a navigable grid and returns the chosen row and column.
func (t *Terminal) PickCell(title string, header, rowLabels []string, cells [][]string) (int, int, error) {
	if len(cells) == 0 {
		return 0, 0, ErrCancelled
	}
	final, err := t.run(newGrid(title, header, rowLabels, cells, t.styles))
	if err != nil {
		return 0, 0, err
	}
	g := final.(gridModel)
	if !g.done {
		return 0, 0, ErrCancelled
	}
	return g.row, g.col, nil
}

func (t *Terminal) form(field huh.Field) *huh.Form {
	theme := huh.ThemeBase()
	if t.colors {
		theme = huh.ThemeCharm()
	}
	return huh.NewForm(huh.NewGroup(field)).
		WithTheme(theme).
		WithShowHelp(false).
		WithInput(t.in).
		WithOutput(t.out)
}

// Input asks for one line of text, trimmed.
func (t *Terminal) Input(prompt string) (string, error) {
	var value string
	err := t.form(huh.NewInput().Title(prompt).Value(&value)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", ErrCancelled
	}
	if err != nil {
		return "", fmt.Errorf("tui: input: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// Confirm asks a yes/no question.
func (t *Terminal) Confirm(question string) (bool, error) {
	var ok bool
	err := t.form(huh.NewConfirm().Title(question).Affirmative("yes").Negative("no").Value(&ok)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, ErrCancelled
	}
	if err != nil {
		return false, fmt.Errorf("tui: confirm: %w", err)
	}
	return ok, nil
}

// Clear wipes the screen.
func (t *Terminal) Clear() {
	fmt.Fprint(t.out, "\033[H\033[2J")
}

// Notify prints msg in a box framed by kind.
func (t *Terminal) Notify(kind NoticeKind, msg string) {
	box := t.styles.Notice(kind).Width(t.boxWidth())
	fmt.Fprintln(t.out, box.Render(kind.String()+": "+msg))
}

// Show prints body in a box under title.
func (t *Terminal) Show(title, body string) {
	content := t.styles.Title.Render(title) + "\n" + strings.TrimRight(body, "\n")
	fmt.Fprintln(t.out, t.styles.Box.Render(content))
}

func (t *Terminal) boxWidth() int {
	if t.width < 20 {
		return 20
	}
	return t.width - 4
}
