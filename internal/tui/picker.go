package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// optionItem implements list.Item for an Option.
type optionItem struct {
	Option
}

func (i optionItem) Title() string {
	if i.Hotkey == "" {
		return i.Option.Title
	}
	return fmt.Sprintf("[%s] %s", i.Hotkey, i.Option.Title)
}

func (i optionItem) Description() string { return i.Desc }
func (i optionItem) FilterValue() string { return i.Option.Title }

// pickerModel is a one-shot menu: it quits as soon as something is chosen
// or the operator backs out.
type pickerModel struct {
	list    list.Model
	options []Option
	chosen  int
}

func newPicker(title string, options []Option, width int, colors bool) pickerModel {
	items := make([]list.Item, len(options))
	showDesc := false
	for i, opt := range options {
		items[i] = optionItem{opt}
		if opt.Desc != "" {
			showDesc = true
		}
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = showDesc
	if !colors {
		delegate.Styles = list.NewDefaultItemStyles()
		delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.UnsetForeground().UnsetBorderForeground()
		delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.UnsetForeground().UnsetBorderForeground()
	}
	height := len(options)*delegate.Height() + len(options)*delegate.Spacing() + 4
	l := list.New(items, delegate, max(20, width), height)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return pickerModel{list: l, options: options, chosen: -1}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "esc":
			m.chosen = -1
			return m, tea.Quit
		case "enter":
			m.chosen = m.list.Index()
			return m, tea.Quit
		}
		for i, opt := range m.options {
			if opt.Hotkey != "" && opt.Hotkey == key {
				m.chosen = i
				return m, tea.Quit
			}
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}
