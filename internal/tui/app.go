// internal/tui/app.go
//
// The operator menus. Every screen is a short conversation with the
// Prompter: pick something, scan or type something, confirm. All state
// lives in the session; the App only decides what to ask next.

package tui

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/kingrea/bpixm/internal/locations"
	"github.com/kingrea/bpixm/internal/logbook"
	"github.com/kingrea/bpixm/internal/revision"
	"github.com/kingrea/bpixm/internal/session"
	"github.com/kingrea/bpixm/internal/slots"
	"github.com/kingrea/bpixm/internal/topology"
)

// revisionListLimit caps the revision menus.
const revisionListLimit = 20

type action func() error

// App runs the main menu until the operator quits.
type App struct {
	session *session.Session
	ui      Prompter
	styles  Styles

	// hold keeps the last output on screen for the next menu.
	hold bool
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithStyles overrides the palette used for rendered views.
func WithStyles(styles Styles) AppOption {
	return func(a *App) { a.styles = styles }
}

// NewApp creates the menus for s, talking through ui.
func NewApp(s *session.Session, ui Prompter, opts ...AppOption) *App {
	app := &App{session: s, ui: ui, styles: NewStyles(s.Config().Colors())}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

func mainMenu() []Option {
	return []Option{
		{Key: "mount", Title: "mount half ladder", Hotkey: "m"},
		{Key: "replace", Title: "replace single module", Hotkey: "r"},
		{Key: "clear", Title: "clear half ladder", Hotkey: "c"},
		{Key: "unmount", Title: "clear single module", Hotkey: "d"},
		{Key: "status", Title: "view mounting status", Hotkey: "s"},
		{Key: "plan", Title: "view plan", Hotkey: "p"},
		{Key: "hubids", Title: "view hub IDs", Hotkey: "i"},
		{Key: "search", Title: "search module", Hotkey: "f"},
		{Key: "log", Title: "write to log", Hotkey: "o"},
		{Key: "comment", Title: "comment on module", Hotkey: "e"},
		{Key: "save", Title: "save", Hotkey: "w"},
		{Key: "fork", Title: "new revision", Hotkey: "n"},
		{Key: "revs", Title: "show revisions", Hotkey: "v"},
		{Key: "switch", Title: "select revision", Hotkey: "x"},
		{Key: "tag", Title: "tag revision", Hotkey: "t"},
		{Key: "layer", Title: "select layer", Hotkey: "y"},
		{Key: "settings", Title: "settings", Hotkey: "g"},
		{Key: "quit", Title: "quit", Hotkey: "q"},
	}
}

// Run shows the main menu until the operator quits.
func (a *App) Run() error {
	actions := map[string]action{
		"mount":    a.mountHalfLadder,
		"replace":  a.replaceModule,
		"clear":    a.clearHalfLadder,
		"unmount":  a.clearModule,
		"status":   a.viewStatus,
		"plan":     a.viewPlan,
		"hubids":   a.viewHubIDs,
		"search":   a.search,
		"log":      a.writeLog,
		"comment":  a.commentModule,
		"save":     a.save,
		"fork":     a.fork,
		"revs":     a.showRevisions,
		"switch":   a.selectRevision,
		"tag":      a.tagRevision,
		"layer":    a.selectLayer,
		"settings": a.settings,
	}
	for {
		if !a.hold {
			a.ui.Clear()
		}
		a.hold = false
		choice, err := a.ui.PickOne(a.title(), mainMenu())
		if errors.Is(err, ErrCancelled) {
			choice = "quit"
		} else if err != nil {
			return err
		}
		if choice == "quit" {
			done, err := a.quit()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			continue
		}
		if err := actions[choice](); err != nil && !errors.Is(err, ErrCancelled) {
			a.ui.Notify(NoticeError, err.Error())
			a.hold = true
		}
	}
}

func (a *App) title() string {
	status, err := a.session.RevisionStatus()
	if err != nil {
		status = err.Error()
	}
	layer := "?"
	if l, err := a.session.ActiveLayer(); err == nil {
		layer = l.Topology.Name
	}
	title := fmt.Sprintf("bpixm · layer %s · %s · operator %s", layer, status, a.session.Operator())
	if a.session.Dirty() {
		title += " · UNSAVED"
	}
	return title
}

func (a *App) show(title, body string) {
	a.ui.Show(title, body)
	a.hold = true
}

// pickHalfLadder asks for a ladder and a side of the active layer.
func (a *App) pickHalfLadder(title string) (int, topology.Side, error) {
	layer, err := a.session.ActiveLayer()
	if err != nil {
		return 0, 0, err
	}
	header, cells := halfLadderCells(layer.Mounted)
	row, col, err := a.ui.PickCell(title, header, ladderLabels(layer.Topology), cells)
	if err != nil {
		return 0, 0, err
	}
	return row, topology.Side(col), nil
}

// pickSlot asks for a single slot of the active layer.
func (a *App) pickSlot(title string) (slots.Address, error) {
	layer, err := a.session.ActiveLayer()
	if err != nil {
		return slots.Address{}, err
	}
	row, col, err := a.ui.PickCell(title, layer.Topology.ZPositionLabels(), ladderLabels(layer.Topology), moduleCells(layer.Mounted))
	if err != nil {
		return slots.Address{}, err
	}
	return slots.Address{Ladder: row, Z: col}, nil
}

func (a *App) mountHalfLadder() error {
	ladder, side, err := a.pickHalfLadder("select half ladder to mount")
	if err != nil {
		return err
	}
	if err := a.session.BeginHalfLadder(ladder, side, logbook.CategoryMount); err != nil {
		return err
	}
	seq, err := a.session.FillSequence(ladder, side)
	if err != nil {
		return err
	}
	for _, addr := range seq {
		stop, err := a.mountSlot(addr)
		if err != nil {
			return err
		}
		if stop {
			break
		}
	}
	a.showHalfLadder(ladder, side)
	return nil
}

func (a *App) replaceModule() error {
	addr, err := a.pickSlot("select module to replace")
	if err != nil {
		return err
	}
	if err := a.session.ReplaceTarget(addr); err != nil {
		return err
	}
	_, err = a.mountSlot(addr)
	return err
}

// mountSlot runs the scan/verify/confirm loop for one slot. stop is true
// when the operator quits the whole sequence.
func (a *App) mountSlot(addr slots.Address) (stop bool, err error) {
	layer, err := a.session.ActiveLayer()
	if err != nil {
		return true, err
	}
	where := layer.Topology.LadderName(addr.Ladder) + " " + layer.Topology.ZPositionLabel(addr.Z)
	for {
		planned := layer.Plan.At(addr)
		current := layer.Mounted.At(addr)
		a.ui.Show("MOUNT "+where, fmt.Sprintf("PLANNED MODULE:   %s\nSTORAGE LOCATION: %s\nINSTALLED:        %s",
			topology.FormatModuleName(planned), a.session.Location(planned), topology.FormatModuleName(current)))

		prompt := fmt.Sprintf("scan module ID for %s (empty to skip, q to quit)", where)
		if current != "" {
			prompt = fmt.Sprintf("scan module ID to replace %s at %s (empty to skip, q to quit)", current, where)
		}
		scanned, err := a.ui.Input(prompt)
		if errors.Is(err, ErrCancelled) || scanned == "q" {
			a.session.Cancel(logbook.CategoryMountModule, "no module scanned, action was cancelled by user!")
			return true, nil
		}
		if err != nil {
			return true, err
		}

		outcome, err := a.session.CheckMount(addr, scanned)
		if err != nil {
			a.ui.Notify(NoticeError, err.Error())
			continue
		}
		if outcome.NoOp {
			return false, nil
		}
		if d := outcome.Divergence; d != nil {
			a.ui.Notify(NoticeWarning, fmt.Sprintf("planning to mount module '%s' instead of '%s' at %s", d.Attempted, d.Planned, where))
			ok, err := a.ui.Confirm("continue with a module that is not in the plan?")
			if err != nil && !errors.Is(err, ErrCancelled) {
				return true, err
			}
			if !ok {
				a.session.Cancel(logbook.CategoryMountModule, "action was cancelled by user!")
				continue
			}
		}

		location := a.session.Location(outcome.Current)
		a.ui.Show("VERIFY MODULE AND CHANGE HUB ID", fmt.Sprintf("MODULE:  %s\nSTORAGE: %s\nLADDER:  %s\n\n%s",
			outcome.Current, location, where, RenderJumpers(layer.Mounted.HubIDsAt(addr))))
		if locations.IsUnknown(location) {
			a.ui.Notify(NoticeWarning, fmt.Sprintf("storage location for module %s is unknown, this module ID might not exist, please check!", outcome.Current))
		}
		ok, err := a.ui.Confirm("mount " + outcome.Current + " here?")
		if err != nil && !errors.Is(err, ErrCancelled) {
			return true, err
		}
		if !ok {
			a.session.Cancel(logbook.CategoryMountModule, "action was cancelled by user!")
			continue
		}
		if _, err := a.session.Mount(addr, scanned); err != nil {
			a.ui.Notify(NoticeError, "could not mount the module here: "+err.Error())
			continue
		}
		a.ui.Notify(NoticeSuccess, "mounted "+outcome.Current+" at "+where)
		return false, nil
	}
}

func (a *App) showHalfLadder(ladder int, side topology.Side) {
	layer, err := a.session.ActiveLayer()
	if err != nil {
		return
	}
	a.show(layer.Topology.HalfLadderName(ladder, side), formatNames(layer.Mounted.Slice(ladder, side)))
}

func (a *App) clearHalfLadder() error {
	ladder, side, err := a.pickHalfLadder("select half ladder to clear")
	if err != nil {
		return err
	}
	ok, err := a.ui.Confirm("clear half ladder?")
	if err != nil {
		return err
	}
	if !ok {
		a.session.Cancel(logbook.CategoryMountClear, "clear cancelled.")
		return nil
	}
	if _, err := a.session.ClearHalfLadder(ladder, side); err != nil {
		return err
	}
	a.showHalfLadder(ladder, side)
	return nil
}

func (a *App) clearModule() error {
	addr, err := a.pickSlot("select module to clear")
	if err != nil {
		return err
	}
	ok, err := a.ui.Confirm("clear this slot?")
	if err != nil {
		return err
	}
	if !ok {
		a.session.Cancel(logbook.CategoryMountClear, "clear cancelled.")
		return nil
	}
	previous, err := a.session.Clear(addr)
	if err != nil {
		return err
	}
	if previous != "" {
		a.ui.Notify(NoticeSuccess, "removed "+previous)
		a.hold = true
	}
	return nil
}

func (a *App) viewStatus() error {
	layer, err := a.session.ActiveLayer()
	if err != nil {
		return err
	}
	a.show("MOUNTING STATUS "+layer.Topology.Name, RenderStatus(layer.Plan, layer.Mounted, a.styles))
	return nil
}

func (a *App) viewPlan() error {
	layer, err := a.session.ActiveLayer()
	if err != nil {
		return err
	}
	a.show("PLAN "+layer.Topology.Name, RenderModules(layer.Plan))
	return nil
}

func (a *App) viewHubIDs() error {
	layer, err := a.session.ActiveLayer()
	if err != nil {
		return err
	}
	a.show("HUB IDS "+layer.Topology.Name, RenderHubIDs(layer.Mounted))
	return nil
}

func (a *App) search() error {
	id, err := a.ui.Input("enter or scan module ID")
	if err != nil {
		return err
	}
	result, err := a.session.Search(id)
	if err != nil {
		return err
	}
	a.show("SEARCH RESULTS", RenderSearch(result))
	if result.LocationUnknown() {
		a.ui.Notify(NoticeWarning, fmt.Sprintf("storage location for module %s is unknown, this module ID might not exist, please check!", result.ID))
	}
	return nil
}

// readLines collects input lines until an empty one.
func (a *App) readLines(prompt string) ([]string, error) {
	var lines []string
	for {
		line, err := a.ui.Input(prompt)
		if errors.Is(err, ErrCancelled) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

func (a *App) writeLog() error {
	lines, err := a.readLines("line to write to the log (empty to finish)")
	if err != nil {
		return err
	}
	if n := a.session.LogUser(lines); n > 0 {
		a.ui.Notify(NoticeSuccess, fmt.Sprintf("%d line(s) logged", n))
		a.hold = true
	}
	return nil
}

func (a *App) commentModule() error {
	addr, err := a.pickSlot("select module to add comment")
	if err != nil {
		return err
	}
	lines, err := a.readLines("comment (empty to finish)")
	if err != nil {
		return err
	}
	return a.session.CommentModule(addr, lines)
}

func (a *App) save() error {
	if err := a.session.Save(); err != nil {
		return err
	}
	a.ui.Notify(NoticeSuccess, "saved")
	a.hold = true
	return nil
}

func (a *App) fork() error {
	ok, err := a.ui.Confirm("save and create a new revision?")
	if err != nil || !ok {
		return err
	}
	next, err := a.session.Fork()
	if err != nil {
		return err
	}
	a.ui.Notify(NoticeSuccess, fmt.Sprintf("created REV %d, now working on it", next))
	a.hold = true
	return nil
}

func (a *App) showRevisions() error {
	revs, err := a.session.Revisions(revisionListLimit)
	if err != nil {
		return err
	}
	a.show("REVISIONS", RenderRevisions(revs, a.session.Revision().Number))
	return nil
}

func (a *App) selectRevision() error {
	revs, err := a.session.Revisions(revisionListLimit)
	if err != nil {
		return err
	}
	options := make([]Option, len(revs))
	for i, r := range revs {
		title := fmt.Sprintf("REV %d: %s", r.Number, r.Date())
		if r.Head {
			title += " (HEAD)"
		}
		options[i] = Option{Key: strconv.Itoa(r.Number), Title: title, Desc: r.Tag}
	}
	choice, err := a.ui.PickOne("select revision", options)
	if err != nil {
		return err
	}
	n, _ := strconv.Atoi(choice)
	discard := revision.KeepUnsaved
	if a.session.Dirty() {
		ok, err := a.ui.Confirm("discard unsaved changes?")
		if err != nil || !ok {
			return err
		}
		discard = revision.DiscardUnsaved
	}
	if err := a.session.SwitchTo(n, discard); err != nil {
		return err
	}
	a.ui.Notify(NoticeSuccess, fmt.Sprintf("switched to REV %d", n))
	a.hold = true
	return nil
}

func (a *App) tagRevision() error {
	tag, err := a.ui.Input("tag for REV " + strconv.Itoa(a.session.Revision().Number))
	if err != nil {
		return err
	}
	return a.session.SetTag(tag)
}

func (a *App) selectLayer() error {
	rev := a.session.Revision()
	var options []Option
	for i, name := range rev.LayerNames() {
		options = append(options, Option{Key: name, Title: name, Hotkey: strconv.Itoa(i + 1)})
	}
	choice, err := a.ui.PickOne("select layer", options)
	if err != nil {
		return err
	}
	return a.session.SelectLayer(choice)
}

func (a *App) settings() error {
	cfg := a.session.Config()
	autosave := "off"
	if cfg.Autosave() {
		autosave = "on"
	}
	choice, err := a.ui.PickOne("settings", []Option{
		{Key: "operator", Title: "operator: " + a.session.Operator(), Hotkey: "o"},
		{Key: "fill", Title: fmt.Sprintf("fill direction: %s %s", cfg.FillDirection(), cfg.FillDirection().Arrows()), Hotkey: "f"},
		{Key: "autosave", Title: "autosave: " + autosave, Hotkey: "a"},
		{Key: "back", Title: "back", Hotkey: "b"},
	})
	if err != nil {
		return err
	}
	switch choice {
	case "operator":
		name, err := a.ui.Input("new operator (currently " + a.session.Operator() + ")")
		if err != nil {
			return err
		}
		return a.session.SetOperator(name)
	case "fill":
		var options []Option
		for _, dir := range topology.FillDirections {
			options = append(options, Option{Key: string(dir), Title: string(dir) + " " + dir.Arrows()})
		}
		dir, err := a.ui.PickOne("fill direction", options)
		if err != nil {
			return err
		}
		return a.session.SetFillDirection(topology.FillDirection(dir))
	case "autosave":
		_, err := a.session.ToggleAutosave()
		return err
	}
	return nil
}

// quit returns true when the program should exit.
func (a *App) quit() (bool, error) {
	if !a.session.Dirty() {
		return true, nil
	}
	choice, err := a.ui.PickOne("there are unsaved changes", []Option{
		{Key: "save", Title: "save and quit", Hotkey: "s"},
		{Key: "discard", Title: "quit without saving", Hotkey: "d"},
		{Key: "back", Title: "back to menu", Hotkey: "b"},
	})
	if errors.Is(err, ErrCancelled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch choice {
	case "save":
		if err := a.session.Save(); err != nil {
			a.ui.Notify(NoticeError, err.Error())
			a.hold = true
			return false, nil
		}
		return true, nil
	case "discard":
		return true, nil
	}
	return false, nil
}

func formatNames(ids []string) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = topology.FormatModuleName(id)
	}
	return fmt.Sprint(names)
}
