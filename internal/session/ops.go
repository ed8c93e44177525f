package session

import (
	"fmt"
	"strings"

	"github.com/kingrea/bpixm/internal/locations"
	"github.com/kingrea/bpixm/internal/logbook"
	"github.com/kingrea/bpixm/internal/revision"
	"github.com/kingrea/bpixm/internal/slots"
	"github.com/kingrea/bpixm/internal/topology"
)

// Position is a slot named across layers.
type Position struct {
	Layer   string
	Address slots.Address
	Ladder  string
	Z       string
}

func (p Position) String() string {
	return fmt.Sprintf("%s LADDER %s %s", p.Layer, strings.TrimPrefix(p.Ladder, "L"), p.Z)
}

// SearchResult tells where a module is stored, planned and mounted.
type SearchResult struct {
	ID       string
	Location string
	Planned  []Position
	Mounted  []Position
}

// LocationUnknown reports that the storage index does not place the module.
func (r SearchResult) LocationUnknown() bool {
	return locations.IsUnknown(r.Location)
}

// Search looks a module up in the storage index and in every layer.
func (s *Session) Search(scanned string) (SearchResult, error) {
	rev := s.revs.Current()
	if rev == nil {
		return SearchResult{}, revision.ErrNotLoaded
	}
	id := topology.NormalizeBarcode(scanned)
	s.log(logbook.CategorySearch, "Search for module: "+id)
	result := SearchResult{ID: id, Location: rev.Locations.Lookup(id)}
	if result.LocationUnknown() {
		s.log(logbook.CategoryWarning, fmt.Sprintf("Storage location for module %s is unknown, this module ID might not exist", id))
	}
	if id == "" {
		return result, nil
	}
	for _, name := range rev.LayerNames() {
		data, _ := rev.Layer(name)
		result.Planned = append(result.Planned, positions(data.Topology, data.Plan.FindAll(id))...)
		result.Mounted = append(result.Mounted, positions(data.Topology, data.Mounted.FindAll(id))...)
	}
	return result, nil
}

func positions(layer topology.Layer, addrs []slots.Address) []Position {
	out := make([]Position, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, Position{
			Layer:   layer.Name,
			Address: a,
			Ladder:  layer.LadderName(a.Ladder),
			Z:       layer.ZPositionLabel(a.Z),
		})
	}
	return out
}

// LogUser writes free text to the revision log, one entry per non-blank line.
func (s *Session) LogUser(lines []string) int {
	written := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.log(logbook.CategoryUser, line)
		written++
	}
	return written
}

// CommentModule attaches a comment to the module at addr of the active layer.
func (s *Session) CommentModule(addr slots.Address, lines []string) error {
	layer, err := s.ActiveLayer()
	if err != nil {
		return err
	}
	if !layer.Mounted.Contains(addr) {
		return fmt.Errorf("session: comment: %s outside layer %s", addr, layer.Topology.Name)
	}
	var parts []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	module := layer.Mounted.At(addr)
	if module == "" {
		module = "----"
	}
	s.log(logbook.CategoryModuleComment, fmt.Sprintf("%s/%s/%s/%s: %s",
		layer.Topology.Name, layer.Topology.LadderName(addr.Ladder), layer.Topology.ZPositionLabel(addr.Z),
		module, strings.Join(parts, ", ")))
	return nil
}

// Save writes the current revision.
func (s *Session) Save() error {
	rev := s.revs.Current()
	if err := s.revs.Save(); err != nil {
		s.logger.Errorf("save revision: %v", err)
		return fmt.Errorf("session: save: %w", err)
	}
	for _, name := range rev.LayerNames() {
		s.log(logbook.CategoryConfig, "saved configuration for "+name)
	}
	return nil
}

// Fork saves and copies the current revision to a new HEAD.
func (s *Session) Fork() (int, error) {
	next, err := s.revs.Fork()
	if err != nil {
		s.logger.Errorf("fork: %v", err)
		return 0, fmt.Errorf("session: fork: %w", err)
	}
	s.logger.Printf("forked revision %d", next)
	return next, nil
}

// SwitchTo opens another revision. See revision.Manager.SwitchTo for the
// unsaved-changes rule.
func (s *Session) SwitchTo(n int, discard revision.DiscardToken) error {
	old := 0
	if cur := s.revs.Current(); cur != nil {
		old = cur.Number
	}
	if err := s.revs.SwitchTo(n, discard); err != nil {
		return fmt.Errorf("session: switch: %w", err)
	}
	s.logger.Printf("switched from revision %d to %d", old, n)
	s.log(logbook.CategoryRevision, fmt.Sprintf("switched to this REV from REV %d, operator: %s", old, s.Operator()))
	return nil
}

// Revisions lists the newest revisions.
func (s *Session) Revisions(limit int) ([]revision.Summary, error) {
	return s.revs.List(limit)
}

// Head is the newest revision number.
func (s *Session) Head() (int, error) {
	return s.revs.Head()
}

// RevisionStatus describes the current revision relative to HEAD, e.g.
// `on REV 3 "survey", BEHIND HEAD (5)`.
func (s *Session) RevisionStatus() (string, error) {
	rev := s.revs.Current()
	if rev == nil {
		return "", revision.ErrNotLoaded
	}
	head, err := s.revs.Head()
	if err != nil {
		return "", err
	}
	state := "HEAD"
	if rev.Number != head {
		state = fmt.Sprintf("BEHIND HEAD (%d)", head)
	}
	return fmt.Sprintf("on REV %d %q, %s", rev.Number, rev.Tag(), state), nil
}

// SetTag labels the current revision.
func (s *Session) SetTag(tag string) error {
	if err := s.revs.SetTag(tag); err != nil {
		return fmt.Errorf("session: tag: %w", err)
	}
	s.log(logbook.CategoryConfig, fmt.Sprintf("tag REV %d: %s", s.revs.Current().Number, s.revs.Current().Tag()))
	return nil
}

// SetOperator changes and persists the operator name.
func (s *Session) SetOperator(name string) error {
	old := s.Operator()
	if err := s.cfg.SetOperator(name); err != nil {
		return fmt.Errorf("session: operator: %w", err)
	}
	s.log(logbook.CategoryLog, fmt.Sprintf("change operator %s -> %s", old, s.Operator()))
	return nil
}

// SetFillDirection changes and persists the half-ladder scan order.
func (s *Session) SetFillDirection(dir topology.FillDirection) error {
	if err := s.cfg.SetFillDirection(dir); err != nil {
		return fmt.Errorf("session: fill direction: %w", err)
	}
	s.log(logbook.CategoryConfig, "fill direction: "+string(dir))
	return nil
}

// ToggleAutosave flips autosave and returns the new state.
func (s *Session) ToggleAutosave() (bool, error) {
	on := !s.cfg.Autosave()
	if err := s.cfg.SetAutosave(on); err != nil {
		return !on, fmt.Errorf("session: autosave: %w", err)
	}
	s.log(logbook.CategoryConfig, fmt.Sprintf("autosave: %t", on))
	return on, nil
}
