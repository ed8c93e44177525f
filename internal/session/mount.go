package session

import (
	"fmt"
	"strings"

	"github.com/kingrea/bpixm/internal/logbook"
	"github.com/kingrea/bpixm/internal/reconcile"
	"github.com/kingrea/bpixm/internal/slots"
	"github.com/kingrea/bpixm/internal/topology"
)

// BeginHalfLadder records which half-ladder the operator starts working on
// and what is installed there.
func (s *Session) BeginHalfLadder(ladder int, side topology.Side, category logbook.Category) error {
	layer, err := s.ActiveLayer()
	if err != nil {
		return err
	}
	if ladder < 0 || ladder >= layer.Topology.Ladders {
		return fmt.Errorf("session: ladder %d outside layer %s", ladder, layer.Topology.Name)
	}
	s.log(category, fmt.Sprintf("Layer: %s, Ladder: %s", layer.Topology.Name, layer.Topology.HalfLadderName(ladder, side)))
	s.log(category, "Currently installed modules: "+formatSlice(layer.Mounted.Slice(ladder, side)))
	return nil
}

// FillSequence returns the slots of a half-ladder in the configured scan
// order.
func (s *Session) FillSequence(ladder int, side topology.Side) ([]slots.Address, error) {
	layer, err := s.ActiveLayer()
	if err != nil {
		return nil, err
	}
	if ladder < 0 || ladder >= layer.Topology.Ladders {
		return nil, fmt.Errorf("session: ladder %d outside layer %s", ladder, layer.Topology.Name)
	}
	order := layer.Topology.FillOrder(ladder, side, s.cfg.FillDirection())
	out := make([]slots.Address, len(order))
	for i, z := range order {
		out[i] = slots.Address{Ladder: ladder, Z: z}
	}
	return out, nil
}

// CheckMount validates a scanned ID for addr without changing anything.
// The scan and the verdict are logged.
func (s *Session) CheckMount(addr slots.Address, scanned string) (reconcile.MountOutcome, error) {
	layer, err := s.ActiveLayer()
	if err != nil {
		return reconcile.MountOutcome{}, err
	}
	id := topology.NormalizeBarcode(scanned)
	if layer.Mounted.Contains(addr) {
		planned := layer.Plan.At(addr)
		s.log(logbook.CategoryMountModule, fmt.Sprintf("L: %d, Z: %d, Plan: %s (in %s), Scanned: %s",
			addr.Ladder+1, addr.Z, topology.FormatModuleName(planned), s.Location(planned), id))
	}
	outcome, err := s.engine.Check(layer.Mounted, layer.Plan, addr, id)
	if err != nil {
		s.log(logbook.CategoryError, err.Error())
		return outcome, err
	}
	if outcome.NoOp {
		return outcome, nil
	}
	s.log(logbook.CategoryMountModule, fmt.Sprintf("OK: The module %s can be mounted here.", id))
	if d := outcome.Divergence; d != nil {
		s.log(logbook.CategoryWarning, fmt.Sprintf("planning to mount module '%s' instead of '%s' at position z=%s",
			d.Attempted, d.Planned, layer.Topology.ZPositionLabel(addr.Z)))
	}
	s.log(logbook.CategoryMountModule, "HUB-IDS: "+slots.FormatHubIDs(layer.Mounted.HubIDsAt(addr)))
	return outcome, nil
}

// Mount installs a scanned ID at addr on the active layer.
func (s *Session) Mount(addr slots.Address, scanned string) (reconcile.MountOutcome, error) {
	layer, err := s.ActiveLayer()
	if err != nil {
		return reconcile.MountOutcome{}, err
	}
	id := topology.NormalizeBarcode(scanned)
	outcome, err := s.engine.TryMount(layer.Mounted, layer.Plan, addr, id)
	if err != nil {
		s.log(logbook.CategoryMountModule, fmt.Sprintf("FAILED: mount module -> %s: %v", id, err))
		return outcome, err
	}
	if outcome.NoOp {
		return outcome, nil
	}
	where := s.position(layer.Topology, addr)
	if outcome.Reconfirmed {
		s.log(logbook.CategoryMountModule, fmt.Sprintf("Module %s already mounted here%s", id, where))
		return outcome, nil
	}
	var msg string
	if outcome.Replaced() {
		msg = fmt.Sprintf("DONE: replace module %s -> %s", outcome.Previous, id)
	} else {
		msg = "DONE: mount module -> " + id
	}
	msg += fmt.Sprintf("%s plan: %s operator: %s", where, topology.FormatModuleName(layer.Plan.At(addr)), s.Operator())
	s.log(logbook.CategoryMountModule, msg)
	s.autosave()
	return outcome, nil
}

// Cancel records that the operator abandoned an action.
func (s *Session) Cancel(category logbook.Category, reason string) {
	s.log(category, "CANCEL: "+reason)
}

// Clear empties one slot of the active layer.
func (s *Session) Clear(addr slots.Address) (string, error) {
	layer, err := s.ActiveLayer()
	if err != nil {
		return "", err
	}
	previous, err := s.engine.Clear(layer.Mounted, addr)
	if err != nil {
		return "", fmt.Errorf("session: clear: %w", err)
	}
	s.log(logbook.CategoryMountClear, fmt.Sprintf("DONE: clear module %s%s operator: %s",
		topology.FormatModuleName(previous), s.position(layer.Topology, addr), s.Operator()))
	s.autosave()
	return previous, nil
}

// ClearHalfLadder empties one side of a ladder on the active layer.
func (s *Session) ClearHalfLadder(ladder int, side topology.Side) ([]reconcile.AuditEntry, error) {
	if err := s.BeginHalfLadder(ladder, side, logbook.CategoryMountClear); err != nil {
		return nil, err
	}
	layer, _ := s.ActiveLayer()
	cleared, err := s.engine.ClearHalfLadder(layer.Mounted, ladder, side)
	if err != nil {
		return cleared, fmt.Errorf("session: clear half ladder: %w", err)
	}
	s.log(logbook.CategoryMountClear, "DONE: half-ladder cleared!")
	s.autosave()
	return cleared, nil
}

// ReplaceTarget logs the slot picked for a single-module replacement.
func (s *Session) ReplaceTarget(addr slots.Address) error {
	layer, err := s.ActiveLayer()
	if err != nil {
		return err
	}
	if !layer.Mounted.Contains(addr) {
		return fmt.Errorf("%w: %s", reconcile.ErrOutOfRange, addr)
	}
	s.log(logbook.CategoryMountReplace, fmt.Sprintf("Layer: %s, Ladder: %d Z: %s",
		layer.Topology.Name, addr.Ladder+1, layer.Topology.ZPositionLabel(addr.Z)))
	return nil
}

func (s *Session) autosave() {
	if !s.cfg.Autosave() {
		return
	}
	if err := s.Save(); err != nil {
		s.logger.Errorf("autosave: %v", err)
	}
}

// position renders " at ladder N Z =-k" for mount log lines.
func (s *Session) position(layer topology.Layer, addr slots.Address) string {
	label := strings.TrimPrefix(layer.ZPositionLabel(addr.Z), "Z")
	sign, digits := label[len(label)-1:], label[:len(label)-1]
	return fmt.Sprintf(" at ladder %d Z =%s%s", addr.Ladder+1, sign, digits)
}

func formatSlice(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = topology.FormatModuleName(id)
	}
	return strings.Join(out, " ")
}
