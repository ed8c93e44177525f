// Package session is the operator's working context: the loaded revision,
// the active layer and the settings that shape every mounting action. Each
// operation writes its trace to the revision log.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"github.com/kingrea/bpixm/internal/config"
	"github.com/kingrea/bpixm/internal/logbook"
	"github.com/kingrea/bpixm/internal/logging"
	"github.com/kingrea/bpixm/internal/reconcile"
	"github.com/kingrea/bpixm/internal/revision"
)

// ErrNoActiveLayer is returned when the revision has no usable active layer.
var ErrNoActiveLayer = errors.New("session: no active layer")

// Session holds everything one run of the tool works on.
type Session struct {
	cfg    *config.Config
	revs   *revision.Manager
	engine *reconcile.Engine
	logger *logging.Logger
	id     string
}

// Open builds a session over fs using cfg and loads the active revision.
func Open(cfg *config.Config, fs billy.Filesystem, logger *logging.Logger) (*Session, error) {
	revs := revision.NewManager(fs, cfg.DataDir(), cfg, revision.WithZNumbering(cfg.ZNumbering()))
	s := New(cfg, revs, reconcile.New(), logger)
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenReadOnly is Open for commands that only look: the active revision is
// loaded but nothing is written to its log and no start banner is logged.
func OpenReadOnly(cfg *config.Config, fs billy.Filesystem, logger *logging.Logger) (*Session, error) {
	revs := revision.NewManager(fs, cfg.DataDir(), cfg,
		revision.WithZNumbering(cfg.ZNumbering()), revision.WithReadOnly())
	s := New(cfg, revs, reconcile.New(), logger)
	if _, err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// New wires a session from its parts without loading anything.
func New(cfg *config.Config, revs *revision.Manager, engine *reconcile.Engine, logger *logging.Logger) *Session {
	id := logger.Session()
	if id == "" {
		id = uuid.NewString()[:8]
	}
	return &Session{cfg: cfg, revs: revs, engine: engine, logger: logger, id: id}
}

// Start loads the revision named by the config and writes the start banner.
func (s *Session) Start() error {
	rev, err := s.open()
	if err != nil {
		return err
	}
	rule := strings.Repeat("-", 60)
	s.log(logbook.CategoryStart, rule)
	s.log(logbook.CategoryStart, fmt.Sprintf("started, operator: %s session: %s", s.Operator(), s.id))
	s.log(logbook.CategoryStart, rule)
	s.logger.Printf("opened revision %d, operator %q", rev.Number, s.Operator())
	return nil
}

func (s *Session) open() (*revision.Revision, error) {
	rev, err := s.revs.Open()
	if err != nil {
		s.logger.Errorf("open revision: %v", err)
		return nil, fmt.Errorf("session: %w", err)
	}
	for _, w := range rev.Warnings {
		s.logger.Printf("revision %d: %s", rev.Number, w)
	}
	return rev, nil
}

// ID identifies this run in both logs.
func (s *Session) ID() string { return s.id }

// Config returns the global configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Revision returns the loaded revision.
func (s *Session) Revision() *revision.Revision { return s.revs.Current() }

// Operator is the name written into mount logs.
func (s *Session) Operator() string { return s.cfg.Operator() }

// Dirty reports unsaved mounted changes.
func (s *Session) Dirty() bool { return s.revs.Current().Dirty() }

// Audit returns every slot change made during this session.
func (s *Session) Audit() []reconcile.AuditEntry { return s.engine.Audit() }

// ActiveLayer returns the layer mounting operations apply to.
func (s *Session) ActiveLayer() (*revision.LayerData, error) {
	rev := s.revs.Current()
	if rev == nil {
		return nil, revision.ErrNotLoaded
	}
	data, ok := rev.Layer(rev.ActiveLayer())
	if !ok {
		return nil, ErrNoActiveLayer
	}
	return data, nil
}

// SelectLayer makes name the active layer.
func (s *Session) SelectLayer(name string) error {
	if err := s.revs.SetActiveLayer(name); err != nil {
		return fmt.Errorf("session: select layer: %w", err)
	}
	s.log(logbook.CategoryLayer, "SELECT layer: "+name)
	return nil
}

// Location returns where a module is stored.
func (s *Session) Location(id string) string {
	return s.revs.Current().Locations.Lookup(id)
}

// RecentLog returns the last n lines of the revision log.
func (s *Session) RecentLog(n int) []string {
	rev := s.revs.Current()
	if rev == nil {
		return nil
	}
	lines, _ := rev.Logbook.Tail(n)
	return lines
}

func (s *Session) log(category logbook.Category, message string) {
	if err := s.revs.Log(category, message); err != nil {
		s.logger.Errorf("revision log: %v", err)
	}
}
