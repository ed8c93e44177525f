package revision

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/kingrea/bpixm/internal/config"
	"github.com/kingrea/bpixm/internal/locations"
	"github.com/kingrea/bpixm/internal/logbook"
	"github.com/kingrea/bpixm/internal/slots"
	"github.com/kingrea/bpixm/internal/topology"
)

// Pointer remembers which revision is active between runs. The global
// config implements it.
type Pointer interface {
	ActiveRevision() int
	SetActiveRevision(n int) error
}

// DiscardToken states what SwitchTo may do with unsaved mounted changes.
type DiscardToken int

const (
	// KeepUnsaved refuses to switch while changes are unsaved.
	KeepUnsaved DiscardToken = iota
	// DiscardUnsaved drops unsaved changes and switches anyway.
	DiscardUnsaved
)

// Summary is one line of the revision list.
type Summary struct {
	Number  int
	Tag     string
	LastLog time.Time
	Dated   bool
	Head    bool
}

// Date formats the last log timestamp, or "?" when there is none.
func (s Summary) Date() string {
	if !s.Dated {
		return "?"
	}
	return s.LastLog.Format(logbook.TimeLayout)
}

// Manager owns the current revision and the data root.
type Manager struct {
	fs        billy.Filesystem
	root      string
	pointer   Pointer
	numbering topology.ZNumbering
	now       func() time.Time
	readOnly  bool

	current *Revision
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock sets the clock used for revision log timestamps.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithZNumbering selects the Z label convention of loaded layers.
func WithZNumbering(n topology.ZNumbering) Option {
	return func(m *Manager) {
		if n != "" {
			m.numbering = n
		}
	}
}

// WithReadOnly loads revisions without touching disk: the revision log
// is not appended to and a fallback to HEAD is not persisted.
func WithReadOnly() Option {
	return func(m *Manager) {
		m.readOnly = true
	}
}

// NewManager manages the revisions under root inside fs.
func NewManager(fs billy.Filesystem, root string, pointer Pointer, opts ...Option) *Manager {
	m := &Manager{
		fs:        fs,
		root:      filepath.Clean(root),
		pointer:   pointer,
		numbering: topology.ZNumberingOneBased,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the loaded revision, or nil before Load.
func (m *Manager) Current() *Revision {
	return m.current
}

// Dir returns the directory of revision n.
func (m *Manager) Dir(n int) string {
	return filepath.Join(m.root, strconv.Itoa(n))
}

// Head returns the highest revision number present.
func (m *Manager) Head() (int, error) {
	numbers, err := m.numbers()
	if err != nil {
		return 0, err
	}
	if len(numbers) == 0 {
		return 0, ErrNoRevisions
	}
	return numbers[len(numbers)-1], nil
}

// List returns up to limit revisions, newest first. limit <= 0 lists all.
func (m *Manager) List(limit int) ([]Summary, error) {
	numbers, err := m.numbers()
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return nil, ErrNoRevisions
	}
	head := numbers[len(numbers)-1]
	var out []Summary
	for i := len(numbers) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		n := numbers[i]
		s := Summary{Number: n, Head: n == head}
		s.LastLog, s.Dated = logbook.LastEntryTime(m.fs, filepath.Join(m.Dir(n), LogFileName))
		if data, err := util.ReadFile(m.fs, filepath.Join(m.Dir(n), config.RevisionFileName)); err == nil {
			if rc, err := config.ParseRevisionConfig(data); err == nil {
				s.Tag = rc.Revision.Tag
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// Open loads the revision the pointer names.
func (m *Manager) Open() (*Revision, error) {
	return m.Load(m.pointer.ActiveRevision())
}

// Load reads revision n and makes it current, discarding whatever was
// loaded before. A revision without config falls back to HEAD; the
// fallback is recorded as a warning and persisted through the pointer.
func (m *Manager) Load(n int) (*Revision, error) {
	ok, err := m.hasConfig(n)
	if err != nil {
		return nil, &RevisionError{Number: n, Err: err}
	}
	var fallback string
	if !ok {
		head, err := m.Head()
		if err != nil {
			return nil, err
		}
		if head != n {
			fallback = fmt.Sprintf("revision %d has no %s, falling back to HEAD %d", n, config.RevisionFileName, head)
			if !m.readOnly {
				if err := m.pointer.SetActiveRevision(head); err != nil {
					return nil, fmt.Errorf("revision: persist fallback: %w", err)
				}
			}
		}
		n = head
	}
	rev, err := m.load(n)
	if err != nil {
		return nil, err
	}
	if fallback != "" {
		rev.warn(fallback)
	}
	m.current = rev
	return rev, nil
}

// Save writes every layer's mounted matrix and the revision config. All
// layers are attempted; the joined error is nil only if all succeeded, and
// only then are the dirty flags cleared.
func (m *Manager) Save() error {
	rev := m.current
	if rev == nil {
		return ErrNotLoaded
	}
	var errs []error
	for _, name := range rev.LayerNames() {
		data := rev.layers[name]
		file := filepath.Join(rev.Dir, config.FileFor(rev.Config.Files.Mounted, name))
		if err := writeAtomic(m.fs, file, data.Mounted.SaveModules); err != nil {
			errs = append(errs, fmt.Errorf("revision: save layer %s: %w", name, err))
		}
	}
	if err := m.writeConfig(rev); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		for _, e := range errs {
			_ = rev.Logbook.Error("%v", e)
		}
		return err
	}
	rev.markClean()
	return nil
}

// Fork saves the current revision, copies it to HEAD+1 and makes the copy
// current. The copy is assembled in a hidden sibling and renamed into
// place; on failure it is removed and nothing else changes.
func (m *Manager) Fork() (int, error) {
	rev := m.current
	if rev == nil {
		return 0, ErrNotLoaded
	}
	if err := m.Save(); err != nil {
		return 0, fmt.Errorf("revision: fork: %w", err)
	}
	head, err := m.Head()
	if err != nil {
		return 0, fmt.Errorf("revision: fork: %w", err)
	}
	next := head + 1
	tmp := filepath.Join(m.root, fmt.Sprintf(".fork-%d", next))
	_ = util.RemoveAll(m.fs, tmp)
	if err := copyTree(m.fs, rev.Dir, tmp); err != nil {
		_ = util.RemoveAll(m.fs, tmp)
		return 0, &RevisionError{Number: next, Err: fmt.Errorf("copy revision %d: %w", rev.Number, err)}
	}
	if err := m.fs.Rename(tmp, m.Dir(next)); err != nil {
		_ = util.RemoveAll(m.fs, tmp)
		return 0, &RevisionError{Number: next, Err: err}
	}
	forked, err := m.load(next)
	if err != nil {
		return 0, err
	}
	if err := m.pointer.SetActiveRevision(next); err != nil {
		return 0, fmt.Errorf("revision: fork: %w", err)
	}
	m.current = forked
	_ = forked.Logbook.Logf(logbook.CategoryConfig, "CREATED REV %d out of REVISION %d", next, rev.Number)
	return next, nil
}

// SwitchTo makes revision n current. Unsaved changes block the switch
// unless discard is DiscardUnsaved. A missing or broken revision leaves
// the current one in place.
func (m *Manager) SwitchTo(n int, discard DiscardToken) error {
	if m.current.Dirty() && discard != DiscardUnsaved {
		return ErrUnsavedChanges
	}
	ok, err := m.hasConfig(n)
	if err != nil {
		return &RevisionError{Number: n, Err: err}
	}
	if !ok {
		return &RevisionError{Number: n, Err: ErrMissingConfig}
	}
	rev, err := m.load(n)
	if err != nil {
		return err
	}
	if err := m.pointer.SetActiveRevision(n); err != nil {
		return fmt.Errorf("revision: switch: %w", err)
	}
	m.current = rev
	return nil
}

// SetTag labels the current revision and persists the label.
func (m *Manager) SetTag(tag string) error {
	rev := m.current
	if rev == nil {
		return ErrNotLoaded
	}
	rev.Config.Revision.Tag = strings.TrimSpace(tag)
	return m.writeConfig(rev)
}

// SetActiveLayer records which layer the operator is working on.
func (m *Manager) SetActiveLayer(name string) error {
	rev := m.current
	if rev == nil {
		return ErrNotLoaded
	}
	if _, ok := rev.layers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
	rev.Config.ActiveLayer = name
	return m.writeConfig(rev)
}

// Log appends to the current revision's log.
func (m *Manager) Log(category logbook.Category, message string) error {
	if m.current == nil {
		return ErrNotLoaded
	}
	return m.current.Logbook.Append(category, message)
}

func (m *Manager) numbers() ([]int, error) {
	entries, err := m.fs.ReadDir(m.root)
	if err != nil {
		if ok, statErr := exists(m.fs, m.root); statErr == nil && !ok {
			return nil, nil
		}
		return nil, fmt.Errorf("revision: list %s: %w", m.root, err)
	}
	var numbers []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, err := strconv.Atoi(entry.Name())
		if err != nil || n < 1 {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (m *Manager) hasConfig(n int) (bool, error) {
	if n < 1 {
		return false, nil
	}
	return exists(m.fs, filepath.Join(m.Dir(n), config.RevisionFileName))
}

func (m *Manager) load(n int) (*Revision, error) {
	dir := m.Dir(n)
	data, err := util.ReadFile(m.fs, filepath.Join(dir, config.RevisionFileName))
	if err != nil {
		return nil, &RevisionError{Number: n, Err: err}
	}
	rc, err := config.ParseRevisionConfig(data)
	if err != nil {
		return nil, &RevisionError{Number: n, Err: err}
	}
	bookOpts := []logbook.Option{logbook.WithClock(m.now)}
	if m.readOnly {
		bookOpts = append(bookOpts, logbook.ReadOnly())
	}
	book, err := logbook.New(m.fs, filepath.Join(dir, LogFileName), bookOpts...)
	if err != nil {
		return nil, &RevisionError{Number: n, Err: err}
	}
	rev := &Revision{
		Number:   n,
		Dir:      dir,
		Config:   rc,
		Logbook:  book,
		Rejected: map[string][]*slots.FormatError{},
		layers:   map[string]*LayerData{},
	}

	for _, spec := range rc.Layers {
		layer := spec.Topology(m.numbering)
		ld := &LayerData{
			Topology: layer,
			Plan:     slots.New(layer, slots.RolePlan),
			Mounted:  slots.New(layer, slots.RoleMounted),
		}
		m.readInto(rev, rc.Files.Plan, spec.Name, ld.Plan.LoadModules)
		m.readInto(rev, rc.Files.Mounted, spec.Name, ld.Mounted.LoadModules)
		hubIDs := func(r io.Reader) (slots.LoadReport, error) {
			raw, err := io.ReadAll(r)
			if err != nil {
				return slots.LoadReport{}, err
			}
			if _, err := ld.Plan.LoadHubIDs(strings.NewReader(string(raw))); err != nil {
				return slots.LoadReport{}, err
			}
			return ld.Mounted.LoadHubIDs(strings.NewReader(string(raw)))
		}
		m.readInto(rev, rc.Files.HubIDs, spec.Name, hubIDs)
		sectors := func(r io.Reader) (slots.LoadReport, error) {
			parsed, report, err := slots.ParseSectors(r, layer.Ladders)
			if err == nil {
				ld.Sectors = parsed
			}
			return report, err
		}
		m.readInto(rev, rc.Files.Sectors, spec.Name, sectors)
		ld.Plan.MarkClean()
		ld.Mounted.MarkClean()
		rev.layers[spec.Name] = ld
	}

	rev.Locations = locations.NewIndex()
	f, err := m.fs.Open(filepath.Join(dir, LocationsFileName))
	if err != nil {
		rev.warn(fmt.Sprintf("storage locations not loaded: %v", err))
	} else {
		idx, err := locations.Parse(f)
		_ = f.Close()
		if err != nil {
			rev.warn(err.Error())
		}
		rev.Locations = idx
	}
	return rev, nil
}

// readInto opens one layer file and feeds it to load. A missing or
// unreadable file is a warning and the matrix keeps what it had; malformed
// rows are logged as errors.
func (m *Manager) readInto(rev *Revision, template, layer string, load func(io.Reader) (slots.LoadReport, error)) {
	name := config.FileFor(template, layer)
	f, err := m.fs.Open(filepath.Join(rev.Dir, name))
	if err != nil {
		rev.warn(fmt.Sprintf("%s not loaded: %v", name, err))
		return
	}
	defer f.Close()
	report, err := load(f)
	if err != nil {
		rev.warn(fmt.Sprintf("%s not loaded: %v", name, err))
	}
	if len(report.Rejected) > 0 {
		rev.Rejected[name] = append(rev.Rejected[name], report.Rejected...)
		for _, fe := range report.Rejected {
			_ = rev.Logbook.Error("%s: %v", name, fe)
		}
	}
}

func (m *Manager) writeConfig(rev *Revision) error {
	data, err := rev.Config.Marshal()
	if err != nil {
		return fmt.Errorf("revision: %w", err)
	}
	file := filepath.Join(rev.Dir, config.RevisionFileName)
	err = writeAtomic(m.fs, file, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("revision: save config: %w", err)
	}
	return nil
}

func (r *Revision) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	_ = r.Logbook.Warn("%s", msg)
}
