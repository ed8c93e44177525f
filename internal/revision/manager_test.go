package revision

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/bpixm/internal/logbook"
	"github.com/kingrea/bpixm/internal/slots"
)

const testConfig = `layers:
  - name: L1
    ladders: 2
    z_positions: 2
    tbms: 1
  - name: L2
    ladders: 1
    z_positions: 2
    tbms: 2
revision:
  tag: baseline
`

type fakePointer struct {
	active int
	sets   []int
}

func (p *fakePointer) ActiveRevision() int { return p.active }

func (p *fakePointer) SetActiveRevision(n int) error {
	p.active = n
	p.sets = append(p.sets, n)
	return nil
}

var fixedNow = time.Date(2017, 3, 9, 14, 5, 0, 0, time.Local)

func writeFile(t *testing.T, fs billy.Filesystem, name, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
}

// writeRevision lays down a complete revision directory.
func writeRevision(t *testing.T, fs billy.Filesystem, n int) {
	t.Helper()
	dir := filepath.Join("data", strconv.Itoa(n))
	writeFile(t, fs, filepath.Join(dir, "config.yaml"), testConfig)
	writeFile(t, fs, filepath.Join(dir, "L1_plan.txt"), "M1001;M1002;M1003;M1004\nM1005;M1006;M1007;M1008\n")
	writeFile(t, fs, filepath.Join(dir, "L1_mounted.txt"), "M1001;;;\n;;;M1008\n")
	writeFile(t, fs, filepath.Join(dir, "L1_hubids.txt"), "1;2;3;4\n5;6;;8\n")
	writeFile(t, fs, filepath.Join(dir, "L1_sectors.txt"), "1 : 1,2\n")
	writeFile(t, fs, filepath.Join(dir, "L2_plan.txt"), "M2001;M2002;M2003;M2004\n")
	writeFile(t, fs, filepath.Join(dir, "L2_mounted.txt"), ";;;\n")
	writeFile(t, fs, filepath.Join(dir, "L2_hubids.txt"), "1/2;3/4;5/6;7/8\n")
	writeFile(t, fs, filepath.Join(dir, "L2_sectors.txt"), "2 : 1\n")
	writeFile(t, fs, filepath.Join(dir, LocationsFileName), "M1002;tray 4\nM1003,\n")
}

func newManager(fs billy.Filesystem, active int) (*Manager, *fakePointer) {
	pointer := &fakePointer{active: active}
	return NewManager(fs, "data", pointer, WithClock(func() time.Time { return fixedNow })), pointer
}

func TestHeadIgnoresNonRevisionEntries(t *testing.T) {
	fs := memfs.New()
	m, _ := newManager(fs, 1)
	_, err := m.Head()
	assert.ErrorIs(t, err, ErrNoRevisions)

	for _, n := range []int{1, 3, 2} {
		writeRevision(t, fs, n)
	}
	require.NoError(t, fs.MkdirAll("data/.fork-9", 0o755))
	require.NoError(t, fs.MkdirAll("data/notes", 0o755))
	require.NoError(t, fs.MkdirAll("data/0", 0o755))
	writeFile(t, fs, "data/7", "a file, not a revision")

	head, err := m.Head()
	require.NoError(t, err)
	assert.Equal(t, 3, head)
}

func TestLoadReadsAllLayerFiles(t *testing.T) {
	fs := memfs.New()
	writeRevision(t, fs, 1)
	m, pointer := newManager(fs, 1)

	rev, err := m.Open()
	require.NoError(t, err)
	assert.Equal(t, 1, rev.Number)
	assert.Empty(t, rev.Warnings)
	assert.Empty(t, pointer.sets)
	assert.Equal(t, "baseline", rev.Tag())
	assert.Equal(t, "L1", rev.ActiveLayer())
	assert.Equal(t, []string{"L1", "L2"}, rev.LayerNames())

	l1, ok := rev.Layer("L1")
	require.True(t, ok)
	assert.Equal(t, "M1007", l1.Plan.At(slots.Address{Ladder: 1, Z: 2}))
	assert.Equal(t, "M1008", l1.Mounted.At(slots.Address{Ladder: 1, Z: 3}))
	assert.Equal(t, slots.HubIDs{6}, l1.Mounted.HubIDsAt(slots.Address{Ladder: 1, Z: 1}))
	assert.Equal(t, slots.HubIDs{-1}, l1.Plan.HubIDsAt(slots.Address{Ladder: 1, Z: 2}))
	assert.Equal(t, []int{0, 1}, l1.Sectors[1])
	assert.False(t, rev.Dirty())

	l2, _ := rev.Layer("L2")
	assert.Equal(t, slots.HubIDs{7, 8}, l2.Mounted.HubIDsAt(slots.Address{Ladder: 0, Z: 3}))

	assert.Equal(t, "tray 4", rev.Locations.Lookup("M1002"))
	assert.Equal(t, "unknown", rev.Locations.Lookup("M9999"))
	assert.Same(t, rev, m.Current())
}

func TestLoadWarnsAboutMissingFilesAndLogsBadRows(t *testing.T) {
	fs := memfs.New()
	writeRevision(t, fs, 1)
	require.NoError(t, fs.Remove("data/1/L2_sectors.txt"))
	require.NoError(t, fs.Remove("data/1/"+LocationsFileName))
	writeFile(t, fs, "data/1/L1_mounted.txt", "M1001;;;\nM1002;M1003\n")
	m, _ := newManager(fs, 1)

	rev, err := m.Load(1)
	require.NoError(t, err)
	assert.Len(t, rev.Warnings, 2)
	require.Len(t, rev.Rejected["L1_mounted.txt"], 1)
	assert.Equal(t, 2, rev.Rejected["L1_mounted.txt"][0].Line)

	l1, _ := rev.Layer("L1")
	assert.Equal(t, []string{"", "", "", ""}, l1.Mounted.Row(1))
	assert.Equal(t, 0, rev.Locations.Len())

	lines, _ := rev.Logbook.Tail(10)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "[ERROR] L1_mounted.txt")
	assert.Contains(t, joined, "[WARNING] L2_sectors.txt not loaded")
}

func TestLoadRejectsOverlongRow(t *testing.T) {
	fs := memfs.New()
	writeRevision(t, fs, 1)
	writeFile(t, fs, "data/1/L1_mounted.txt", "M1001;;;\n"+strings.Repeat("x", 70*1024)+"\n")
	m, _ := newManager(fs, 1)

	rev, err := m.Load(1)
	require.NoError(t, err)
	require.Len(t, rev.Rejected["L1_mounted.txt"], 1)
	assert.Equal(t, 2, rev.Rejected["L1_mounted.txt"][0].Line)

	l1, _ := rev.Layer("L1")
	assert.Equal(t, "M1001", l1.Mounted.At(slots.Address{Ladder: 0, Z: 0}))
	assert.Equal(t, []string{"", "", "", ""}, l1.Mounted.Row(1))
}

func TestLoadFallsBackToHead(t *testing.T) {
	fs := memfs.New()
	writeRevision(t, fs, 1)
	writeRevision(t, fs, 2)
	m, pointer := newManager(fs, 5)

	rev, err := m.Open()
	require.NoError(t, err)
	assert.Equal(t, 2, rev.Number)
	assert.Equal(t, []int{2}, pointer.sets)
	require.Len(t, rev.Warnings, 1)
	assert.Contains(t, rev.Warnings[0], "falling back to HEAD 2")
}

func TestLoadWithoutRevisions(t *testing.T) {
	m, _ := newManager(memfs.New(), 1)
	_, err := m.Open()
	assert.ErrorIs(t, err, ErrNoRevisions)
}

func TestSaveRoundTripAndClearsDirty(t *testing.T) {
	fs := memfs.New()
	writeRevision(t, fs, 1)
	m, _ := newManager(fs, 1)
	rev, err := m.Open()
	require.NoError(t, err)

	l1, _ := rev.Layer("L1")
	require.NoError(t, l1.Mounted.Set(slots.Address{Ladder: 0, Z: 1}, "M1002"))
	require.True(t, rev.Dirty())
	require.NoError(t, m.SetActiveLayer("L2"))

	require.NoError(t, m.Save())
	assert.False(t, rev.Dirty())

	data, err := util.ReadFile(fs, "data/1/L1_mounted.txt")
	require.NoError(t, err)
	assert.Equal(t, "M1001;M1002;;\n;;;M1008\n", string(data))
	_, err = fs.Stat("data/1/L1_mounted.txt.tmp")
	assert.Error(t, err)

	again, err := m.Load(1)
	require.NoError(t, err)
	assert.Equal(t, "L2", again.ActiveLayer())
	reloaded, _ := again.Layer("L1")
	assert.Equal(t, l1.Mounted.Rows(), reloaded.Mounted.Rows())
}

func TestForkCopiesCurrentRevision(t *testing.T) {
	fs := memfs.New()
	for n := 1; n <= 3; n++ {
		writeRevision(t, fs, n)
	}
	m, pointer := newManager(fs, 3)
	rev, err := m.Open()
	require.NoError(t, err)
	l1, _ := rev.Layer("L1")
	require.NoError(t, l1.Mounted.Set(slots.Address{Ladder: 1, Z: 0}, "M1005"))

	next, err := m.Fork()
	require.NoError(t, err)
	assert.Equal(t, 4, next)
	head, err := m.Head()
	require.NoError(t, err)
	assert.Equal(t, 4, head)
	assert.Equal(t, 4, pointer.active)
	assert.Equal(t, 4, m.Current().Number)

	for _, name := range []string{"config.yaml", "L1_plan.txt", "L1_mounted.txt", "L1_hubids.txt", "L2_mounted.txt", LocationsFileName} {
		old, err := util.ReadFile(fs, filepath.Join("data/3", name))
		require.NoError(t, err)
		copied, err := util.ReadFile(fs, filepath.Join("data/4", name))
		require.NoError(t, err)
		assert.Equal(t, string(old), string(copied), name)
	}
	saved, _ := util.ReadFile(fs, "data/3/L1_mounted.txt")
	assert.Equal(t, "M1001;;;\nM1005;;;M1008\n", string(saved))

	_, err = fs.Stat("data/.fork-4")
	assert.Error(t, err)

	lines, _ := m.Current().Logbook.Tail(1)
	require.Len(t, lines, 1)
	assert.Equal(t, "2017-03-09 14:05 [CONFIG] CREATED REV 4 out of REVISION 3", lines[0])
}

func TestForkFromOlderRevisionGoesAboveHead(t *testing.T) {
	fs := memfs.New()
	for n := 1; n <= 3; n++ {
		writeRevision(t, fs, n)
	}
	m, _ := newManager(fs, 1)
	_, err := m.Open()
	require.NoError(t, err)
	next, err := m.Fork()
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func TestSwitchToRequiresDiscardWhenDirty(t *testing.T) {
	fs := memfs.New()
	writeRevision(t, fs, 1)
	writeRevision(t, fs, 2)
	m, pointer := newManager(fs, 1)
	rev, err := m.Open()
	require.NoError(t, err)
	l1, _ := rev.Layer("L1")
	require.NoError(t, l1.Mounted.Set(slots.Address{Ladder: 0, Z: 2}, "M1003"))

	err = m.SwitchTo(2, KeepUnsaved)
	assert.ErrorIs(t, err, ErrUnsavedChanges)
	assert.Same(t, rev, m.Current())

	require.NoError(t, m.SwitchTo(2, DiscardUnsaved))
	assert.Equal(t, 2, m.Current().Number)
	assert.Equal(t, 2, pointer.active)

	// the discarded mount never reached revision 1
	data, _ := util.ReadFile(fs, "data/1/L1_mounted.txt")
	assert.Equal(t, "M1001;;;\n;;;M1008\n", string(data))
}

func TestSwitchToMissingRevision(t *testing.T) {
	fs := memfs.New()
	writeRevision(t, fs, 1)
	m, pointer := newManager(fs, 1)
	rev, err := m.Open()
	require.NoError(t, err)

	err = m.SwitchTo(9, KeepUnsaved)
	var revErr *RevisionError
	require.True(t, errors.As(err, &revErr))
	assert.Equal(t, 9, revErr.Number)
	assert.ErrorIs(t, err, ErrMissingConfig)
	assert.Same(t, rev, m.Current())
	assert.Empty(t, pointer.sets)
}

func TestSetTagPersists(t *testing.T) {
	fs := memfs.New()
	writeRevision(t, fs, 1)
	m, _ := newManager(fs, 1)
	_, err := m.Open()
	require.NoError(t, err)

	require.NoError(t, m.SetTag("  after cosmic run "))
	again, err := m.Load(1)
	require.NoError(t, err)
	assert.Equal(t, "after cosmic run", again.Tag())

	assert.ErrorIs(t, m.SetActiveLayer("L9"), ErrUnknownLayer)
}

func TestListNewestFirst(t *testing.T) {
	fs := memfs.New()
	for n := 1; n <= 3; n++ {
		writeRevision(t, fs, n)
	}
	writeFile(t, fs, "data/2/bpixm.log", "2016-11-02 09:30 [LOG] started\n")
	m, _ := newManager(fs, 1)

	all, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].Number)
	assert.True(t, all[0].Head)
	assert.Equal(t, "?", all[0].Date())
	assert.Equal(t, "2016-11-02 09:30", all[1].Date())
	assert.Equal(t, "baseline", all[2].Tag)
	assert.False(t, all[2].Head)

	limited, err := m.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestLogRequiresLoadedRevision(t *testing.T) {
	fs := memfs.New()
	m, _ := newManager(fs, 1)
	assert.ErrorIs(t, m.Log(logbook.CategoryUser, "hello"), ErrNotLoaded)

	writeRevision(t, fs, 1)
	_, err := m.Open()
	require.NoError(t, err)
	require.NoError(t, m.Log(logbook.CategoryUser, "hello"))
	data, _ := util.ReadFile(fs, "data/1/bpixm.log")
	assert.Equal(t, "2017-03-09 14:05 [USER] hello\n", string(data))
}
