package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
)

// Category tags a log entry with the activity that produced it.
type Category string

const (
	CategoryStart         Category = "START"
	CategoryLog           Category = "LOG"
	CategoryConfig        Category = "CONFIG"
	CategoryError         Category = "ERROR"
	CategoryWarning       Category = "WARNING"
	CategoryLayer         Category = "LAYER"
	CategorySearch        Category = "SEARCH"
	CategoryUser          Category = "USER"
	CategoryMount         Category = "MOUNT"
	CategoryMountModule   Category = "MOUNT-MODULE"
	CategoryMountClear    Category = "MOUNT-CLEAR"
	CategoryMountReplace  Category = "MOUNT-REPLACE"
	CategoryModuleComment Category = "MODULE-COMMENT"
	CategoryRevision      Category = "REV"
)

// TimeLayout is the timestamp format at the start of every line.
const TimeLayout = "2006-01-02 15:04"

// Logbook appends to the log file of one revision.
type Logbook struct {
	fs       billy.Filesystem
	path     string
	now      func() time.Time
	readOnly bool
	mu       sync.Mutex
}

// Option customizes a Logbook.
type Option func(*Logbook)

// WithClock overrides the clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Logbook) {
		if clock != nil {
			l.now = clock
		}
	}
}

// ReadOnly makes Append a no-op. Tail still reads the file.
func ReadOnly() Option {
	return func(l *Logbook) {
		l.readOnly = true
	}
}

// New creates a logbook that writes to name inside fs.
func New(fs billy.Filesystem, name string, opts ...Option) (*Logbook, error) {
	l := &Logbook{fs: fs, path: name, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.readOnly {
		return l, nil
	}
	if err := fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry to the logbook. Multi-line messages are
// folded onto one line so every entry stays one line long.
func (l *Logbook) Append(category Category, message string) error {
	if l == nil || l.readOnly {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	message = strings.Join(strings.Fields(strings.ReplaceAll(message, "\n", " ")), " ")
	line := fmt.Sprintf("%s [%s] %s\n", l.now().Format(TimeLayout), category, message)
	file, err := l.fs.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logbook: open %s: %w", l.path, err)
	}
	defer file.Close()
	if _, err := file.Write([]byte(line)); err != nil {
		return fmt.Errorf("logbook: append %s: %w", l.path, err)
	}
	return nil
}

// Tail returns up to maxLines of the most recent entries and the total
// number of lines in the file.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lines := readLines(l.fs, l.path)
	total := len(lines)
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// Logf appends a formatted entry.
func (l *Logbook) Logf(category Category, format string, args ...any) error {
	return l.Append(category, fmt.Sprintf(format, args...))
}

// Warn appends a WARNING entry.
func (l *Logbook) Warn(format string, args ...any) error {
	return l.Append(CategoryWarning, fmt.Sprintf(format, args...))
}

// Error appends an ERROR entry.
func (l *Logbook) Error(format string, args ...any) error {
	return l.Append(CategoryError, fmt.Sprintf(format, args...))
}

// LastEntryTime returns the timestamp of the last line of the log at name,
// which is how the revision list dates each revision.
func LastEntryTime(fs billy.Filesystem, name string) (time.Time, bool) {
	lines := readLines(fs, name)
	for i := len(lines) - 1; i >= 0; i-- {
		if t, ok := entryTime(lines[i]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func entryTime(line string) (time.Time, bool) {
	stamp, _, ok := strings.Cut(line, " [")
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(stamp), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func readLines(fs billy.Filesystem, name string) []string {
	file, err := fs.Open(name)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
