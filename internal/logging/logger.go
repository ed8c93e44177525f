package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DirName holds diagnostics, next to bpixm.yaml.
const DirName = "logs"

// FileName is the diagnostics log inside DirName.
const FileName = "bpixm.log"

// Logger writes tool diagnostics that are not part of any revision's
// history: startup, file errors, crashes in the terminal UI.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	closer  io.Closer
	session string
	now     func() time.Time
}

// New opens (or creates) workDir/logs/bpixm.log for appending. Every line
// carries a session id so interleaved runs can be told apart.
func New(workDir string) (*Logger, error) {
	logDir := filepath.Join(workDir, DirName)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	l := NewWriter(f)
	l.closer = f
	return l, nil
}

// NewWriter logs to an arbitrary writer.
func NewWriter(w io.Writer) *Logger {
	return &Logger{out: w, session: uuid.NewString()[:8], now: time.Now}
}

// Session returns the id stamped on every line.
func (l *Logger) Session() string {
	if l == nil {
		return ""
	}
	return l.session
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Printf writes a single timestamped line.
func (l *Logger) Printf(format string, args ...any) {
	l.write("INFO", format, args...)
}

// Errorf writes a single timestamped line flagged as an error.
func (l *Logger) Errorf(format string, args ...any) {
	l.write("ERROR", format, args...)
}

func (l *Logger) write(level, format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %s %-5s %s\n", l.now().Format(time.RFC3339), l.session, level, line)
}
