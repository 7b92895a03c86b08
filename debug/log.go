package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/log"
)

// switchWriter lets loggers created before Enable follow later output
// changes. Their level stays the one in force when they were created.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

var (
	mu   sync.Mutex
	file *os.File
	out  = &switchWriter{w: io.Discard}
	root = newRoot(log.InfoLevel)

	counters = make(map[string]int)
)

func newRoot(level log.Level) *log.Logger {
	return log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
}

// Enable starts logging to path (truncated). The full-screen UI owns the
// terminal, so this is the default sink.
func Enable(path string, level log.Level) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fault.Wrap(err, fmsg.With("create log dir"))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fault.Wrap(err, fmsg.With("open log "+path))
	}
	if file != nil {
		file.Close()
	}
	file = f
	out.set(f)
	root = newRoot(level)
	root.WithPrefix("debug").Info("=== logging started ===")
	return nil
}

// EnableStderr logs to stderr (headless mode)
func EnableStderr(level log.Level) {
	mu.Lock()
	defer mu.Unlock()
	out.set(os.Stderr)
	root = newRoot(level)
}

// Disable stops logging and closes the log file
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	out.set(io.Discard)
	if file != nil {
		file.Close()
		file = nil
	}
}

// Logger returns a logger whose lines are prefixed with category. It
// writes to the current sink, but keeps the level set by the last Enable
// or EnableStderr before the call, so those should run first.
func Logger(category string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	return root.WithPrefix(category)
}

// Log writes a formatted debug line
func Log(category, format string, args ...any) {
	Logger(category).Debug(fmt.Sprintf(format, args...))
}

// LogEvery logs only every N calls (use for high-frequency events)
func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
