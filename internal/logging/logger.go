package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vexide/autons/internal/config"
)

// FileName is the diagnostics log inside .autons/logs. The match journal
// lives next to it and is written by the logbook package.
const FileName = "autons.log"

// Logger appends timestamped lines to .autons/logs/autons.log. Diagnostics go
// here because the simulator owns the terminal while it runs.
type Logger struct {
	sink      *sink
	component string
}

type sink struct {
	mu    sync.Mutex
	file  *os.File
	clock func() time.Time
}

// New opens (or reuses) the log file for the project in projectDir.
func New(projectDir string) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.AutonsDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{sink: &sink{file: f, clock: time.Now}}, nil
}

// With returns a logger that tags each line with component. It shares the
// file with its parent; closing either closes both.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{sink: l.sink, component: strings.TrimSpace(component)}
}

func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.file == nil {
		return nil
	}
	err := l.sink.file.Close()
	l.sink.file = nil
	return err
}

// Printf writes one line. Logging to a nil or closed Logger is a no-op.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.sink == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	if l.component != "" {
		line = l.component + ": " + line
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.file == nil {
		return
	}
	fmt.Fprintf(l.sink.file, "[%s] %s\n", l.sink.clock().Format(time.RFC3339), line)
}
