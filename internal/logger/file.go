package logger

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FileLogger writes log lines to an append-only file in the format
// "<timestamp> - <LEVEL> - <message>", one line per event. It is the log
// sink used by the background refresh daemon.
type FileLogger struct {
	mu    sync.Mutex
	f     *os.File
	debug bool
}

// NewFileLogger opens (or creates) the log file at path in append mode.
// Debug messages are written only when PMX_DEBUG is set.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{f: f, debug: os.Getenv("PMX_DEBUG") != ""}, nil
}

func (l *FileLogger) write(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.f, "%s - %s - %s\n", ts, level, fmt.Sprintf(format, args...))
}

func (l *FileLogger) Debug(format string, args ...interface{}) {
	if l.debug {
		l.write("DEBUG", format, args...)
	}
}

func (l *FileLogger) Info(format string, args ...interface{}) {
	l.write("INFO", format, args...)
}

func (l *FileLogger) Warn(format string, args ...interface{}) {
	l.write("WARNING", format, args...)
}

func (l *FileLogger) Error(format string, args ...interface{}) {
	l.write("ERROR", format, args...)
}

// Close flushes and closes the underlying file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Sync()
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
