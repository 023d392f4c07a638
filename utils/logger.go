package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled logging throughout the application. The console
// sink receives INFO and above with colours; the optional file sink receives
// everything including DEBUG, without colours.
type Logger struct {
	mu      sync.Mutex
	console io.Writer
	errOut  io.Writer
	file    io.Writer
	closer  io.Closer
}

// NewLogger creates a new Logger writing to stdout/stderr only.
func NewLogger() *Logger {
	return &Logger{console: os.Stdout, errOut: os.Stderr}
}

// NewFileLogger creates a Logger that also writes a rotating debug log to
// path: 5 MB per file, 3 backups kept.
func NewFileLogger(path string) *Logger {
	l := NewLogger()
	if path == "" {
		return l
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5,
		MaxBackups: 3,
	}
	l.file = rotator
	l.closer = rotator
	return l
}

// NewLoggerTo creates a Logger over arbitrary writers; nil discards.
func NewLoggerTo(console, file io.Writer) *Logger {
	if console == nil {
		console = io.Discard
	}
	return &Logger{console: console, errOut: console, file: file}
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger { return NewLoggerTo(io.Discard, nil) }

// Close releases the file sink.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *Logger) Info(format string, args ...any) {
	l.write(l.console, "\033[32mINFO\033[0m ", "INFO", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.write(l.console, "\033[33mWARN\033[0m ", "WARNING", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.write(l.errOut, "\033[31mERROR\033[0m", "ERROR", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.write(nil, "", "DEBUG", format, args...)
}

func (l *Logger) write(console io.Writer, tag, level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if console != nil {
		fmt.Fprintf(console, "[%s] %s %s\n", now.Format("15:04:05"), tag, msg)
	}
	if l.file != nil {
		fmt.Fprintf(l.file, "%s - %s - %s\n", now.Format("2006-01-02 15:04:05"), level, msg)
	}
}
