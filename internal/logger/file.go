package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the active log file inside the log directory
const LogFileName = "projdock.log"

// Rotation limits for the log file
const (
	maxLogSizeMB  = 5
	maxLogBackups = 3
	maxLogAgeDays = 28
)

// FileLogger appends leveled messages to <logDir>/projdock.log, rotating the
// file by size. It is thread-safe.
type FileLogger struct {
	logDir   string
	out      io.WriteCloser
	logLevel string
	mu       sync.Mutex
	now      func() time.Time
}

// NewFileLogger creates the log directory if needed and opens the rotating
// log file. Invalid levels fall back to "info".
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, LogFileName),
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
	}

	fl := &FileLogger{
		logDir:   logDir,
		out:      rotator,
		logLevel: normalizeLogLevel(logLevel),
		now:      time.Now,
	}
	fl.write(fmt.Sprintf("=== projdock started %s (pid %d) ===\n", fl.now().Format(time.RFC3339), os.Getpid()))
	return fl, nil
}

// Path returns the active log file path
func (fl *FileLogger) Path() string {
	return filepath.Join(fl.logDir, LogFileName)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !enabled(fl.logLevel, strings.ToLower(level)) {
		return
	}
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", fl.now().Format("2006-01-02 15:04:05"), level, message))
}

// Close closes the log file. Later messages are dropped.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.out != nil {
		if err := fl.out.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
		fl.out = nil
	}
	return nil
}

func (fl *FileLogger) write(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.out != nil {
		io.WriteString(fl.out, message)
	}
}
