package logger

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

const timestampFormat = "2006-01-02 15:04:05.000"

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger provides leveled logging to stdout with optional file output.
type Logger struct {
	mu            sync.Mutex
	level         string
	file          *os.File // nil = stdout only
	writeToStdout bool
}

// NewLogger creates a logger that writes to stdout only.
func NewLogger(level string) *Logger {
	if _, ok := levelOrder[level]; !ok {
		level = LevelDebug
	}
	return &Logger{level: level, writeToStdout: true}
}

// SetLogFile enables file output, appending to the given path.
// Pass an empty path to disable file output.
func (l *Logger) SetLogFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	l.file = f
	return nil
}

// Close closes the log file, if one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// SetLevel changes the minimum level. Unknown levels are ignored.
func (l *Logger) SetLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := levelOrder[level]; ok {
		l.level = level
	}
}

func (l *Logger) log(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if levelOrder[level] < levelOrder[l.level] {
		return
	}

	timestamp := time.Now().Format(timestampFormat)
	message := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] %s | %s\n", level, timestamp, message)

	if l.writeToStdout {
		fmt.Print(line)
	}
	if l.file != nil {
		if _, err := l.file.WriteString(line); err != nil && l.writeToStdout {
			fmt.Printf("[LOGGER_ERROR] Failed to write to log file: %v\n", err)
		}
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}
