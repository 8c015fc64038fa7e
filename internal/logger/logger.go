package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// Logger writes timestamped, leveled lines to a log file. The TUI owns the
// terminal, so nothing is ever written to stdout.
type Logger struct {
	logger       *log.Logger
	level        LogLevel
	file         *os.File
	enableCaller bool
}

var globalLogger *Logger

// Init initializes the global logger.
func Init(logPath string, level LogLevel) error {
	l, err := New(logPath, level)
	if err != nil {
		return err
	}
	globalLogger = l
	return nil
}

// Close closes the global logger.
func Close() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}

func Debug(format string, args ...any) {
	if globalLogger != nil {
		globalLogger.log(DEBUG, format, args...)
	}
}

func Info(format string, args ...any) {
	if globalLogger != nil {
		globalLogger.log(INFO, format, args...)
	}
}

func Warn(format string, args ...any) {
	if globalLogger != nil {
		globalLogger.log(WARN, format, args...)
	}
}

func Error(format string, args ...any) {
	if globalLogger != nil {
		globalLogger.log(ERROR, format, args...)
	}
}

func Fatal(format string, args ...any) {
	if globalLogger != nil {
		globalLogger.log(FATAL, format, args...)
	}
	os.Exit(1)
}

// New creates a file-backed logger.
func New(logPath string, level LogLevel) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		logger:       log.New(file, "", 0),
		level:        level,
		file:         file,
		enableCaller: true,
	}, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	var caller string
	if l.enableCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			caller = fmt.Sprintf(" [%s:%d]", filepath.Base(file), line)
		}
	}

	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%s [%s]%s %s", timestamp, levelNames[level], caller, message)

	if level == FATAL {
		os.Exit(1)
	}
}
