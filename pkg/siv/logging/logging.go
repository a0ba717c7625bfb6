// Package logging provides component loggers for the integrity verifier,
// backed by charmbracelet/log and a size-rotated log file.
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("scanner")
//	logger.Info("scan started", "root", "/srv/www")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a charmbracelet/log level.
type Level = log.Level

// Levels accepted in configuration.
const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// ErrInvalidLevel reports a level name other than debug, info, warn or error.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel maps a configured level name to a Level. The empty name is info.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	case "debug", "info", "warn", "error":
		return log.ParseLevel(name)
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Config configures the logging system.
type Config struct {
	// Level is the file log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// MaxSize is the size in bytes at which the file is rotated.
	// Zero uses DefaultMaxSize.
	MaxSize int64

	// MaxBackups is the number of rotated files kept.
	MaxBackups int

	// Components maps component names to level overrides.
	Components map[string]string

	// ConsoleLevel enables stderr output at the given level.
	// Empty disables console output.
	ConsoleLevel string
}

// Logger is a component logger writing to the log file and,
// optionally, the console.
type Logger struct {
	file      *log.Logger
	console   *log.Logger
	component string
}

// Debug logs msg at debug level with alternating key/value args.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.emit(LevelDebug, msg, args)
}

// Info logs msg at info level.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.emit(LevelInfo, msg, args)
}

// Warn logs msg at warn level.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.emit(LevelWarn, msg, args)
}

// Error logs msg at error level.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.emit(LevelError, msg, args)
}

func (l *Logger) emit(level Level, msg string, args []interface{}) {
	global.mu.RLock()
	file, console := l.file, l.console
	global.mu.RUnlock()

	file.Log(level, msg, args...)
	if console != nil {
		console.Log(level, msg, args...)
	}
}

// With returns a logger carrying additional key/value context.
// The derived logger is bound to the configuration current at the call.
func (l *Logger) With(args ...interface{}) *Logger {
	global.mu.RLock()
	defer global.mu.RUnlock()

	nl := &Logger{file: l.file.With(args...), component: l.component}
	if l.console != nil {
		nl.console = l.console.With(args...)
	}
	return nl
}

// Component returns the component name.
func (l *Logger) Component() string {
	return l.component
}

type state struct {
	mu           sync.RWMutex
	initialized  bool
	writer       *RotatingWriter
	level        Level
	components   map[string]Level
	loggers      map[string]*Logger
	console      bool
	consoleLevel Level
	consoleOut   io.Writer
}

var global = &state{
	components: make(map[string]Level),
	loggers:    make(map[string]*Logger),
	consoleOut: os.Stderr,
}

// Init configures logging. Loggers obtained before Init are silent until
// Init runs and then write according to the new configuration.
func Init(cfg Config) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	console := false
	var consoleLevel Level
	if cfg.ConsoleLevel != "" {
		consoleLevel, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		console = true
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.MaxSize, cfg.MaxBackups)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	if global.writer != nil {
		_ = global.writer.Close()
	}

	global.writer = writer
	global.level = level
	global.components = components
	global.console = console
	global.consoleLevel = consoleLevel
	global.initialized = true

	global.rebind()
	return nil
}

// rebind points every handed-out logger at the current configuration.
// Must be called with s.mu held.
func (s *state) rebind() {
	for component, l := range s.loggers {
		fresh := newLogger(component)
		l.file, l.console = fresh.file, fresh.console
	}
}

// Get returns the logger for a component. The same *Logger is returned on
// every call and follows later Init and Close calls.
func Get(component string) *Logger {
	global.mu.RLock()
	if l, ok := global.loggers[component]; ok {
		global.mu.RUnlock()
		return l
	}
	global.mu.RUnlock()

	global.mu.Lock()
	defer global.mu.Unlock()

	if l, ok := global.loggers[component]; ok {
		return l
	}
	l := newLogger(component)
	global.loggers[component] = l
	return l
}

// newLogger must be called with global.mu held.
func newLogger(component string) *Logger {
	level := global.level
	if lvl, ok := global.components[component]; ok {
		level = lvl
	}

	if !global.initialized {
		return &Logger{
			file:      log.NewWithOptions(io.Discard, log.Options{Level: level, Prefix: component}),
			component: component,
		}
	}

	l := &Logger{
		file: log.NewWithOptions(global.writer, log.Options{
			Level:           level,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
		component: component,
	}
	if global.console {
		l.console = log.NewWithOptions(global.consoleOut, log.Options{
			Level:           global.consoleLevel,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}
	return l
}

// Close flushes and closes the log file. Loggers become silent again.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if !global.initialized {
		return nil
	}

	var err error
	if global.writer != nil {
		err = global.writer.Close()
		global.writer = nil
	}
	global.initialized = false
	global.console = false
	global.rebind()
	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/siv/siv.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "siv", "siv.log")
}
