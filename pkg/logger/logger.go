package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

type LogLevel = zerolog.Level

const (
	DEBUG = zerolog.DebugLevel
	INFO  = zerolog.InfoLevel
	WARN  = zerolog.WarnLevel
	ERROR = zerolog.ErrorLevel
)

var (
	mu   sync.RWMutex
	base = newLogger(os.Stderr, INFO)
)

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}

// Setup replaces the process-wide logger. A non-terminal writer gets JSON lines.
func Setup(out io.Writer, level LogLevel) {
	mu.Lock()
	base = newLogger(out, level)
	mu.Unlock()
}

// ParseLevel maps a config string to a level, falling back to INFO.
func ParseLevel(raw string) LogLevel {
	if raw == "" {
		return INFO
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil || level == zerolog.NoLevel {
		return INFO
	}
	return level
}

func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return base.GetLevel()
}

func logMessage(level zerolog.Level, component string, message string, fields map[string]interface{}) {
	mu.RLock()
	l := base
	mu.RUnlock()

	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if component != "" {
		ev = ev.Str("component", component)
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(message)
}

func DebugCF(component string, message string, fields map[string]interface{}) {
	logMessage(DEBUG, component, message, fields)
}

func InfoC(component string, message string) { logMessage(INFO, component, message, nil) }

func InfoCF(component string, message string, fields map[string]interface{}) {
	logMessage(INFO, component, message, fields)
}

func WarnCF(component string, message string, fields map[string]interface{}) {
	logMessage(WARN, component, message, fields)
}

func ErrorCF(component string, message string, fields map[string]interface{}) {
	logMessage(ERROR, component, message, fields)
}
