// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config selects the level and output format.
type Config struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// New returns a logger writing to stdout, human readable when console is set
// and JSON otherwise.
func New(level string, console bool) zerolog.Logger {
	return NewWriter(os.Stdout, level, console)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, level string, console bool) zerolog.Logger {
	zerolog.ErrorFieldName = "err"
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	}
	return zerolog.New(w).Level(ParseLevel(level, zerolog.InfoLevel)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, falling back to def.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return def
	}
}

// Bridge adapts a zerolog level to the Println/Printf logger interface used
// by the MQTT client.
type Bridge struct {
	log   zerolog.Logger
	level zerolog.Level
}

// NewBridge logs every message at level.
func NewBridge(log zerolog.Logger, level zerolog.Level) Bridge {
	return Bridge{log: log, level: level}
}

// Println logs its operands joined by spaces.
func (b Bridge) Println(v ...interface{}) {
	b.log.WithLevel(b.level).Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Printf logs a formatted message.
func (b Bridge) Printf(format string, v ...interface{}) {
	b.log.WithLevel(b.level).Msg(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}
