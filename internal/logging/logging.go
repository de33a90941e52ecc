// Package logging wires the subsystem loggers used across the engine.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/decred/slog"
)

// Subsystem tags
const (
	Audio    = "AUDI"
	Mixer    = "MIXR"
	Settings = "CONF"
	Script   = "SCRP"
	Engine   = "GAME"
	Menu     = "MENU"
)

var subsystems = []string{Audio, Mixer, Settings, Script, Engine, Menu}

// Loggers hands out one logger per subsystem, all sharing a backend.
type Loggers struct {
	backend *slog.Backend
	loggers map[string]slog.Logger
}

// New creates loggers writing to w at the given level ("info" when empty or unknown).
func New(w io.Writer, level string) *Loggers {
	if w == nil {
		w = os.Stderr
	}
	l := &Loggers{
		backend: slog.NewBackend(w),
		loggers: make(map[string]slog.Logger, len(subsystems)),
	}
	for _, tag := range subsystems {
		l.loggers[tag] = l.backend.Logger(tag)
	}
	l.SetLevel(level)
	return l
}

// Logger returns the logger for a subsystem tag, creating it on first use.
func (l *Loggers) Logger(tag string) slog.Logger {
	if lg, ok := l.loggers[tag]; ok {
		return lg
	}
	lg := l.backend.Logger(tag)
	lg.SetLevel(l.loggers[Engine].Level())
	l.loggers[tag] = lg
	return lg
}

// SetLevel changes the level of every subsystem.
func (l *Loggers) SetLevel(level string) {
	lvl, ok := slog.LevelFromString(strings.ToLower(level))
	if !ok {
		lvl = slog.LevelInfo
	}
	for _, lg := range l.loggers {
		lg.SetLevel(lvl)
	}
}
