// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.
//
// The go-equa library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-equa library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-equa library. If not, see <http://www.gnu.org/licenses/>.

// Package log is doin-core's leveled, structured logger. It is a thin
// log/slog façade shaped like go-ethereum's own log package: a handler
// colorizes key=value pairs on a terminal, a rotating file handler is
// available for long-running nodes, and a single process-wide default
// logger is installed with SetDefault.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors slog.Level with names matching the teacher's vocabulary.
// slog has no trace or critical level, so LvlTrace (-8) and LvlCrit (12)
// are defined here, four steps below Debug and above Error.
type Level = slog.Level

const (
	LvlCrit  Level = slog.Level(12)
	LvlError Level = slog.LevelError
	LvlWarn  Level = slog.LevelWarn
	LvlInfo  Level = slog.LevelInfo
	LvlDebug Level = slog.LevelDebug
	LvlTrace Level = slog.Level(-8)
)

// Logger is the interface used throughout doin-core.
type Logger struct {
	inner *slog.Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewLogger(NewTerminalHandler(os.Stderr, isatty.IsTerminal(os.Stderr.Fd())))
)

// SetDefault installs l as the process-wide default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// NewLogger wraps an slog.Handler as a doin-core Logger.
func NewLogger(h slog.Handler) *Logger { return &Logger{inner: slog.New(h)} }

// With returns a child logger that always includes the given key-value pairs.
func (l *Logger) With(kv ...any) *Logger { return &Logger{inner: l.inner.With(kv...)} }

func (l *Logger) log(level Level, msg string, kv ...any) {
	l.inner.Log(context.Background(), level, msg, kv...)
}

func (l *Logger) Trace(msg string, kv ...any) { l.log(LvlTrace, msg, kv...) }
func (l *Logger) Debug(msg string, kv ...any) { l.log(LvlDebug, msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(LvlInfo, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(LvlWarn, msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.log(LvlError, msg, kv...) }

// Crit logs at critical level and terminates the process, matching the
// teacher's log.Crit behavior for unrecoverable startup failures.
func (l *Logger) Crit(msg string, kv ...any) {
	l.log(LvlCrit, msg, kv...)
	os.Exit(1)
}

// Package-level helpers delegate to the current default logger.
func Trace(msg string, kv ...any) { current().Trace(msg, kv...) }
func Debug(msg string, kv ...any) { current().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { current().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { current().Warn(msg, kv...) }
func Error(msg string, kv ...any) { current().Error(msg, kv...) }
func Crit(msg string, kv ...any)  { current().Crit(msg, kv...) }

// NewTerminalHandler returns a handler that colorizes the level and renders
// key=value pairs on one line, colorized when useColor is true.
func NewTerminalHandler(w io.Writer, useColor bool) slog.Handler {
	if useColor {
		w = colorable.NewColorable(toFile(w))
	}
	return &terminalHandler{w: w, color: useColor, minLevel: LvlInfo}
}

// NewFileHandler returns a handler writing plain key=value lines to a
// size- and age-rotated log file.
func NewFileHandler(path string, maxSizeMB, maxBackups, maxAgeDays int) slog.Handler {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return &terminalHandler{w: lj, color: false, minLevel: LvlInfo}
}

func toFile(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return os.Stderr
}

type terminalHandler struct {
	w        io.Writer
	color    bool
	minLevel Level
	attrs    []slog.Attr
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(levelLabel(r.Level, h.color))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	})
	b.WriteByte('\n')
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *terminalHandler) WithGroup(_ string) slog.Handler { return h }

// Verbosity sets the minimum level this handler emits.
func (h *terminalHandler) Verbosity(lvl Level) { h.minLevel = lvl }

func levelLabel(lvl slog.Level, color bool) string {
	var name, code string
	switch {
	case lvl >= LvlCrit:
		name, code = "CRIT", "35"
	case lvl >= LvlError:
		name, code = "ERRO", "31"
	case lvl >= LvlWarn:
		name, code = "WARN", "33"
	case lvl >= LvlInfo:
		name, code = "INFO", "32"
	case lvl >= LvlDebug:
		name, code = "DBUG", "36"
	default:
		name, code = "TRCE", "90"
	}
	if !color {
		return name
	}
	return "\x1b[" + code + "m" + name + "\x1b[0m"
}
