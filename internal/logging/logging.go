// Package logging configures the global slog logger for cbportal.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts a string to a Format, returning FormatAuto for unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level. Empty or unknown strings
// yield def.
func ParseLevel(s string, def slog.Level) slog.Level {
	var l slog.Level
	if s == "" || l.UnmarshalText([]byte(s)) != nil {
		return def
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Options controls Setup.
type Options struct {
	// Writer receives log lines. Defaults to os.Stderr.
	Writer io.Writer
	Format Format
	// Level is a slog level name; empty picks debug when Verbose is set and
	// info otherwise.
	Level   string
	Verbose bool
}

// Setup builds a handler from opts and installs it as the slog default.
// Call once after flag/viper parsing.
func Setup(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	def := slog.LevelInfo
	if opts.Verbose {
		def = slog.LevelDebug
	}
	level := ParseLevel(opts.Level, def)

	useTint := opts.Format == FormatText || (opts.Format != FormatJSON && IsTTY(w))

	var h slog.Handler
	if useTint {
		h = tinter.NewHandler(w, &tinter.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
