package logging

import (
	"context"
	"log/slog"

	"go.klb.dev/cbportal/internal/payload"
)

const previewLen = 120

// LogContent logs a clipboard event at INFO (type, short hash, size) and, at
// DEBUG, a text preview of up to 120 characters. Image content is never
// previewed.
func LogContent(event string, t payload.Type, hash string, data []byte) {
	slog.Info(event, "type", t, "hash", payload.Short(hash), "size_bytes", len(data))

	if t != payload.TypeText || !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("clipboard text", "hash", payload.Short(hash), "preview", Preview(string(data)))
}

// Preview truncates s to 120 runes, appending an ellipsis when cut.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "…"
}
