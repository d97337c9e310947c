package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.klb.dev/cbportal/internal/payload"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"json":  FormatJSON,
		"JSON":  FormatJSON,
		"text":  FormatText,
		"human": FormatText,
		"":      FormatAuto,
		"bogus": FormatAuto,
	} {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in   string
		def  slog.Level
		want slog.Level
	}{
		{"debug", slog.LevelInfo, slog.LevelDebug},
		{"WARN", slog.LevelInfo, slog.LevelWarn},
		{"", slog.LevelDebug, slog.LevelDebug},
		{"loud", slog.LevelInfo, slog.LevelInfo},
	} {
		if got := ParseLevel(tc.in, tc.def); got != tc.want {
			t.Errorf("ParseLevel(%q, %v) = %v, want %v", tc.in, tc.def, got, tc.want)
		}
	}
}

func TestSetupJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Setup(Options{Writer: &buf, Format: FormatJSON, Level: "debug"})

	hash := payload.Hash([]byte("hello"))
	LogContent("clipboard sent", payload.TypeText, hash, []byte("hello"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2 (info + debug preview):\n%s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["msg"] != "clipboard sent" || rec["hash"] != payload.Short(hash) || rec["type"] != "text" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestLogContentSkipsImagePreview(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Setup(Options{Writer: &buf, Format: FormatJSON, Verbose: true})
	LogContent("clipboard received", payload.TypeImage, payload.Hash([]byte("x")), []byte("x"))

	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Fatalf("got %d log lines for an image, want 1:\n%s", n, buf.String())
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short"); got != "short" {
		t.Fatalf("Preview(short) = %q", got)
	}
	long := strings.Repeat("é", 200)
	got := Preview(long)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) != previewLen+1 {
		t.Fatalf("Preview cut to %d runes, want %d", len([]rune(got)), previewLen+1)
	}
}
