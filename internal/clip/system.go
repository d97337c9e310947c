//go:build darwin || linux || windows

package clip

import (
	"log/slog"
	"runtime"

	"golang.design/x/clipboard"
)

type systemBackend struct {
	name string
}

// New returns the platform clipboard backend, or the in-memory headless
// backend if the display environment is unavailable (no X11/Wayland, built
// without cgo). clipboard.Init is called here rather than in init() so that
// sub-commands which never touch the clipboard don't log spurious warnings.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return newHeadless()
	}
	return &systemBackend{name: systemName()}
}

func systemName() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS NSPasteboard"
	case "windows":
		return "Windows Clipboard"
	default:
		return "Linux clipboard"
	}
}

func (b *systemBackend) Name() string { return b.name }

func (b *systemBackend) ReadText() ([]byte, error) {
	return clipboard.Read(clipboard.FmtText), nil
}

func (b *systemBackend) ReadImage() ([]byte, error) {
	return clipboard.Read(clipboard.FmtImage), nil
}

func (b *systemBackend) WriteText(text []byte) error {
	clipboard.Write(clipboard.FmtText, text)
	return nil
}

func (b *systemBackend) WriteImage(png []byte) error {
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

func (b *systemBackend) Close() {}
