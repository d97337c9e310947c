// Package clip provides a unified interface to the system clipboard across
// platforms, plus the sampler that turns clipboard state into a publishable
// buffer. Build constraints select the backend:
//
//	system.go  darwin, linux, windows via golang.design/x/clipboard
//	other.go   everything else, in-memory headless backend
//
// When the display is unavailable (headless Linux, containers) New falls back
// to the in-memory backend so the process can still relay content.
package clip

// Backend is the interface that all clipboard implementations satisfy.
// Implementations need not be safe for concurrent use; callers serialize
// access because the platform APIs are not.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the clipboard text, or nil if there is none.
	ReadText() ([]byte, error)

	// ReadImage returns the clipboard image as encoded bytes (PNG on every
	// supported platform), or nil if the clipboard holds no image.
	ReadImage() ([]byte, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(text []byte) error

	// WriteImage replaces the clipboard contents with a PNG image.
	WriteImage(png []byte) error

	// Close releases any resources held by the backend.
	Close()
}
