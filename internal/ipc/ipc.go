// Package ipc locates and opens the local Unix socket on which a running
// "cbportal sync" daemon serves its status endpoint. "cbportal status" probes
// the same path.
package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

const socketName = "cbportal.sock"

// SocketPath returns the socket path:
//
//   - $CBPORTAL_SOCKET if set
//   - $XDG_RUNTIME_DIR/cbportal.sock on Linux desktops
//   - $TMPDIR/cbportal.sock otherwise (macOS, Windows 10+ AF_UNIX)
func SocketPath() string {
	if s := os.Getenv("CBPORTAL_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}

// IsRunning reports whether something is listening on path. It does a cheap
// dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := net.Dial("unix", path)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on path, owner-only. A stale socket left by a
// crashed run is removed; a live one is an error so two sync daemons don't
// fight over the path.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("another cbportal sync is already listening on %s", path)
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod %s: %w", path, err)
	}
	return ln, nil
}
