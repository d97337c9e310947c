//go:build !darwin && !linux && !windows

package clip

// New returns the in-memory headless backend; there is no supported system
// clipboard on this platform.
func New() Backend {
	return newHeadless()
}
