//go:build !windows
// +build !windows

package colors

// EnableColor is effectively a no-op for non-windows systems because we know that they support ANSI escape codes
func EnableColor() {
	enabled = true
}
