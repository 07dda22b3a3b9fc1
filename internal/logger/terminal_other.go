//go:build !linux && !darwin

package logger

// isTerminal reports false on platforms without an ioctl probe; output is
// uncolored there.
func isTerminal(uintptr) bool {
	return false
}
