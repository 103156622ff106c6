//go:build windows
// +build windows

package colors

import (
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32           = syscall.NewLazyDLL("kernel32.dll")
	procGetConsoleMode = kernel32.NewProc("GetConsoleMode")
)

// EnableColor will make a kernel call to see whether ANSI escape codes are supported on the stdout channel for the
// Windows system.
func EnableColor() {
	var mode uint32
	// Stdout supports ANSI escape codes only when the virtual terminal processing console mode flag is set
	r, _, _ := procGetConsoleMode.Call(os.Stdout.Fd(), uintptr(unsafe.Pointer(&mode)))
	enabled = r != 0 && mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0
}
