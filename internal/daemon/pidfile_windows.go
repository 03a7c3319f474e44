//go:build windows

package daemon

import (
	"fmt"
	"os"
	"syscall"
)

// processAlive relies on FindProcess opening a handle, which fails once the
// process has exited.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}

// signalProcess can only terminate on Windows; signal 0 does nothing.
func signalProcess(pid int, sig syscall.Signal) error {
	if sig == 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	defer func() { _ = proc.Release() }()
	return proc.Kill()
}
