//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// shutdownSignals returns the OS signals that trigger a graceful shutdown.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// stopSignal is sent by 'serve stop'.
func stopSignal() syscall.Signal { return syscall.SIGTERM }
