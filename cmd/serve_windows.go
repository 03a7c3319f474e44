//go:build windows

package cmd

import (
	"os"
	"syscall"
)

// shutdownSignals returns the OS signals that trigger a graceful shutdown.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// stopSignal is sent by 'serve stop'. Windows can only kill the process.
func stopSignal() syscall.Signal { return syscall.SIGKILL }
