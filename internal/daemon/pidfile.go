// Package daemon tracks the running pulse API server through a PID file.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

var (
	// ErrRunning is returned by Acquire when another live process owns the file.
	ErrRunning = errors.New("already running")
	// ErrNotRunning is returned by Signal when the recorded process is gone.
	ErrNotRunning = errors.New("not running")
)

// PIDFile records the PID of a long-running pulse process.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Acquire writes the current PID. A file left by a dead process is
// replaced; one held by a live process yields ErrRunning.
func (p *PIDFile) Acquire() error {
	if pid, running := p.IsRunning(); running && pid != os.Getpid() {
		return fmt.Errorf("pid %d: %w", pid, ErrRunning)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create pid dir: %w", err)
	}
	return p.write(os.Getpid())
}

// Release removes the file if it still names the current process.
func (p *PIDFile) Release() error {
	pid, err := p.Read()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(p.Path)
}

// IsRunning reports the recorded PID and whether that process is alive.
func (p *PIDFile) IsRunning() (int, bool) {
	pid, err := p.Read()
	if err != nil {
		return 0, false
	}
	return pid, processAlive(pid)
}

// Signal delivers sig to the recorded process. A file naming a dead process
// is removed and reported as ErrNotRunning.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	pid, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	if !processAlive(pid) {
		_ = os.Remove(p.Path)
		return fmt.Errorf("pid %d: %w", pid, ErrNotRunning)
	}
	return signalProcess(pid, sig)
}

func (p *PIDFile) write(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read returns the recorded PID.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	// 0 and negative pids address process groups in kill(2).
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID file content: pid %d", pid)
	}
	return pid, nil
}
