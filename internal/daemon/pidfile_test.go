package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_WritesCurrentPID(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "run", "pulse-serve.pid"))

	require.NoError(t, pf.Acquire())
	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	pid, running := pf.IsRunning()
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquire_ReplacesStaleFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "pulse-serve.pid"))
	require.NoError(t, pf.write(999999))

	require.NoError(t, pf.Acquire())
	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquire_RefusesLiveOwner(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "pulse-serve.pid"))
	require.NoError(t, pf.write(os.Getppid()))

	err := pf.Acquire()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunning))
}

func TestRelease(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "pulse-serve.pid"))

	// Nothing to release.
	assert.NoError(t, pf.Release())

	require.NoError(t, pf.Acquire())
	require.NoError(t, pf.Release())
	_, err := os.Stat(pf.Path)
	assert.True(t, os.IsNotExist(err))

	// A file owned by someone else is left alone.
	require.NoError(t, pf.write(999999))
	require.NoError(t, pf.Release())
	_, err = os.Stat(pf.Path)
	assert.NoError(t, err)
}

func TestRead_InvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number\n"), 0o644))

	_, err := NewPIDFile(path).Read()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PID file content")
}

func TestRead_RejectsNonPositivePID(t *testing.T) {
	for _, content := range []string{"0\n", "-1\n"} {
		path := filepath.Join(t.TempDir(), "group.pid")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		pf := NewPIDFile(path)
		_, err := pf.Read()
		assert.Error(t, err, content)
		_, running := pf.IsRunning()
		assert.False(t, running, content)
	}
}

func TestIsRunning_NoFile(t *testing.T) {
	pid, running := NewPIDFile(filepath.Join(t.TempDir(), "missing.pid")).IsRunning()
	assert.Equal(t, 0, pid)
	assert.False(t, running)
}

func TestSignal(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "pulse-serve.pid"))
	require.NoError(t, pf.Acquire())

	// Signal 0 only checks that the process exists.
	assert.NoError(t, pf.Signal(syscall.Signal(0)))

	missing := NewPIDFile(filepath.Join(t.TempDir(), "missing.pid"))
	err := missing.Signal(syscall.Signal(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read PID file")
}

func TestSignal_StaleFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "pulse-serve.pid"))
	require.NoError(t, pf.write(999999))

	err := pf.Signal(syscall.SIGTERM)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotRunning))

	_, statErr := os.Stat(pf.Path)
	assert.True(t, os.IsNotExist(statErr), "stale pid file is removed")
}
