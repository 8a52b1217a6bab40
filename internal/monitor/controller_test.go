package monitor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivium-ecommerce/fulfillment/internal/domain"
	"github.com/trivium-ecommerce/fulfillment/internal/monitor"
)

func newController(t *testing.T) *monitor.Controller {
	t.Helper()
	return monitor.NewController(filepath.Join(t.TempDir(), "monitor.pid"), nil)
}

func TestLifecycleStates(t *testing.T) {
	c := newController(t)

	state, pid := c.Status()
	assert.Equal(t, monitor.StateStopped, state)
	assert.Zero(t, pid)

	require.NoError(t, c.Acquire())
	state, pid = c.Status()
	assert.Equal(t, monitor.StateStarting, state)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, c.MarkRunning())
	state, _ = c.Status()
	assert.Equal(t, monitor.StateRunning, state)

	require.NoError(t, c.Release())
	state, _ = c.Status()
	assert.Equal(t, monitor.StateStopped, state)
}

func TestAcquire_SecondInstanceRejected(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Acquire())

	err := c.Acquire()
	assert.ErrorIs(t, err, domain.ErrMonitorAlreadyRunning)
}

func TestAcquire_StalePIDFileReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.pid")
	// PID за пределами pid_max: такого процесса нет.
	require.NoError(t, os.WriteFile(path, []byte("4999999 running"), 0o644))

	c := monitor.NewController(path, nil)
	require.NoError(t, c.Acquire())

	state, pid := c.Status()
	assert.Equal(t, monitor.StateStarting, state)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquire_MalformedPIDFileReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	c := monitor.NewController(path, nil)
	require.NoError(t, c.Acquire())
}

func TestStatus_FileWithoutStateDefaultsToRunning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.pid")
	// Файл от старой версии: только PID.
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	c := monitor.NewController(path, nil)
	state, pid := c.Status()
	assert.Equal(t, monitor.StateRunning, state)
	assert.Equal(t, 1, pid)
}

func TestRelease_Idempotent(t *testing.T) {
	c := newController(t)
	require.NoError(t, c.Acquire())
	require.NoError(t, c.Release())
	assert.NoError(t, c.Release())
}

func TestStop_NotRunning(t *testing.T) {
	c := newController(t)
	assert.ErrorIs(t, c.Stop(), domain.ErrMonitorNotRunning)
}
