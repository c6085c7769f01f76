package daemon

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerLifecycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep(1)")
	}
	ctl := NewController()
	exited := make(chan struct{})
	ctl.OnExit(func() { close(exited) })

	require.NoError(t, ctl.Toggle("sleep", "30"))
	assert.True(t, ctl.IsRunning())

	// Starting again is a no-op.
	require.NoError(t, ctl.Start("sleep", "30"))

	require.NoError(t, ctl.Toggle("sleep", "30"))
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not exit")
	}
	assert.False(t, ctl.IsRunning())
	assert.NoError(t, ctl.Stop())
}

func TestControllerStartFailure(t *testing.T) {
	ctl := NewController()
	assert.Error(t, ctl.Start("qpb-no-such-binary"))
	assert.False(t, ctl.IsRunning())
}
