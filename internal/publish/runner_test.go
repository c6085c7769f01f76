package publish

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/mahyarmirrashed/qpb/internal/config"
	"github.com/mahyarmirrashed/qpb/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*Runner, *notify.Recorder) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("runner tests use POSIX shell syntax")
	}
	rec := &notify.Recorder{}
	return NewRunner(rec), rec
}

func TestRunConfigurationErrorSpawnsNothing(t *testing.T) {
	r, rec := newTestRunner(t)
	marker := filepath.Join(t.TempDir(), "ran")

	out := r.Run(config.SyncConfig{QuartzPath: "", CommandOverride: "touch " + marker})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, out.Err, &cfgErr)
	assert.NoFileExists(t, marker)

	notices := rec.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, notify.LevelError, notices[0].Level)
	assert.Equal(t, notify.ConfigErrorTimeout, notices[0].Timeout)
	assert.Contains(t, notices[0].Message, "Missing Quartz Path")
}

func TestRunPathNotFoundSpawnsNothing(t *testing.T) {
	r, rec := newTestRunner(t)
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	out := r.Run(config.SyncConfig{QuartzPath: filepath.Join(dir, "missing"), CommandOverride: "touch " + marker})

	var pathErr *PathNotFoundError
	require.ErrorAs(t, out.Err, &pathErr)
	assert.NoFileExists(t, marker)
	require.Len(t, rec.Notices(), 1)
	assert.Contains(t, rec.Notices()[0].Message, "does not exist")
}

func TestRunExecutionError(t *testing.T) {
	r, rec := newTestRunner(t)

	out := r.Run(config.SyncConfig{QuartzPath: t.TempDir(), CommandOverride: "echo partial; exit 3"})

	var execErr *ExecutionError
	require.ErrorAs(t, out.Err, &execErr)
	assert.Contains(t, execErr.Error(), "exit status 3")

	terminal := rec.Terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, notify.LevelError, terminal[0].Level)
	assert.Equal(t, notify.ExecutionErrorTimeout, terminal[0].Timeout)
	assert.Contains(t, terminal[0].Message, "exit status 3")
	for _, n := range rec.Notices() {
		assert.NotEqual(t, notify.LevelSuccess, n.Level)
	}
}

func TestRunLaunchError(t *testing.T) {
	r, rec := newTestRunner(t)
	r.Shell = []string{filepath.Join(t.TempDir(), "no-such-shell"), "-c"}

	out := r.Run(config.SyncConfig{QuartzPath: t.TempDir()})

	var execErr *ExecutionError
	require.ErrorAs(t, out.Err, &execErr)
	assert.ErrorIs(t, out.Err, os.ErrNotExist)
	assert.Len(t, rec.Terminal(), 1)
}

func TestRunOutputError(t *testing.T) {
	r, rec := newTestRunner(t)

	out := r.Run(config.SyncConfig{QuartzPath: t.TempDir(), CommandOverride: "echo 'Error: disk full' >&2"})

	var outErr *OutputError
	require.ErrorAs(t, out.Err, &outErr)

	terminal := rec.Terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, notify.LevelError, terminal[0].Level)
	assert.Contains(t, terminal[0].Message, "Error: disk full")
}

func TestRunStderrWithoutErrorIsSuccess(t *testing.T) {
	r, rec := newTestRunner(t)

	out := r.Run(config.SyncConfig{QuartzPath: t.TempDir(), CommandOverride: "echo warning >&2; echo done"})

	require.NoError(t, out.Err)
	terminal := rec.Terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, "done", terminal[0].Message)
}

func TestRunSuccess(t *testing.T) {
	r, rec := newTestRunner(t)

	out := r.Run(config.SyncConfig{QuartzPath: t.TempDir(), CommandOverride: "echo 'synced 3 files'"})

	require.NoError(t, out.Err)
	assert.Equal(t, "synced 3 files\n", out.Stdout)

	notices := rec.Notices()
	require.Len(t, notices, 2)
	assert.Equal(t, notify.LevelProgress, notices[0].Level)
	assert.Equal(t, notify.LevelSuccess, notices[1].Level)
	assert.Equal(t, notify.SuccessTimeout, notices[1].Timeout)
	assert.Contains(t, notices[1].Message, "synced 3 files")
	assert.Equal(t, NoticeTitle, notices[1].Title)
}

func TestRunSuccessWithoutOutput(t *testing.T) {
	r, rec := newTestRunner(t)

	out := r.Run(config.SyncConfig{QuartzPath: t.TempDir(), CommandOverride: "true"})

	require.NoError(t, out.Err)
	terminal := rec.Terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, FinishedMessage, terminal[0].Message)
}

func TestRunDefaultCommandChangesDirectory(t *testing.T) {
	r, _ := newTestRunner(t)
	dir := t.TempDir()
	// Stand-in for npx so the default command can run offline.
	bin := t.TempDir()
	script := "#!/bin/sh\necho \"$@\"; pwd\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "npx"), []byte(script), 0755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	out := r.Run(config.SyncConfig{QuartzPath: dir})

	require.NoError(t, out.Err)
	assert.Equal(t, "cd "+dir+" && npx quartz sync", out.Command)
	assert.Contains(t, out.Stdout, "quartz sync")
	assert.Contains(t, out.Stdout, dir)
}

func TestRunIgnoreOverride(t *testing.T) {
	r, _ := newTestRunner(t)
	r.IgnoreOverride = true
	r.Shell = []string{"echo"}

	out := r.Run(config.SyncConfig{QuartzPath: "/", CommandOverride: "custom cmd"})

	require.NoError(t, out.Err)
	assert.Equal(t, "cd / && npx quartz sync", out.Command)
}

func TestTriggerDoesNotBlock(t *testing.T) {
	r, rec := newTestRunner(t)
	dir := t.TempDir()
	release := filepath.Join(dir, "release")

	// The command waits until the test creates the release file.
	done := r.Trigger(config.SyncConfig{
		QuartzPath:      dir,
		CommandOverride: "while [ ! -e " + release + " ]; do sleep 0.01; done; echo released",
	})

	select {
	case <-done:
		t.Fatal("Trigger waited for the command")
	default:
	}

	require.NoError(t, os.WriteFile(release, nil, 0644))
	out, ok := <-done
	require.True(t, ok)
	require.NoError(t, out.Err)
	assert.Equal(t, "released\n", out.Stdout)

	_, ok = <-done
	assert.False(t, ok, "channel must be closed after the outcome")
	assert.Len(t, rec.Terminal(), 1)
}

func TestConcurrentTriggersReportIndependently(t *testing.T) {
	r, rec := newTestRunner(t)
	dir := t.TempDir()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := r.Run(config.SyncConfig{QuartzPath: dir, CommandOverride: "echo ok"})
			assert.NoError(t, out.Err)
		}()
	}
	wg.Wait()

	assert.Len(t, rec.Terminal(), 5)
}

func TestNoticeForUnknownError(t *testing.T) {
	n := NoticeFor(Outcome{Err: assert.AnError})
	assert.Equal(t, notify.LevelError, n.Level)
	assert.Contains(t, n.Message, assert.AnError.Error())
}
