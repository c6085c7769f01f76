package publish

import (
	"bytes"
	"errors"
	"os/exec"
	"runtime"
	"strings"

	"github.com/mahyarmirrashed/qpb/internal/config"
	"github.com/mahyarmirrashed/qpb/internal/notify"
	log "github.com/sirupsen/logrus"
)

// NoticeTitle is the title of every notice sent by a Runner.
const NoticeTitle = "Quartz Publish"

// FinishedMessage is reported when the command succeeds without output.
const FinishedMessage = "Quartz sync finished"

// Outcome is the result of a single sync invocation.
type Outcome struct {
	Command string
	Stdout  string
	Stderr  string
	Err     error // nil on success
}

// Runner validates settings, runs the sync command and reports the outcome.
type Runner struct {
	Notifier notify.Notifier

	// Shell is the program and leading arguments the command string is appended to.
	Shell []string

	// IgnoreOverride runs DefaultCommand even when an override is configured.
	IgnoreOverride bool
}

// DefaultShell returns the host shell invocation.
func DefaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

func NewRunner(n notify.Notifier) *Runner {
	return &Runner{Notifier: n, Shell: DefaultShell()}
}

// Trigger validates cfg and starts the sync command without blocking.
// The returned channel receives exactly one Outcome and is then closed.
// Exactly one terminal notice is sent per call.
func (r *Runner) Trigger(cfg config.SyncConfig) <-chan Outcome {
	done := make(chan Outcome, 1)

	if err := Validate(cfg); err != nil {
		r.report(Outcome{Err: err})
		done <- Outcome{Err: err}
		close(done)
		return done
	}

	command := r.command(cfg)
	r.notify(notify.Notice{
		Level:   notify.LevelProgress,
		Message: "Publishing with Quartz...",
		Timeout: notify.ProgressTimeout,
	})

	go func() {
		defer close(done)
		out := r.exec(command)
		r.report(out)
		done <- out
	}()
	return done
}

// Run is Trigger followed by a wait for the outcome.
func (r *Runner) Run(cfg config.SyncConfig) Outcome {
	return <-r.Trigger(cfg)
}

func (r *Runner) command(cfg config.SyncConfig) string {
	if r.IgnoreOverride {
		return DefaultCommand(cfg.QuartzPath)
	}
	return BuildCommand(cfg)
}

func (r *Runner) exec(command string) Outcome {
	shell := r.Shell
	if len(shell) == 0 {
		shell = DefaultShell()
	}
	args := append(append([]string{}, shell[1:]...), command)

	log.Debugf("Running %s %s", shell[0], strings.Join(args, " "))

	cmd := exec.Command(shell[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Outcome{Command: command, Stdout: stdout.String(), Stderr: stderr.String()}
	out.Err = classify(command, out.Stdout, out.Stderr, err)
	return out
}

// classify maps process results to the error taxonomy. A nil return means success.
func classify(command, stdout, stderr string, err error) error {
	if err != nil {
		return &ExecutionError{Command: command, Stderr: stderr, Err: err}
	}
	if strings.Contains(strings.ToLower(stderr), "error") {
		return &OutputError{Stderr: stderr}
	}
	return nil
}

func (r *Runner) report(out Outcome) {
	r.notify(NoticeFor(out))
}

func (r *Runner) notify(n notify.Notice) {
	if r.Notifier == nil {
		return
	}
	n.Title = NoticeTitle
	r.Notifier.Notify(n)
}

// NoticeFor renders the terminal notice for out.
func NoticeFor(out Outcome) notify.Notice {
	var (
		cfgErr  *ConfigurationError
		pathErr *PathNotFoundError
		execErr *ExecutionError
		outErr  *OutputError
	)

	switch {
	case out.Err == nil:
		msg := strings.TrimSpace(out.Stdout)
		if msg == "" {
			msg = FinishedMessage
		}
		return notify.Notice{Level: notify.LevelSuccess, Message: msg, Timeout: notify.SuccessTimeout}
	case errors.As(out.Err, &cfgErr):
		return notify.Notice{
			Level:   notify.LevelError,
			Message: "Error: Missing Quartz Path. Please set one in the qpb settings.",
			Timeout: notify.ConfigErrorTimeout,
		}
	case errors.As(out.Err, &pathErr):
		return notify.Notice{
			Level:   notify.LevelError,
			Message: "Error: Quartz path does not exist!\nPlease check the path in the qpb settings: " + pathErr.Path,
			Timeout: notify.ConfigErrorTimeout,
		}
	case errors.As(out.Err, &execErr):
		return notify.Notice{
			Level:   notify.LevelError,
			Message: "Execution Error: " + execErr.Error(),
			Timeout: notify.ExecutionErrorTimeout,
		}
	case errors.As(out.Err, &outErr):
		return notify.Notice{
			Level:   notify.LevelError,
			Message: "Error: " + outErr.Stderr,
			Timeout: notify.ExecutionErrorTimeout,
		}
	}
	return notify.Notice{Level: notify.LevelError, Message: "Error: " + out.Err.Error(), Timeout: notify.ExecutionErrorTimeout}
}
