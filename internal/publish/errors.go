package publish

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or placeholder Quartz path.
type ConfigurationError struct {
	Value string
}

func (e *ConfigurationError) Error() string {
	return "missing Quartz path: set one in the qpb settings"
}

// PathNotFoundError reports a configured path that is absent on disk
// or is not a directory.
type PathNotFoundError struct {
	Path string
	Err  error
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("Quartz path %q does not exist: %v", e.Path, e.Err)
}

func (e *PathNotFoundError) Unwrap() error { return e.Err }

// ExecutionError reports a command that failed to launch or exited non-zero.
type ExecutionError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("command failed: %s: %v", e.Command, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// OutputError reports a command that exited cleanly but wrote
// error-bearing text to stderr.
type OutputError struct {
	Stderr string
}

func (e *OutputError) Error() string {
	return e.Stderr
}
