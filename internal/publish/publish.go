// Package publish validates the Quartz settings, builds the sync command
// line and runs it through the host shell.
package publish

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mahyarmirrashed/qpb/internal/config"
	"github.com/mahyarmirrashed/qpb/internal/utils"
)

// SyncCommand is the command run inside the Quartz repository.
const SyncCommand = "npx quartz sync"

// Validate checks that cfg names an existing Quartz directory.
func Validate(cfg config.SyncConfig) error {
	if strings.TrimSpace(cfg.QuartzPath) == "" || cfg.QuartzPath == config.UnsetPath {
		return &ConfigurationError{Value: cfg.QuartzPath}
	}

	path := utils.ExpandTilde(cfg.QuartzPath)
	info, err := os.Stat(path)
	if err != nil {
		return &PathNotFoundError{Path: cfg.QuartzPath, Err: err}
	}
	if !info.IsDir() {
		return &PathNotFoundError{Path: cfg.QuartzPath, Err: errors.New("not a directory")}
	}
	return nil
}

// DefaultCommand returns the fixed sync command for path. The path is
// interpolated without shell quoting.
func DefaultCommand(path string) string {
	return fmt.Sprintf("cd %s && %s", utils.ExpandTilde(path), SyncCommand)
}

// BuildCommand returns the command override when set, or DefaultCommand.
func BuildCommand(cfg config.SyncConfig) string {
	if cfg.CommandOverride != "" {
		return cfg.CommandOverride
	}
	return DefaultCommand(cfg.QuartzPath)
}
