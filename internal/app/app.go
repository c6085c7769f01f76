// Package app owns the settings and wires every trigger surface to the
// sync runner.
package app

import (
	"fmt"
	"sync"

	"github.com/mahyarmirrashed/qpb/internal/config"
	"github.com/mahyarmirrashed/qpb/internal/publish"
	log "github.com/sirupsen/logrus"
)

// Handler is what trigger surfaces (CLI, GUI button, watcher) call into.
type Handler interface {
	OnTriggerSync() <-chan publish.Outcome
	OnSettingsChanged(edit func(*config.Config)) error
}

// App holds the loaded settings and persists every edit through its store.
type App struct {
	mu     sync.Mutex
	cfg    *config.Config
	store  config.Store
	runner *publish.Runner
}

var _ Handler = (*App)(nil)

// New loads the settings from store.
func New(store config.Store, runner *publish.Runner) (*App, error) {
	cfg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &App{cfg: cfg, store: store, runner: runner}, nil
}

// Config returns a copy of the current settings.
func (a *App) Config() config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := *a.cfg
	c.Exclude = append([]string(nil), a.cfg.Exclude...)
	return c
}

// OnTriggerSync starts a sync with the current settings.
func (a *App) OnTriggerSync() <-chan publish.Outcome {
	cfg := a.Config()
	log.Debugf("Sync triggered for %q", cfg.QuartzPath)
	return a.runner.Trigger(cfg.SyncConfig)
}

// OnTriggerFixedSync starts a sync with the default command, ignoring any override.
func (a *App) OnTriggerFixedSync() <-chan publish.Outcome {
	r := *a.runner
	r.IgnoreOverride = true
	return r.Trigger(a.Config().SyncConfig)
}

// OnSettingsChanged applies edit and saves the result immediately.
// On a failed save the in-memory settings keep the edit.
func (a *App) OnSettingsChanged(edit func(*config.Config)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	edit(a.cfg)
	if err := a.store.Save(a.cfg); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	log.Debug("Settings saved")
	return nil
}

func (a *App) SetQuartzPath(path string) error {
	return a.OnSettingsChanged(func(c *config.Config) { c.QuartzPath = path })
}

func (a *App) SetCommandOverride(command string) error {
	return a.OnSettingsChanged(func(c *config.Config) { c.CommandOverride = command })
}
