package daemon

import (
	"os"
	"os/exec"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Controller manages a `qpb watch` subprocess started from the GUI.
type Controller struct {
	cmd     *exec.Cmd
	mu      sync.Mutex
	running bool
	onExit  func()
}

func NewController() *Controller {
	return &Controller{}
}

// OnExit registers fn to run after the subprocess exits.
func (d *Controller) OnExit(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.onExit = fn
}

// Start the watcher if not running.
func (d *Controller) Start(executable string, args ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil // Already running
	}

	d.cmd = exec.Command(executable, args...)
	d.cmd.Stdout = os.Stdout
	d.cmd.Stderr = os.Stderr

	err := d.cmd.Start()
	if err != nil {
		d.cmd = nil
		d.running = false
		return err
	}

	d.running = true
	go d.waitForExit(d.cmd)
	log.Infof("Watcher started with PID %d", d.cmd.Process.Pid)
	return nil
}

// Stop the watcher if running.
func (d *Controller) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || d.cmd == nil || d.cmd.Process == nil {
		return nil // Already stopped
	}

	if err := d.cmd.Process.Kill(); err != nil {
		return err
	}

	log.Info("Watcher instructed to stop")
	return nil
}

// Toggle the watcher state (start if stopped, stop if running).
func (d *Controller) Toggle(executable string, args ...string) error {
	if d.IsRunning() {
		return d.Stop()
	}
	return d.Start(executable, args...)
}

// IsRunning reports whether the watcher subprocess is alive.
func (d *Controller) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.running
}

func (d *Controller) waitForExit(cmd *exec.Cmd) {
	err := cmd.Wait()

	d.mu.Lock()
	if d.cmd == cmd {
		d.cmd = nil
		d.running = false
	}
	onExit := d.onExit
	d.mu.Unlock()

	if err != nil {
		log.Warnf("Watcher exited with error: %v", err)
	} else {
		log.Info("Watcher exited")
	}

	if onExit != nil {
		onExit()
	}
}
