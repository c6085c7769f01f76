package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/farmergreg/rfsnotify"
	"github.com/mahyarmirrashed/qpb/internal/excluder"
	"github.com/mahyarmirrashed/qpb/internal/utils"
	log "github.com/sirupsen/logrus"
	"gopkg.in/fsnotify.v1"
)

// Options configures the content watcher.
type Options struct {
	Root    string        // Directory watched recursively
	Exclude []string      // Glob patterns whose events are ignored
	Delay   time.Duration // Quiet period before a sync is triggered
}

// RunDaemon watches opts.Root and calls trigger once the tree has been quiet
// for opts.Delay after a change. It blocks until a signal or context cancellation.
func RunDaemon(ctx context.Context, opts Options, trigger func()) error {
	dir := utils.ExpandTilde(opts.Root)

	ex, err := excluder.New(opts.Exclude, dir)
	if err != nil {
		return err
	}

	watcher, err := rfsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err = watcher.AddRecursive(dir); err != nil {
		return err
	}

	// Signal handling for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	deb := newDebouncer(opts.Delay, trigger)
	defer deb.Stop()

	log.Infof("Watching %s for changes", dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, ex) {
				log.Debugf("Ignored: %s", event)
				continue
			}
			log.Debugf("Change: %s", event)
			deb.Touch()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("error:", err)
		case sig := <-signals:
			log.Infof("Received signal: %s, shutting down...", sig)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// relevant reports whether event should lead to a sync.
func relevant(event fsnotify.Event, ex *excluder.Excluder) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return !ex.IsExcluded(event.Name)
}

// debouncer calls fn once no Touch has happened for delay.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

func newDebouncer(delay time.Duration, fn func()) *debouncer {
	return &debouncer{delay: delay, fn: fn}
}

func (d *debouncer) Touch() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}
