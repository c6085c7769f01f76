// Package notify delivers user-facing notices about sync runs.
package notify

import (
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	log "github.com/sirupsen/logrus"
)

// Level classifies a notice.
type Level int

const (
	LevelProgress Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelProgress:
		return "progress"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// Display durations for notices.
const (
	ProgressTimeout       = 5 * time.Second
	ConfigErrorTimeout    = 10 * time.Second
	ExecutionErrorTimeout = 40 * time.Second
	SuccessTimeout        = 100 * time.Second
)

// Notice is a timed, user-visible message.
type Notice struct {
	Level   Level
	Title   string
	Message string
	Timeout time.Duration
}

// Notifier is the sink for notices.
type Notifier interface {
	Notify(n Notice)
}

// Log writes notices to logrus.
type Log struct{}

func (Log) Notify(n Notice) {
	entry := log.WithFields(log.Fields{
		"kind":    n.Level.String(),
		"timeout": n.Timeout,
	})
	switch n.Level {
	case LevelError:
		entry.Error(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Desktop shows notices through the OS notification center.
type Desktop struct {
	// Icon is passed to beeep as-is; a file path or image bytes.
	Icon any
}

func (d Desktop) Notify(n Notice) {
	var err error
	if n.Level == LevelError {
		err = beeep.Alert(n.Title, n.Message, d.Icon)
	} else {
		err = beeep.Notify(n.Title, n.Message, d.Icon)
	}
	if err != nil {
		log.Warnf("Notification failed: %v", err)
	}
}

// Multi fans a notice out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(n Notice) {
	for _, nn := range m {
		nn.Notify(n)
	}
}

// New returns the notifier for the given settings: always the log, plus
// desktop notices when enabled.
func New(desktop bool) Notifier {
	if !desktop {
		return Log{}
	}
	return Multi{Log{}, Desktop{Icon: ""}}
}

// Recorder keeps every notice it receives. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Terminal returns the recorded notices that are not progress updates.
func (r *Recorder) Terminal() []Notice {
	var out []Notice
	for _, n := range r.Notices() {
		if n.Level != LevelProgress {
			out = append(out, n)
		}
	}
	return out
}
