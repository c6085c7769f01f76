package main

import (
	"fmt"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/mahyarmirrashed/qpb/internal/app"
	"github.com/mahyarmirrashed/qpb/internal/config"
	"github.com/mahyarmirrashed/qpb/internal/daemon"
	"github.com/mahyarmirrashed/qpb/internal/notify"
	"github.com/mahyarmirrashed/qpb/internal/publish"
	"github.com/mahyarmirrashed/qpb/internal/utils"
)

func init() {
	// Configure logger to include timestamp and caller (file:line)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		},
	})
	log.SetReportCaller(true)
}

// statusNotifier shows notices in the window and, for terminal notices,
// through the desktop notification center.
type statusNotifier struct {
	app    fyne.App
	status *widget.Label
}

func (s *statusNotifier) Notify(n notify.Notice) {
	fyne.Do(func() {
		s.status.SetText(n.Message)
	})
	if n.Level != notify.LevelProgress {
		s.app.SendNotification(fyne.NewNotification(n.Title, n.Message))
	}
}

func main() {
	a := fyneapp.NewWithID("io.github.mahyarmirrashed.qpb")
	w := a.NewWindow("Quartz Publish Button")
	w.Resize(fyne.NewSize(480, 320))

	watchExecutable := "qpb"
	cfgPath := filepath.Join(utils.ExpandTilde("~"), config.DefaultConfigFilename)

	status := widget.NewLabel("")
	status.Wrapping = fyne.TextWrapWord

	runner := publish.NewRunner(notify.Multi{notify.Log{}, &statusNotifier{app: a, status: status}})
	host, err := app.New(config.NewFileStore(cfgPath), runner)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	cfg := host.Config()
	utils.SetLogLevel(cfg.LogLevel)

	pathEntry := widget.NewEntry()
	pathEntry.SetPlaceHolder("Quartz repo path")
	pathEntry.SetText(cfg.QuartzPath)
	pathEntry.OnChanged = func(value string) {
		if err := host.SetQuartzPath(value); err != nil {
			dialog.ShowError(err, w)
		}
	}

	overrideEntry := widget.NewEntry()
	overrideEntry.SetPlaceHolder("Command override")
	overrideEntry.SetText(cfg.CommandOverride)
	overrideEntry.OnChanged = func(value string) {
		if err := host.SetCommandOverride(value); err != nil {
			dialog.ShowError(err, w)
		}
	}

	syncBtn := widget.NewButtonWithIcon("Run Quartz Sync", theme.UploadIcon(), func() {
		// The runner reports through statusNotifier; the outcome is only logged here.
		go func() {
			out := <-host.OnTriggerSync()
			if out.Err != nil {
				log.Debugf("Sync failed: %v", out.Err)
			}
		}()
	})

	watchCtrl := daemon.NewController()

	toggleBtn := widget.NewButton("Start Auto-Publish", nil)
	toggleBtn.OnTapped = func() {
		err := watchCtrl.Toggle(watchExecutable, "--config", cfgPath, "watch")
		if err != nil {
			dialog.ShowError(fmt.Errorf("watcher control failed: %v", err), w)
			return
		}
		updateToggleButton(toggleBtn, watchCtrl)
	}

	watchCtrl.OnExit(func() {
		fyne.Do(func() {
			updateToggleButton(toggleBtn, watchCtrl)
		})
	})

	form := container.NewVBox(
		widget.NewLabelWithStyle("Quartz repository location", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("The path to the folder that contains the Quartz files."),
		pathEntry,

		widget.NewLabelWithStyle("Command Override", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Override the default Quartz sync command. Use only if you know what you're doing."),
		overrideEntry,

		container.NewGridWithColumns(2,
			syncBtn,
			toggleBtn,
		),
		status,
	)

	content := container.NewPadded(container.NewScroll(form))
	w.SetContent(content)

	a.Lifecycle().SetOnStopped(func() {
		if err := watchCtrl.Stop(); err != nil {
			log.Warnf("Error stopping watcher on app exit: %v", err)
		}
	})

	updateToggleButton(toggleBtn, watchCtrl)

	w.ShowAndRun()
}

// updateToggleButton updates the toggle button label based on watcher state
func updateToggleButton(btn *widget.Button, ctrl *daemon.Controller) {
	if ctrl.IsRunning() {
		btn.SetText("Stop Auto-Publish")
	} else {
		btn.SetText("Start Auto-Publish")
	}
	btn.Refresh()
}
