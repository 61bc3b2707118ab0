// Package presenter mediates between the shell and the measurement model.
// Every exported method must be called on the UI-affine goroutine; slow work
// is handed to a worker.Runner and its results come back through the
// Dispatcher.
package presenter

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/user/testpad_go/internal/config"
	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/model"
	"github.com/user/testpad_go/internal/report"
	"github.com/user/testpad_go/internal/viewstate"
	"github.com/user/testpad_go/internal/worker"
)

// Level is the severity of a user message.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// MarshalText encodes the level by name for the shell.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Message is user-facing text. Internal error detail goes to the log only.
type Message struct {
	Level Level  `json:"level"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Renderer draws view states and shows messages. It never sees the model.
type Renderer interface {
	Render(vs viewstate.ViewState)
	Notify(msg Message)
	// SetBusy shows label as a "still working" indicator; "" hides it.
	SetBusy(label string)
}

// FilePicker asks the user for a path. ok is false when the user cancelled.
type FilePicker interface {
	OpenFile(title string) (path string, ok bool, err error)
	SaveFile(title, suggested string) (path string, ok bool, err error)
	SelectDirectory(title, current string) (path string, ok bool, err error)
}

// Prompter asks a yes/no question.
type Prompter interface {
	Confirm(title, text string) bool
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Spec     *device.Spec
	Fs       afero.Fs
	Config   config.Config
	Renderer Renderer
	Picker   FilePicker
	Prompter Prompter
	Charts   report.ChartRenderer
	Dispatch worker.Dispatcher
	Clock    model.Clock
	Log      logrus.FieldLogger
}

// Coordinator owns one measurement tab: its model, its current view state
// and its background jobs.
type Coordinator struct {
	spec      *device.Spec
	fs        afero.Fs
	cfg       config.Config
	outputDir string

	model *model.Model
	view  viewstate.ViewState

	renderer Renderer
	picker   FilePicker
	prompter Prompter
	charts   report.ChartRenderer
	clock    model.Clock
	log      logrus.FieldLogger

	jobs      *worker.Runner
	reportJob *worker.Job
	importJob *worker.Job
	busy      map[string]string
}

// New builds a Coordinator with an empty session. Jobs are children of ctx.
func New(ctx context.Context, d Deps) *Coordinator {
	if d.Clock == nil {
		d.Clock = model.SystemClock{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Charts == nil {
		d.Charts = report.GonumChart{}
	}
	log := d.Log.WithFields(logrus.Fields{"component": "presenter", "device": d.Spec.Name})
	c := &Coordinator{
		spec:      d.Spec,
		fs:        d.Fs,
		cfg:       d.Config,
		outputDir: d.Config.OutputDir,
		model: model.New(d.Spec,
			model.WithFs(d.Fs),
			model.WithClock(d.Clock),
			model.WithPrecision(d.Config.CSVPrecision)),
		renderer: d.Renderer,
		picker:   d.Picker,
		prompter: d.Prompter,
		charts:   d.Charts,
		clock:    d.Clock,
		log:      log,
		jobs:     worker.NewRunner(ctx, d.Dispatch, log),
		busy:     make(map[string]string),
	}
	c.view = viewstate.Build(c.model.GetState())
	return c
}

// View returns the view state last handed to the renderer.
func (c *Coordinator) View() viewstate.ViewState { return c.view }

// OutputDir returns the directory reports are written to.
func (c *Coordinator) OutputDir() string { return c.outputDir }

// ReportRunning reports whether a report job is in flight.
func (c *Coordinator) ReportRunning() bool { return c.reportJob != nil }

// commit rebuilds the view state from a snapshot taken after a mutation has
// fully applied and renders it.
func (c *Coordinator) commit(snap model.Snapshot) {
	c.view = viewstate.Build(snap)
	c.renderer.Render(c.view)
}

// reject reports a failed edit. The previous view state is rendered again so
// the edited field reverts.
func (c *Coordinator) reject(action string, err error) {
	c.log.WithError(err).WithField("action", action).Warn("Edit rejected")
	c.notify(LevelError, titleFor(action), userMessage(err))
	c.renderer.Render(c.view)
}

func (c *Coordinator) notify(level Level, title, text string) {
	c.renderer.Notify(Message{Level: level, Title: title, Text: text})
}

func (c *Coordinator) info(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.log.Info(text)
	c.notify(LevelInfo, "", text)
}

// setBusy tracks one "still working" label per task.
func (c *Coordinator) setBusy(task, label string) {
	if label == "" {
		delete(c.busy, task)
	} else {
		c.busy[task] = label
	}
	for _, name := range []string{taskReport, taskImport, taskExport} {
		if l, ok := c.busy[name]; ok {
			c.renderer.SetBusy(l)
			return
		}
	}
	c.renderer.SetBusy("")
}
