package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/user/testpad_go/internal/config"
	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/presenter"
	"github.com/user/testpad_go/internal/report"
	"github.com/user/testpad_go/internal/uiloop"
)

// App is bound to the frontend. Every call is forwarded to the measurement
// tab on the UI loop, so the tab never sees two calls at once.
type App struct {
	ctx  context.Context
	cfg  config.Config
	fs   afero.Fs
	spec *device.Spec
	log  *logrus.Logger

	loop     *uiloop.Loop
	tab      *presenter.Coordinator
	restored bool
}

// NewApp creates a new App application struct
func NewApp(cfg config.Config, fs afero.Fs, spec *device.Spec, log *logrus.Logger) *App {
	return &App{cfg: cfg, fs: fs, spec: spec, log: log, loop: uiloop.New()}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	runtime.WindowSetTitle(a.ctx, a.spec.ReportTitle)
	go a.loop.Run(context.Background())

	sh := &shell{ctx: ctx, log: a.log.WithField("component", "shell")}
	a.tab = presenter.New(ctx, presenter.Deps{
		Spec:     a.spec,
		Fs:       a.fs,
		Config:   a.cfg,
		Renderer: sh,
		Picker:   sh,
		Prompter: sh,
		Charts:   report.GonumChart{},
		Dispatch: a.loop,
		Log:      a.log,
	})
	a.log.WithField("state_file", a.cfg.StateFile).Info("Tab started")
}

// domReady restores the saved session once the frontend can receive events.
// A frontend reload only re-renders.
func (a *App) domReady(ctx context.Context) {
	a.do(func() {
		if !a.restored {
			a.restored = true
			_ = a.tab.RestoreState()
		}
		a.tab.OnShow()
	})
}

// shutdown stops background work, then saves the session. The save is
// queued behind any completions posted while OnClose waited.
func (a *App) shutdown(ctx context.Context) {
	a.do(a.tab.OnClose)
	a.do(func() { _ = a.tab.SaveState() })
	a.loop.Stop()
	<-a.loop.Done()
	a.log.Info("Tab closed")
}

func (a *App) do(fn func()) {
	if !a.loop.Do(fn) {
		a.log.Warn("UI loop stopped, request dropped")
	}
}

// Refresh re-sends the current view state.
func (a *App) Refresh() { a.do(a.tab.OnShow) }

// SetMetadata updates "operator", "location" or "serial_number".
func (a *App) SetMetadata(field, text string) {
	a.do(func() { a.tab.OnMetadataChanged(field, text) })
}

// SetTestDate takes a YYYY-MM-DD date.
func (a *App) SetTestDate(text string) {
	a.do(func() { a.tab.OnTestDateChanged(text) })
}

// SetReading sets or, with blank value, clears one minute of the series.
func (a *App) SetReading(index, value string) {
	a.do(func() { a.tab.OnReadingEdited(index, value) })
}

// SetAmbient sets or clears the bath temperature.
func (a *App) SetAmbient(text string) {
	a.do(func() { a.tab.OnAmbientEdited(text) })
}

// SetTestCell edits one cell of the test table. column is "pass_fail",
// "measured", "spec_min" or "spec_max".
func (a *App) SetTestCell(key, column, text string) {
	col, err := presenter.ParseColumn(column)
	if err != nil {
		a.log.WithError(err).Warn("Frontend sent an unknown column")
		return
	}
	a.do(func() { a.tab.OnTestRowEdited(key, col, text) })
}

// ImportCSV asks for a CSV file and imports it.
func (a *App) ImportCSV() { a.do(a.tab.OnImportCSV) }

// ExportCSV asks for a destination and exports the series.
func (a *App) ExportCSV() { a.do(a.tab.OnExportCSV) }

// GenerateReport starts a PDF report in the background.
func (a *App) GenerateReport() { a.do(a.tab.OnGenerateReport) }

// SelectOutputDir changes the report folder.
func (a *App) SelectOutputDir() { a.do(a.tab.OnSelectOutputDir) }

// OutputDir returns the report folder.
func (a *App) OutputDir() string {
	var dir string
	a.do(func() { dir = a.tab.OutputDir() })
	return dir
}

// Reset clears the session after confirmation.
func (a *App) Reset() { a.do(a.tab.OnReset) }
