package presenter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/user/testpad_go/internal/model"
	"github.com/user/testpad_go/internal/parser"
	"github.com/user/testpad_go/internal/report"
	"github.com/user/testpad_go/internal/worker"
)

const (
	taskImport = "import_csv"
	taskExport = "export_csv"
	taskReport = "generate_report"
)

// OnImportCSV asks for a file and imports it. Parsing runs on the worker;
// the parsed records are applied atomically back on the UI goroutine.
func (c *Coordinator) OnImportCSV() {
	if c.importJob != nil {
		c.notify(LevelWarning, "Import", "An import is already running.")
		return
	}
	path, ok, err := c.picker.OpenFile("Import " + c.spec.Name + " Data")
	if err != nil {
		c.reject("import", err)
		return
	}
	if !ok {
		return
	}

	fs, schema := c.fs, parser.SchemaFor(c.spec)
	c.importJob = worker.Submit(c.jobs, worker.Task[*parser.ParsedSeries]{
		Name:   taskImport,
		Budget: c.cfg.ImportBudget,
		Run: func(ctx context.Context) (*parser.ParsedSeries, error) {
			parsed, err := parser.ParseSeriesFile(fs, path, schema)
			if err != nil {
				return nil, err
			}
			return parsed, worker.Checkpoint(ctx)
		},
		OnSlow: func() { c.setBusy(taskImport, "Importing "+path+"...") },
		OnDone: func(parsed *parser.ParsedSeries, err error) {
			c.importJob = nil
			c.setBusy(taskImport, "")
			if err != nil {
				c.reject("import", err)
				return
			}
			snap, err := c.model.ApplyImport(path, parsed)
			if err != nil {
				c.reject("import", err)
				return
			}
			c.commit(snap)
			c.info("Imported data from %s", path)
		},
	})
}

// OnExportCSV asks for a destination and writes the current readings there.
func (c *Coordinator) OnExportCSV() {
	suggested := fmt.Sprintf("%s_data_%s.csv", strings.ToLower(strings.ReplaceAll(c.spec.Name, "-", "")), c.clock.Now().Format("060102-1504"))
	path, ok, err := c.picker.SaveFile("Export "+c.spec.Name+" Data", suggested)
	if err != nil {
		c.reject("export", err)
		return
	}
	if !ok {
		return
	}

	fs, spec, snap, precision := c.fs, c.spec, c.model.GetState(), c.model.Precision()
	worker.Submit(c.jobs, worker.Task[struct{}]{
		Name:   taskExport,
		Budget: c.cfg.ImportBudget,
		Run: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, model.ExportSnapshotCSV(fs, path, spec, snap, precision)
		},
		OnSlow: func() { c.setBusy(taskExport, "Exporting "+path+"...") },
		OnDone: func(_ struct{}, err error) {
			c.setBusy(taskExport, "")
			if err != nil {
				c.reject("export", err)
				return
			}
			c.info("Exported data to %s", path)
		},
	})
}

// OnGenerateReport produces a PDF report of the current session. Missing
// fields only need confirmation; the report is built from a snapshot so
// later edits do not reach it.
func (c *Coordinator) OnGenerateReport() {
	if c.reportJob != nil {
		c.notify(LevelWarning, "Report", "A report is already being generated.")
		return
	}
	if missing := c.model.ValidateForReport(); len(missing) > 0 {
		text := "The following fields are missing or invalid:\n\n- " +
			strings.Join(missing, "\n- ") +
			"\n\nDo you want to continue generating the report anyway?"
		if !c.prompter.Confirm("Missing Values", text) {
			c.info("Report generation cancelled")
			return
		}
	}

	in := report.NewInput(c.spec, c.model.GetState(), c.clock.Now())
	producer := report.Producer{Fs: c.fs, Charts: c.charts, Log: c.log}
	dir := c.outputDir

	var job *worker.Job
	job = worker.Submit(c.jobs, worker.Task[report.Written]{
		Name:   taskReport,
		Budget: c.cfg.ReportBudget,
		Run: func(ctx context.Context) (report.Written, error) {
			return producer.Produce(ctx, in, dir)
		},
		OnSlow: func() {
			if c.reportJob == job {
				c.setBusy(taskReport, "Generating report...")
			}
		},
		OnDone: func(out report.Written, err error) {
			if c.reportJob == job {
				c.reportJob = nil
				c.setBusy(taskReport, "")
			}
			switch {
			case errors.Is(err, context.Canceled):
				c.log.Info("Report generation cancelled")
			case err != nil:
				c.log.WithError(err).WithField("dir", dir).Error("Report generation failed")
				c.notify(LevelError, "Report Generation Error", userMessage(err)+"\n\nOutput directory: "+dir)
			default:
				c.log.WithField("path", out.Path).Info("Report generated")
				c.notify(LevelInfo, "Report Generated", "Report generated successfully. The report was saved to:\n"+out.Path)
			}
		},
	})
	c.reportJob = job
}

// cancelReport stops a running report job; its completion is still
// delivered but no longer tracked.
func (c *Coordinator) cancelReport() {
	if c.reportJob == nil {
		return
	}
	c.log.WithField("job", c.reportJob.ID).Info("Cancelling report job")
	c.reportJob.Cancel()
	c.reportJob = nil
	c.setBusy(taskReport, "")
}
