package presenter

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/testpad_go/internal/config"
	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/parser"
	"github.com/user/testpad_go/internal/report"
	"github.com/user/testpad_go/internal/schema"
	"github.com/user/testpad_go/internal/storage"
	"github.com/user/testpad_go/internal/validation"
	"github.com/user/testpad_go/internal/viewstate"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

var testNow = time.Date(2025, 4, 1, 10, 15, 0, 0, time.UTC)

type fakeRenderer struct {
	views    []viewstate.ViewState
	messages []Message
	busy     []string
}

func (r *fakeRenderer) Render(vs viewstate.ViewState) { r.views = append(r.views, vs) }
func (r *fakeRenderer) Notify(msg Message)             { r.messages = append(r.messages, msg) }
func (r *fakeRenderer) SetBusy(label string)           { r.busy = append(r.busy, label) }

func (r *fakeRenderer) last() viewstate.ViewState { return r.views[len(r.views)-1] }

func (r *fakeRenderer) lastMessage() Message { return r.messages[len(r.messages)-1] }

type fakePicker struct {
	path string
	ok   bool
	err  error
}

func (p *fakePicker) OpenFile(string) (string, bool, error)         { return p.path, p.ok, p.err }
func (p *fakePicker) SaveFile(string, string) (string, bool, error) { return p.path, p.ok, p.err }
func (p *fakePicker) SelectDirectory(string, string) (string, bool, error) {
	return p.path, p.ok, p.err
}

type fakePrompter struct {
	answer bool
	asked  []string
}

func (p *fakePrompter) Confirm(title, _ string) bool {
	p.asked = append(p.asked, title)
	return p.answer
}

// queue stands in for the UI loop: posted functions run when drained.
type queue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *queue) Post(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fns = append(q.fns, fn)
}

func (q *queue) drain() {
	for {
		q.mu.Lock()
		fns := q.fns
		q.fns = nil
		q.mu.Unlock()
		if len(fns) == 0 {
			return
		}
		for _, fn := range fns {
			fn()
		}
	}
}

type pngCharts struct{}

func (pngCharts) RenderChart(context.Context, report.ChartData) ([]byte, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 4)))
	return buf.Bytes(), err
}

// blockingCharts holds the report job in the chart stage until released or
// cancelled.
type blockingCharts struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingCharts() *blockingCharts {
	return &blockingCharts{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingCharts) RenderChart(ctx context.Context, _ report.ChartData) ([]byte, error) {
	close(b.started)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
		return pngCharts{}.RenderChart(ctx, report.ChartData{})
	}
}

type harness struct {
	fs       afero.Fs
	renderer *fakeRenderer
	picker   *fakePicker
	prompter *fakePrompter
	queue    *queue
	c        *Coordinator
}

func newHarness(t *testing.T, mutate ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		fs:       afero.NewMemMapFs(),
		renderer: &fakeRenderer{},
		picker:   &fakePicker{},
		prompter: &fakePrompter{answer: true},
		queue:    &queue{},
	}
	cfg := config.Default()
	cfg.OutputDir = "/reports"
	cfg.StateFile = "/state/ds50.json"
	logger, _ := test.NewNullLogger()
	d := Deps{
		Spec:     device.DS50(),
		Fs:       h.fs,
		Config:   cfg,
		Renderer: h.renderer,
		Picker:   h.picker,
		Prompter: h.prompter,
		Charts:   pngCharts{},
		Dispatch: h.queue,
		Clock:    fixedClock(testNow),
		Log:      logger,
	}
	for _, m := range mutate {
		m(&d)
	}
	h.c = New(context.Background(), d)
	t.Cleanup(h.c.OnClose)
	return h
}

// settle waits for background jobs and runs their posted completions.
func (h *harness) settle() {
	h.c.jobs.Wait()
	h.queue.drain()
}

func reportFiles(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	ok, err := afero.DirExists(fs, "/reports")
	require.NoError(t, err)
	if !ok {
		return nil
	}
	infos, err := afero.ReadDir(fs, "/reports")
	require.NoError(t, err)
	var names []string
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}

func TestOnReadingEdited(t *testing.T) {
	h := newHarness(t)

	h.c.OnReadingEdited("0", "7.5")
	require.Len(t, h.renderer.views, 1)
	assert.Equal(t, 1, h.renderer.last().PointsFilled)
	assert.Equal(t, "7.5", h.renderer.last().SeriesTable[0].Value)

	h.c.OnReadingEdited("0", "6.0")
	assert.Equal(t, 1, h.renderer.last().PointsFilled)

	h.c.OnReadingEdited(" 0 ", "")
	assert.Equal(t, 0, h.renderer.last().PointsFilled)
	assert.Empty(t, h.renderer.messages)
}

func TestOnReadingEditedRejects(t *testing.T) {
	testCases := map[string]struct {
		index, value string
	}{
		"negative reading": {index: "0", value: "-3"},
		"zero reading":     {index: "0", value: "0"},
		"text reading":     {index: "0", value: "abc"},
		"index too high":   {index: "11", value: "5"},
		"negative index":   {index: "-1", value: "5"},
		"fractional index": {index: "2.5", value: "5"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.c.OnReadingEdited("3", "4.2")
			before := h.c.View()

			h.c.OnReadingEdited(tc.index, tc.value)

			require.Len(t, h.renderer.messages, 1)
			assert.Equal(t, LevelError, h.renderer.lastMessage().Level)
			assert.Equal(t, "Invalid Reading", h.renderer.lastMessage().Title)
			if diff := cmp.Diff(before, h.renderer.last()); diff != "" {
				t.Errorf("rejected edit changed the view (-want +got):\n%s", diff)
			}
			assert.Equal(t, before, h.c.View())
		})
	}
}

func TestOnAmbientEdited(t *testing.T) {
	h := newHarness(t)

	h.c.OnAmbientEdited("22.3")
	require.NotNil(t, h.renderer.last().Ambient)
	assert.Equal(t, "22.3", h.renderer.last().AmbientText)

	h.c.OnAmbientEdited("warm")
	assert.Equal(t, LevelError, h.renderer.lastMessage().Level)
	assert.Equal(t, "22.3", h.c.View().AmbientText)

	h.c.OnAmbientEdited("  ")
	assert.Nil(t, h.renderer.last().Ambient)
}

func TestOnMetadataChanged(t *testing.T) {
	h := newHarness(t)

	h.c.OnMetadataChanged("operator", "  Ada  ")
	h.c.OnMetadataChanged("serial_number", "#42")
	assert.Equal(t, "Ada", h.c.View().Metadata.Operator)
	assert.Equal(t, "#42", h.c.View().Metadata.SerialNumber)

	h.c.OnMetadataChanged("favourite_colour", "blue")
	assert.Equal(t, LevelError, h.renderer.lastMessage().Level)
}

func TestOnTestDateChanged(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "2025-04-01", h.c.View().Metadata.TestDate)

	h.c.OnTestDateChanged("2024-12-31")
	assert.Equal(t, "2024-12-31", h.c.View().Metadata.TestDate)

	h.c.OnTestDateChanged("31/12/2024")
	assert.Equal(t, "Invalid Date", h.renderer.lastMessage().Title)
	assert.Equal(t, "2024-12-31", h.c.View().Metadata.TestDate)

	h.c.OnTestDateChanged("")
	assert.Empty(t, h.c.View().Metadata.TestDate)
}

func rowOf(t *testing.T, vs viewstate.ViewState, key string) viewstate.TestRow {
	t.Helper()
	for _, r := range vs.TestRows {
		if r.Key == key {
			return r
		}
	}
	t.Fatalf("no row %q", key)
	return viewstate.TestRow{}
}

func TestOnTestRowEdited(t *testing.T) {
	h := newHarness(t)

	h.c.OnTestRowEdited("flow_rate", ColumnMeasured, "500")
	assert.Equal(t, "Pass", rowOf(t, h.c.View(), "flow_rate").PassFail)

	h.c.OnTestRowEdited("flow_rate", ColumnMeasured, "900")
	assert.Equal(t, "Fail", rowOf(t, h.c.View(), "flow_rate").PassFail)

	h.c.OnTestRowEdited("flow_rate", ColumnPassFail, "pass")
	assert.Equal(t, "Pass", rowOf(t, h.c.View(), "flow_rate").PassFail)

	h.c.OnTestRowEdited("flow_rate", ColumnMeasured, "")
	assert.Equal(t, "", rowOf(t, h.c.View(), "flow_rate").PassFail)
	assert.Empty(t, h.renderer.messages)

	h.c.OnTestRowEdited("flow_rate", ColumnPassFail, "maybe")
	assert.Equal(t, "Test Table Error", h.renderer.lastMessage().Title)

	h.c.OnTestRowEdited("no_such_row", ColumnMeasured, "1")
	assert.Equal(t, LevelError, h.renderer.lastMessage().Level)

	h.c.OnTestRowEdited("recirculation", ColumnMeasured, "1")
	assert.Equal(t, LevelError, h.renderer.lastMessage().Level)

	h.c.OnTestRowEdited("flow_rate", ColumnSpecMin, "800")
	assert.Equal(t, LevelError, h.renderer.lastMessage().Level, "min above max is a hard error")
}

func TestOverridePolicy(t *testing.T) {
	t.Run("flag", func(t *testing.T) {
		h := newHarness(t)
		h.c.OnTestRowEdited("do_level", ColumnSpecMax, "5")

		row := rowOf(t, h.c.View(), "do_level")
		assert.Equal(t, "5", row.SpecMax)
		assert.True(t, row.MaxOverridden)
		require.Len(t, h.renderer.messages, 1)
		assert.Equal(t, LevelWarning, h.renderer.lastMessage().Level)
		assert.Equal(t, "Spec Override", h.renderer.lastMessage().Title)
	})

	t.Run("block", func(t *testing.T) {
		h := newHarness(t, func(d *Deps) { d.Config.OverridePolicy = config.OverrideBlock })
		h.c.OnTestRowEdited("do_level", ColumnSpecMax, "5")

		row := rowOf(t, h.c.View(), "do_level")
		assert.Equal(t, "3", row.SpecMax)
		assert.False(t, row.MaxOverridden)
		assert.Equal(t, LevelError, h.renderer.lastMessage().Level)
	})

	t.Run("accepted bound is not warned again", func(t *testing.T) {
		h := newHarness(t)
		h.c.OnTestRowEdited("flow_rate", ColumnSpecMin, "200")
		require.Len(t, h.renderer.messages, 1)

		h.c.OnTestRowEdited("flow_rate", ColumnSpecMax, "650")
		row := rowOf(t, h.c.View(), "flow_rate")
		assert.Equal(t, "200", row.SpecMin)
		assert.Equal(t, "650", row.SpecMax)
		assert.True(t, row.MinOverridden)
		assert.Len(t, h.renderer.messages, 1)
	})

	t.Run("tightening needs no policy", func(t *testing.T) {
		h := newHarness(t, func(d *Deps) { d.Config.OverridePolicy = config.OverrideBlock })
		h.c.OnTestRowEdited("do_level", ColumnSpecMax, "2.5")
		assert.Equal(t, "2.5", rowOf(t, h.c.View(), "do_level").SpecMax)
		assert.Empty(t, h.renderer.messages)
	})
}

func TestParseColumn(t *testing.T) {
	for c := ColumnPassFail; c <= ColumnSpecMax; c++ {
		got, err := ParseColumn(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseColumn("description")
	assert.Error(t, err)
}

func TestOnImportCSV(t *testing.T) {
	h := newHarness(t)
	csv := " Minute , Oxygen ,Temp\n0,7.5,22.3\n5,4.0,22.3\n"
	require.NoError(t, afero.WriteFile(h.fs, "/data/run.csv", []byte(csv), 0o644))
	h.picker.path, h.picker.ok = "/data/run.csv", true

	h.c.OnImportCSV()
	h.settle()

	vs := h.c.View()
	assert.Equal(t, []viewstate.Point{{Index: 0, Value: 7.5}, {Index: 5, Value: 4.0}}, vs.Measurements)
	assert.Equal(t, "22.3", vs.AmbientText)
	assert.Equal(t, "/data/run.csv", vs.SourcePath)
	assert.Equal(t, LevelInfo, h.renderer.lastMessage().Level)
}

func TestOnImportCSVHeaderAliases(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/run.csv", []byte("time,o2\n1,6.5\n"), 0o644))
	h.picker.path, h.picker.ok = "/run.csv", true

	h.c.OnImportCSV()
	h.settle()
	assert.Equal(t, 1, h.c.View().PointsFilled)
}

func TestOnImportCSVFailureLeavesModel(t *testing.T) {
	h := newHarness(t)
	h.c.OnReadingEdited("1", "6.1")
	before := h.c.View()

	csv := "minute,oxygen_mg_per_L\n0,7\n1,6\n2,abc\n3,4\n4,3\n"
	require.NoError(t, afero.WriteFile(h.fs, "/bad.csv", []byte(csv), 0o644))
	h.picker.path, h.picker.ok = "/bad.csv", true

	h.c.OnImportCSV()
	h.settle()

	assert.Equal(t, before, h.c.View())
	msg := h.renderer.lastMessage()
	assert.Equal(t, LevelError, msg.Level)
	assert.Equal(t, "Import Error", msg.Title)
	assert.Contains(t, msg.Text, "Line 4")
}

func TestOnImportCSVCancelled(t *testing.T) {
	h := newHarness(t)
	h.picker.ok = false
	h.c.OnImportCSV()
	h.settle()
	assert.Empty(t, h.renderer.views)
	assert.Empty(t, h.renderer.messages)
}

func TestOnImportCSVMissingFile(t *testing.T) {
	h := newHarness(t)
	h.picker.path, h.picker.ok = "/nope.csv", true
	h.c.OnImportCSV()
	h.settle()
	assert.Contains(t, h.renderer.lastMessage().Text, "Could not open /nope.csv")
}

func TestOnExportCSV(t *testing.T) {
	h := newHarness(t)
	h.c.OnReadingEdited("0", "7.5")
	h.c.OnReadingEdited("5", "4")
	h.c.OnAmbientEdited("22.3")
	h.picker.path, h.picker.ok = "/out/export.csv", true

	h.c.OnExportCSV()
	h.settle()

	data, err := afero.ReadFile(h.fs, "/out/export.csv")
	require.NoError(t, err)
	parsed, err := parser.ParseSeries(bytes.NewReader(data), parser.SchemaFor(device.DS50()))
	require.NoError(t, err)
	assert.Len(t, parsed.Records, 2)
	assert.Equal(t, LevelInfo, h.renderer.lastMessage().Level)
}

func TestOnExportCSVReadOnly(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Fs = afero.NewReadOnlyFs(afero.NewMemMapFs()) })
	h.picker.path, h.picker.ok = "/out/export.csv", true
	h.c.OnExportCSV()
	h.settle()
	assert.Equal(t, "Export Error", h.renderer.lastMessage().Title)
}

func fillSession(h *harness) {
	h.c.OnMetadataChanged("operator", "Ada")
	h.c.OnMetadataChanged("location", "Lab 2")
	h.c.OnMetadataChanged("serial_number", "#7")
	for _, key := range []string{"vacuum_pressure", "flow_rate", "do_level", "recirculation_start", "recirculation_to_4mg", "recirculation_to_2mg"} {
		h.c.OnTestRowEdited(key, ColumnMeasured, "1")
		h.c.OnTestRowEdited(key, ColumnPassFail, "Pass")
	}
	h.c.OnReadingEdited("0", "8")
	h.c.OnReadingEdited("1", "3")
}

func TestOnGenerateReport(t *testing.T) {
	h := newHarness(t)
	fillSession(h)

	h.c.OnGenerateReport()
	assert.True(t, h.c.ReportRunning())
	assert.Empty(t, h.prompter.asked, "complete session needs no confirmation")
	h.settle()

	assert.False(t, h.c.ReportRunning())
	assert.Equal(t, []string{"DS50_Test_Report_7_20250401-101500.pdf"}, reportFiles(t, h.fs))
	msg := h.renderer.lastMessage()
	assert.Equal(t, "Report Generated", msg.Title)
	assert.Contains(t, msg.Text, "/reports/DS50_Test_Report_7_20250401-101500.pdf")

	h.c.OnGenerateReport()
	h.settle()
	assert.Len(t, reportFiles(t, h.fs), 2)
}

func TestOnGenerateReportMissingValues(t *testing.T) {
	h := newHarness(t)
	h.prompter.answer = false

	h.c.OnGenerateReport()
	h.settle()

	assert.Equal(t, []string{"Missing Values"}, h.prompter.asked)
	assert.False(t, h.c.ReportRunning())
	assert.Empty(t, reportFiles(t, h.fs))

	h.prompter.answer = true
	h.c.OnGenerateReport()
	h.settle()
	assert.Len(t, reportFiles(t, h.fs), 1)
}

func TestReportCancelledByReset(t *testing.T) {
	charts := newBlockingCharts()
	h := newHarness(t, func(d *Deps) { d.Charts = charts })
	fillSession(h)

	h.c.OnGenerateReport()
	<-charts.started
	h.c.OnReset()
	h.settle()

	assert.False(t, h.c.ReportRunning())
	assert.Empty(t, reportFiles(t, h.fs))
	assert.Equal(t, 0, h.c.View().PointsFilled)
	for _, m := range h.renderer.messages {
		assert.NotEqual(t, LevelError, m.Level, m.Text)
	}
}

func TestReportCancelledByClose(t *testing.T) {
	charts := newBlockingCharts()
	h := newHarness(t, func(d *Deps) { d.Charts = charts })
	fillSession(h)

	h.c.OnGenerateReport()
	<-charts.started
	h.c.OnClose()
	h.queue.drain()

	assert.Empty(t, reportFiles(t, h.fs))
}

func TestReportBusyIndicator(t *testing.T) {
	charts := newBlockingCharts()
	h := newHarness(t, func(d *Deps) {
		d.Charts = charts
		d.Config.ReportBudget = time.Millisecond
	})
	fillSession(h)

	h.c.OnGenerateReport()
	require.Eventually(t, func() bool {
		h.queue.drain()
		return len(h.renderer.busy) > 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "Generating report...", h.renderer.busy[0])

	h.c.OnGenerateReport()
	assert.Equal(t, "Report", h.renderer.lastMessage().Title, "second request is refused while running")

	close(charts.release)
	h.settle()
	assert.Equal(t, "", h.renderer.busy[len(h.renderer.busy)-1])
	assert.Len(t, reportFiles(t, h.fs), 1)
}

func TestReportWriteFailure(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Fs = afero.NewReadOnlyFs(afero.NewMemMapFs()) })
	fillSession(h)

	h.c.OnGenerateReport()
	h.settle()

	msg := h.renderer.lastMessage()
	assert.Equal(t, LevelError, msg.Level)
	assert.Equal(t, "Report Generation Error", msg.Title)
}

func TestOnReset(t *testing.T) {
	h := newHarness(t)
	h.c.OnReadingEdited("0", "7")

	h.prompter.answer = false
	h.c.OnReset()
	assert.Equal(t, 1, h.c.View().PointsFilled)

	h.prompter.answer = true
	h.c.OnReset()
	assert.Equal(t, 0, h.c.View().PointsFilled)
	assert.Equal(t, "All data reset.", h.renderer.lastMessage().Text)
}

func TestOnSelectOutputDir(t *testing.T) {
	h := newHarness(t)

	h.picker.ok = false
	h.c.OnSelectOutputDir()
	assert.Equal(t, "/reports", h.c.OutputDir())

	h.picker.path, h.picker.ok = "relative/dir", true
	h.c.OnSelectOutputDir()
	assert.Equal(t, "/reports", h.c.OutputDir())
	assert.Equal(t, LevelError, h.renderer.lastMessage().Level)

	h.picker.path = "/srv/out/"
	h.c.OnSelectOutputDir()
	assert.Equal(t, "/srv/out", h.c.OutputDir())

	h.picker.err = errors.New("dialog crashed")
	h.c.OnSelectOutputDir()
	assert.Equal(t, "/srv/out", h.c.OutputDir())
}

func TestSaveAndRestoreState(t *testing.T) {
	first := newHarness(t)
	fillSession(first)
	first.c.OnAmbientEdited("21")
	first.c.OnTestRowEdited("do_level", ColumnSpecMax, "4")
	require.NoError(t, first.c.SaveState())

	second := newHarness(t, func(d *Deps) { d.Fs = first.fs })
	require.NoError(t, second.c.RestoreState())
	second.c.OnShow()

	if diff := cmp.Diff(first.c.View(), second.renderer.last()); diff != "" {
		t.Errorf("restored view differs (-saved +restored):\n%s", diff)
	}
}

func TestCloseThenSaveKeepsFinishedImport(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/data/run.csv", []byte("minute,oxygen\n0,7.5\n5,4.0\n"), 0o644))
	h.picker.path, h.picker.ok = "/data/run.csv", true

	h.c.OnImportCSV()
	h.c.jobs.Wait()
	// the import completion is queued but not yet applied
	h.c.OnClose()
	h.queue.drain()
	require.NoError(t, h.c.SaveState())

	next := newHarness(t, func(d *Deps) { d.Fs = h.fs })
	require.NoError(t, next.c.RestoreState())
	assert.Equal(t, []viewstate.Point{{Index: 0, Value: 7.5}, {Index: 5, Value: 4.0}}, next.c.View().Measurements)
}

func TestRestoreStateMissingFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.c.RestoreState())
	assert.Empty(t, h.renderer.messages)
	h.c.OnShow()
	assert.False(t, h.renderer.last().Loaded)
}

func TestRestoreStateBadFile(t *testing.T) {
	testCases := map[string]string{
		"not json":       "{",
		"future version": `{"schema_version": 99}`,
	}
	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, afero.WriteFile(h.fs, "/state/ds50.json", []byte(content), 0o644))

			assert.Error(t, h.c.RestoreState())
			assert.Equal(t, LevelWarning, h.renderer.lastMessage().Level)
			h.c.OnShow()
			assert.False(t, h.renderer.last().Loaded)
		})
	}
}

func TestUserMessage(t *testing.T) {
	testCases := map[string]struct {
		err  error
		want string
	}{
		"io hides errno": {
			err:  &storage.IOError{Op: "write", Path: "/x.csv", Err: os.ErrPermission},
			want: "Could not write /x.csv. Check that the location exists and is writable.",
		},
		"range": {
			err:  &validation.RangeError{Field: "minute", Value: 11, Min: 0, Max: 10},
			want: "Minute must be in range 0..10, got 11",
		},
		"schema": {
			err:  &schema.SchemaVersionError{Found: 9, Supported: 2},
			want: "The saved data was written by an unsupported version and was not loaded.",
		},
		"report stage": {
			err:  &report.GenerateError{Stage: report.StageLayout, Err: errors.New("font missing")},
			want: "Failed to generate report during the layout step.",
		},
		"unknown": {
			err:  errors.New("boom"),
			want: "Unexpected error; see the log for details.",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, userMessage(tc.err))
		})
	}
}
