package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/user/testpad_go/internal/analysis"
	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/model"
)

// Input is everything a report is built from. It is a value copy taken on
// the UI goroutine; generation never goes back to the model.
type Input struct {
	Device  device.Spec
	Session model.Snapshot
	// GeneratedAt is the only clock reading that reaches the document.
	GeneratedAt time.Time
}

// NewInput copies spec and snap into a self-contained report input.
func NewInput(spec *device.Spec, snap model.Snapshot, generatedAt time.Time) Input {
	dev := *spec
	dev.Thresholds = slices.Clone(spec.Thresholds)
	dev.TestRows = slices.Clone(spec.TestRows)
	return Input{Device: dev, Session: snap.Clone(), GeneratedAt: generatedAt}
}

// Points returns the readings as analysis points.
func (in Input) Points() []analysis.Point {
	points := make([]analysis.Point, 0, len(in.Session.Readings))
	for _, r := range in.Session.Readings {
		points = append(points, analysis.Point{Index: r.Index, Value: r.Value})
	}
	return points
}

// Summary analyses the readings against the device thresholds.
func (in Input) Summary() analysis.SeriesSummary {
	return analysis.AnalyzeSeries(in.Points(), in.Device.Thresholds)
}

// Result is the outcome of Generate. Exactly one of PDF and Err is set.
type Result struct {
	PDF   []byte
	Pages int
	Err   error
}

// Stage names a step of report production.
type Stage string

const (
	StageChart  Stage = "chart"
	StageLayout Stage = "layout"
	StageOutput Stage = "output"
	StageWrite  Stage = "write"
)

// GenerateError reports which stage of report production failed.
type GenerateError struct {
	Stage Stage
	Err   error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("report %s failed: %v", e.Stage, e.Err)
}

func (e *GenerateError) Unwrap() error { return e.Err }
