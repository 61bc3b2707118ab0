// Package viewstate projects a model snapshot into the immutable structure
// the renderer draws from. The renderer never sees the model itself.
package viewstate

import (
	"strconv"

	"github.com/user/testpad_go/internal/analysis"
	"github.com/user/testpad_go/internal/model"
)

// ViewState is everything one render needs. It is built fresh for every
// model change and never mutated afterwards.
type ViewState struct {
	Device       string      `json:"device"`
	Loaded       bool        `json:"loaded"`
	PointsFilled int         `json:"pointsFilled"`
	TotalSlots   int         `json:"totalSlots"`
	Measurements []Point     `json:"measurements"`
	Ambient      *float64    `json:"ambient"`
	AmbientText  string      `json:"ambientText"`
	Metadata     Metadata    `json:"metadata"`
	SeriesTable  []SeriesRow `json:"seriesTable"`
	TestRows     []TestRow   `json:"testRows"`
	Summary      *Summary    `json:"summary"`
	SourcePath   string      `json:"sourcePath"`
}

// Point is one chart sample.
type Point struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Metadata is the metadata block as display text.
type Metadata struct {
	Operator     string `json:"operator"`
	TestDate     string `json:"testDate"`
	Location     string `json:"location"`
	SerialNumber string `json:"serialNumber"`
}

// SeriesRow is one line of the fixed time-series table.
type SeriesRow struct {
	Index  int    `json:"index"`
	Value  string `json:"value"`
	Filled bool   `json:"filled"`
}

// TestRow is one line of the acceptance-test table.
type TestRow struct {
	Key           string `json:"key"`
	Description   string `json:"description"`
	Unit          string `json:"unit"`
	Section       bool   `json:"section"`
	PassFail      string `json:"passFail"`
	Measured      string `json:"measured"`
	SpecMin       string `json:"specMin"`
	SpecMax       string `json:"specMax"`
	MinOverridden bool   `json:"minOverridden"`
	MaxOverridden bool   `json:"maxOverridden"`
}

// Summary holds the series statistics; it is nil when there is no data.
type Summary struct {
	Count     int        `json:"count"`
	Mean      string     `json:"mean"`
	StdDev    string     `json:"stdDev"`
	Min       string     `json:"min"`
	Max       string     `json:"max"`
	Crossings []Crossing `json:"crossings"`
}

// Crossing is the first minute at which the reading reached a threshold.
type Crossing struct {
	Threshold string `json:"threshold"`
	Reached   bool   `json:"reached"`
	Index     int    `json:"index"`
}

const dateLayout = "2006-01-02"

// Build projects snap. It has no side effects and the result shares no
// memory with snap, so equal snapshots give equal ViewStates.
func Build(snap model.Snapshot) ViewState {
	vs := ViewState{
		Device:       snap.Device,
		Loaded:       snap.Loaded(),
		PointsFilled: snap.PointsFilled(),
		Measurements: make([]Point, 0, len(snap.Readings)),
		Metadata: Metadata{
			Operator:     snap.Metadata.Operator,
			Location:     snap.Metadata.Location,
			SerialNumber: snap.Metadata.SerialNumber,
		},
		SourcePath: snap.SourcePath,
	}
	if !snap.Metadata.TestDate.IsZero() {
		vs.Metadata.TestDate = snap.Metadata.TestDate.Format(dateLayout)
	}
	if snap.Ambient != nil {
		v := *snap.Ambient
		vs.Ambient = &v
		vs.AmbientText = Number(v)
	}

	points := make([]analysis.Point, 0, len(snap.Readings))
	for _, r := range snap.Readings {
		vs.Measurements = append(vs.Measurements, Point{Index: r.Index, Value: r.Value})
		points = append(points, analysis.Point{Index: r.Index, Value: r.Value})
	}

	slots := snap.Slots()
	vs.TotalSlots = len(slots)
	vs.SeriesTable = make([]SeriesRow, 0, len(slots))
	for _, s := range slots {
		row := SeriesRow{Index: s.Index}
		if s.Value != nil {
			row.Value, row.Filled = Number(*s.Value), true
		}
		vs.SeriesTable = append(vs.SeriesTable, row)
	}

	vs.TestRows = make([]TestRow, 0, len(snap.TestRows))
	for _, r := range snap.TestRows {
		vs.TestRows = append(vs.TestRows, testRow(r))
	}

	if len(points) > 0 {
		vs.Summary = summarize(analysis.AnalyzeSeries(points, snap.Thresholds))
	}
	return vs
}

func testRow(r model.TestRow) TestRow {
	row := TestRow{
		Key:         r.Key,
		Description: r.Description,
		Unit:        r.Unit,
		Section:     r.Section,
	}
	if r.Section {
		return row
	}
	row.PassFail = r.PassFail.String()
	row.Measured = Optional(r.Measured)
	row.SpecMin = Optional(r.SpecMin)
	row.SpecMax = Optional(r.SpecMax)
	row.MinOverridden = r.MinOverridden()
	row.MaxOverridden = r.MaxOverridden()
	return row
}

func summarize(s analysis.SeriesSummary) *Summary {
	out := &Summary{
		Count:     s.Count,
		Mean:      Fixed(s.Mean, 2),
		StdDev:    Fixed(s.StdDev, 2),
		Min:       Fixed(s.Min, 2),
		Max:       Fixed(s.Max, 2),
		Crossings: make([]Crossing, 0, len(s.Crossing)),
	}
	for _, c := range s.Crossing {
		out.Crossings = append(out.Crossings, Crossing{Threshold: Number(c.Threshold), Reached: c.Reached, Index: c.Index})
	}
	return out
}

// Number renders v with the fewest digits that round-trip.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Fixed renders v with a fixed number of decimals.
func Fixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// Optional renders an optional value, empty when absent.
func Optional(v *float64) string {
	if v == nil {
		return ""
	}
	return Number(*v)
}
