// Package model owns the mutable business state of one measurement session.
// Every mutator validates before committing: it either applies the whole
// change and returns a fresh Snapshot, or returns an error and leaves the
// state untouched.
package model

import (
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/parser"
	"github.com/user/testpad_go/internal/validation"
)

// Clock abstracts "today" so default test dates are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Option configures a Model.
type Option func(*Model)

// WithFs sets the file system used for CSV import and export.
func WithFs(fs afero.Fs) Option { return func(m *Model) { m.fs = fs } }

// WithClock sets the clock used for the default test date.
func WithClock(c Clock) Option { return func(m *Model) { m.clock = c } }

// WithPrecision sets the decimal places of exported readings.
func WithPrecision(p int) Option { return func(m *Model) { m.precision = p } }

// Model is the measurement session. It is not safe for concurrent use: all
// calls are expected from the single UI-affine goroutine.
type Model struct {
	spec      *device.Spec
	fs        afero.Fs
	clock     Clock
	precision int

	readings   map[int]float64
	ambient    *float64
	rows       []TestRow
	meta       Metadata
	sourcePath string
}

// New returns an empty session for the given device model.
func New(spec *device.Spec, opts ...Option) *Model {
	m := &Model{
		spec:      spec,
		fs:        afero.NewOsFs(),
		clock:     SystemClock{},
		precision: parser.DefaultPrecision,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.clear()
	return m
}

func (m *Model) clear() {
	m.readings = make(map[int]float64)
	m.ambient = nil
	m.rows = defaultRows(m.spec)
	m.meta = Metadata{TestDate: dateOf(m.clock.Now())}
	m.sourcePath = ""
}

func defaultRows(spec *device.Spec) []TestRow {
	rows := make([]TestRow, 0, len(spec.TestRows))
	for _, r := range spec.TestRows {
		row := TestRow{
			Key:         r.Key,
			Description: r.Description,
			Unit:        r.Unit,
			Section:     r.Section,
		}
		if !r.Section {
			row.FactoryMin, row.FactoryMax = copyFloat(r.Min), copyFloat(r.Max)
			row.SpecMin, row.SpecMax = copyFloat(r.Min), copyFloat(r.Max)
		}
		rows = append(rows, row)
	}
	return rows
}

// dateOf truncates t to its calendar date.
func dateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// Spec returns the device model this session was built for.
func (m *Model) Spec() *device.Spec { return m.spec }

// Precision returns the decimal places used for CSV export.
func (m *Model) Precision() int { return m.precision }

// GetState returns a snapshot of the whole session.
func (m *Model) GetState() Snapshot {
	rows := make([]TestRow, len(m.rows))
	for i, r := range m.rows {
		rows[i] = r.clone()
	}
	return Snapshot{
		Device:     m.spec.Name,
		IndexMin:   m.spec.Index.Min,
		IndexMax:   m.spec.Index.Max,
		Thresholds: slices.Clone(m.spec.Thresholds),
		Metadata:   m.meta,
		Readings:   m.ListMeasurements(),
		Ambient:    copyFloat(m.ambient),
		TestRows:   rows,
		SourcePath: m.sourcePath,
	}
}

// ListMeasurements returns the readings sorted by index.
func (m *Model) ListMeasurements() []Reading {
	out := make([]Reading, 0, len(m.readings))
	for i, v := range m.readings {
		out = append(out, Reading{Index: i, Value: v})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

// Ambient returns a copy of the ambient value, nil when not recorded.
func (m *Model) Ambient() *float64 { return copyFloat(m.ambient) }

// SetMeasurement stores value at index; an existing value is overwritten.
func (m *Model) SetMeasurement(index int, value float64) (Snapshot, error) {
	if err := validation.ValidateTimeIndex(index, m.spec.IndexBounds()); err != nil {
		return Snapshot{}, err
	}
	v, err := validation.ValidateReading(value, m.spec.ReadingRule())
	if err != nil {
		return Snapshot{}, err
	}
	m.readings[index] = v
	return m.GetState(), nil
}

// ClearMeasurement removes the reading at index. Clearing an empty slot is a
// no-op.
func (m *Model) ClearMeasurement(index int) (Snapshot, error) {
	if err := validation.ValidateTimeIndex(index, m.spec.IndexBounds()); err != nil {
		return Snapshot{}, err
	}
	delete(m.readings, index)
	return m.GetState(), nil
}

// SetAmbient records the ambient value; nil clears it.
func (m *Model) SetAmbient(v *float64) (Snapshot, error) {
	ambient, err := validation.ValidateAmbient(v)
	if err != nil {
		return Snapshot{}, err
	}
	m.ambient = ambient
	return m.GetState(), nil
}

// SetMetadataField updates one free-text metadata field.
func (m *Model) SetMetadataField(field MetadataField, value string) (Snapshot, error) {
	switch field {
	case FieldOperator:
		m.meta.Operator = value
	case FieldLocation:
		m.meta.Location = value
	case FieldSerialNumber:
		m.meta.SerialNumber = value
	default:
		return Snapshot{}, &KeyError{Kind: "metadata field", Key: field.String()}
	}
	return m.GetState(), nil
}

// SetTestDate sets the test date; the time of day is dropped.
func (m *Model) SetTestDate(t time.Time) Snapshot {
	m.meta.TestDate = dateOf(t)
	return m.GetState()
}

// UpdateTestRow applies a partial update to the row with key. Fields are
// validated on a working copy that is committed only when every supplied
// field is valid. When the measured value or the bounds change and no
// verdict is supplied, the verdict is re-evaluated against the bounds.
func (m *Model) UpdateTestRow(key string, u RowUpdate) (Snapshot, error) {
	idx := -1
	for i, r := range m.rows {
		if r.Key == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Snapshot{}, &KeyError{Kind: "test row", Key: key}
	}
	if m.rows[idx].Section {
		return Snapshot{}, &validation.ValueError{Field: key, Reason: "is a section header and holds no results"}
	}
	if u.empty() {
		return Snapshot{}, &validation.ValueError{Field: key, Reason: "update names no fields"}
	}

	row := m.rows[idx].clone()

	if u.SpecMin != nil || u.SpecMax != nil {
		if u.SpecMin != nil {
			row.SpecMin = copyFloat(u.SpecMin.Value)
		}
		if u.SpecMax != nil {
			row.SpecMax = copyFloat(u.SpecMax.Value)
		}
		for _, b := range []*float64{row.SpecMin, row.SpecMax} {
			if _, err := validation.ValidateAmbient(b); err != nil {
				return Snapshot{}, &validation.ValueError{Field: key + " spec", Raw: validation.FormatBound(b), Reason: "must be a finite number"}
			}
		}
		err := changedBounds(validation.ValidateSpecOverride(key, row.FactoryMin, row.FactoryMax, row.SpecMin, row.SpecMax), u)
		if err != nil && !(validation.IsWarning(err) && u.AcceptOverride) {
			return Snapshot{}, err
		}
	}

	if u.Measured != nil {
		measured, err := validation.ValidateAmbient(u.Measured.Value)
		if err != nil {
			return Snapshot{}, &validation.ValueError{Field: key + " measurement", Raw: validation.FormatBound(u.Measured.Value), Reason: "must be a finite number"}
		}
		row.Measured = measured
	}

	switch {
	case u.PassFail != nil:
		if *u.PassFail < PassFailUnset || *u.PassFail > Fail {
			return Snapshot{}, &validation.ValueError{Field: key + " pass/fail", Reason: "is not a valid verdict"}
		}
		row.PassFail = *u.PassFail
	case u.Measured != nil || u.SpecMin != nil || u.SpecMax != nil:
		row.PassFail = row.evaluate()
	}

	m.rows[idx] = row
	return m.GetState(), nil
}

// changedBounds narrows an override warning to the bounds u sets, so a
// bound accepted by an earlier edit is not reported again.
func changedBounds(err error, u RowUpdate) error {
	var w *validation.SpecOverrideWarning
	if !errors.As(err, &w) {
		return err
	}
	var bounds []string
	for _, b := range w.Bounds {
		if (b == "min" && u.SpecMin != nil) || (b == "max" && u.SpecMax != nil) {
			bounds = append(bounds, b)
		}
	}
	if len(bounds) == 0 {
		return nil
	}
	narrowed := *w
	narrowed.Bounds = bounds
	return &narrowed
}

// Reset discards all session data and restores construction defaults.
func (m *Model) Reset() Snapshot {
	m.clear()
	return m.GetState()
}

// ValidateForReport lists missing items a report would show as blank. The
// check is advisory; a report may still be produced.
func (m *Model) ValidateForReport() []string {
	var missing []string
	if m.meta.Operator == "" {
		missing = append(missing, "'Tester Name'")
	}
	if m.meta.TestDate.IsZero() {
		missing = append(missing, "'Test Date'")
	}
	if m.meta.SerialNumber == "" {
		missing = append(missing, "'"+m.spec.Name+" Serial Number'")
	}
	if m.meta.Location == "" {
		missing = append(missing, "'Location'")
	}
	for _, r := range m.rows {
		if r.Section {
			continue
		}
		if r.Measured == nil {
			missing = append(missing, "'"+r.Description+"' measurement")
		}
		if r.PassFail == PassFailUnset {
			missing = append(missing, "'"+r.Description+"' pass/fail")
		}
	}
	if len(m.readings) == 0 {
		missing = append(missing, m.spec.Reading.Label+" measurements")
	}
	return missing
}
