package model

import (
	"github.com/spf13/afero"

	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/parser"
	"github.com/user/testpad_go/internal/validation"
)

// LoadFromCSV parses path and applies it as one atomic import.
func (m *Model) LoadFromCSV(path string) (Snapshot, error) {
	parsed, err := parser.ParseSeriesFile(m.fs, path, parser.SchemaFor(m.spec))
	if err != nil {
		return Snapshot{}, err
	}
	return m.ApplyImport(path, parsed)
}

// ApplyImport validates every parsed record into a staging map and commits
// it only when all records pass. The imported series replaces the current
// readings. Ambient follows the file when it carries an ambient column and is
// left alone otherwise. Parsing may happen off the UI goroutine; applying
// must not.
func (m *Model) ApplyImport(path string, parsed *parser.ParsedSeries) (Snapshot, error) {
	bounds, rule := m.spec.IndexBounds(), m.spec.ReadingRule()

	staged := make(map[int]float64, len(parsed.Records))
	for _, rec := range parsed.Records {
		index, err := validation.TimeIndexFromFloat(rec.Index, bounds)
		if err != nil {
			return Snapshot{}, &ImportError{Path: path, Line: rec.Line, Err: err}
		}
		value, err := validation.ValidateReading(rec.Reading, rule)
		if err != nil {
			return Snapshot{}, &ImportError{Path: path, Line: rec.Line, Err: err}
		}
		staged[index] = value
	}

	ambient := m.ambient
	if parsed.HasAmbientColumn {
		v, err := validation.ValidateAmbient(parsed.Ambient)
		if err != nil {
			return Snapshot{}, &ImportError{Path: path, Err: err}
		}
		ambient = v
	}

	m.readings = staged
	m.ambient = ambient
	m.sourcePath = path
	return m.GetState(), nil
}

// ExportCSV writes the readings and ambient value to path.
func (m *Model) ExportCSV(path string) error {
	return ExportSnapshotCSV(m.fs, path, m.spec, m.GetState(), m.precision)
}

// ExportSnapshotCSV writes a snapshot in the device's canonical CSV layout.
// It only reads its snapshot argument, so background workers may call it.
func ExportSnapshotCSV(fs afero.Fs, path string, spec *device.Spec, snap Snapshot, precision int) error {
	rows := make([]parser.Row, len(snap.Readings))
	for i, r := range snap.Readings {
		rows[i] = parser.Row{Index: r.Index, Value: r.Value}
	}
	return parser.WriteSeriesFile(fs, path, parser.SchemaFor(spec), rows, snap.Ambient, precision)
}
