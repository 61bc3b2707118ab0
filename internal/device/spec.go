// Package device describes a device model: its time window, reading rule,
// CSV column vocabulary and the factory acceptance-test table. A Spec is
// passed into the measurement model rather than living in package globals so
// several device models can coexist.
package device

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/user/testpad_go/internal/validation"
)

// Spec is the full description of one device model.
type Spec struct {
	Name           string      `yaml:"name" validate:"required"`
	ReportTitle    string      `yaml:"report_title" validate:"required"`
	ReportVersion  string      `yaml:"report_version"`
	FilenamePrefix string      `yaml:"filename_prefix" validate:"required"`
	Index          IndexSpec   `yaml:"index"`
	Reading        ReadingSpec `yaml:"reading"`
	Ambient        AmbientSpec `yaml:"ambient"`
	Thresholds     []float64   `yaml:"thresholds" validate:"dive,gt=0"`
	TestRows       []RowSpec   `yaml:"test_rows" validate:"min=1,dive"`
}

// IndexSpec is the inclusive time window, e.g. minutes 0..10.
type IndexSpec struct {
	Column  string   `yaml:"column" validate:"required"`
	Aliases []string `yaml:"aliases"`
	Label   string   `yaml:"label" validate:"required"`
	Min     int      `yaml:"min" validate:"gte=0"`
	Max     int      `yaml:"max" validate:"gtefield=Min"`
}

// ReadingSpec describes the measured quantity.
type ReadingSpec struct {
	Column       string   `yaml:"column" validate:"required"`
	Aliases      []string `yaml:"aliases"`
	Label        string   `yaml:"label" validate:"required"`
	Unit         string   `yaml:"unit"`
	PositiveOnly bool     `yaml:"positive_only"`
	Max          *float64 `yaml:"max,omitempty"`
}

// AmbientSpec describes the optional single ambient value.
type AmbientSpec struct {
	Column  string   `yaml:"column" validate:"required"`
	Aliases []string `yaml:"aliases"`
	Label   string   `yaml:"label" validate:"required"`
	Unit    string   `yaml:"unit"`
}

// RowSpec is one factory row of the acceptance-test table. Section rows are
// headings with no data.
type RowSpec struct {
	Key         string   `yaml:"key" validate:"required"`
	Description string   `yaml:"description" validate:"required"`
	Unit        string   `yaml:"unit"`
	Section     bool     `yaml:"section"`
	Min         *float64 `yaml:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty"`
}

// IndexBounds returns the validation window for time indices.
func (s *Spec) IndexBounds() validation.IndexBounds {
	return validation.IndexBounds{Min: s.Index.Min, Max: s.Index.Max}
}

// ReadingRule returns the validation rule for readings.
func (s *Spec) ReadingRule() validation.ReadingRule {
	name := s.Reading.Label
	if s.Reading.Unit != "" {
		name = fmt.Sprintf("%s (%s)", s.Reading.Label, s.Reading.Unit)
	}
	return validation.ReadingRule{Quantity: name, PositiveOnly: s.Reading.PositiveOnly, Max: s.Reading.Max}
}

// Row looks up a row definition by key.
func (s *Spec) Row(key string) (RowSpec, int, bool) {
	for i, r := range s.TestRows {
		if r.Key == key {
			return r, i, true
		}
	}
	return RowSpec{}, -1, false
}

// Slots returns the number of time indices in the window.
func (s *Spec) Slots() int {
	return s.Index.Max - s.Index.Min + 1
}

// Validate checks struct tags and cross-row invariants.
func (s *Spec) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(s); err != nil {
		return fmt.Errorf("invalid device spec %q: %w", s.Name, err)
	}
	seen := make(map[string]bool, len(s.TestRows))
	for _, r := range s.TestRows {
		if seen[r.Key] {
			return fmt.Errorf("invalid device spec %q: duplicate test row key %q", s.Name, r.Key)
		}
		seen[r.Key] = true
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return fmt.Errorf("invalid device spec %q: row %q has min > max", s.Name, r.Key)
		}
	}
	return nil
}

// Load reads a YAML device spec from fs.
func Load(fs afero.Fs, path string) (*Spec, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device spec: %w", err)
	}
	spec := &Spec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse device spec %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// NormalizeHeader folds a CSV header for alias matching: lower case, trimmed,
// internal whitespace collapsed to underscores, byte-order mark removed.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), "_"))
}
