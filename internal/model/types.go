package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/user/testpad_go/internal/validation"
)

// PassFail is the tri-state verdict of a test row.
type PassFail int

const (
	PassFailUnset PassFail = iota
	Pass
	Fail
)

func (p PassFail) String() string {
	switch p {
	case Pass:
		return "Pass"
	case Fail:
		return "Fail"
	default:
		return ""
	}
}

// persisted returns the lower-case form stored in state records.
func (p PassFail) persisted() string {
	return strings.ToLower(p.String())
}

// ParsePassFail maps dropdown text ("", "Pass", "Fail", any case) to the enum.
func ParsePassFail(text string) (PassFail, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "":
		return PassFailUnset, nil
	case "pass":
		return Pass, nil
	case "fail":
		return Fail, nil
	default:
		return PassFailUnset, &validation.ValueError{Field: "pass/fail", Raw: text, Reason: "must be Pass, Fail or empty"}
	}
}

// MetadataField names an editable free-text metadata field.
type MetadataField int

const (
	FieldOperator MetadataField = iota
	FieldLocation
	FieldSerialNumber
)

func (f MetadataField) String() string {
	switch f {
	case FieldOperator:
		return "operator"
	case FieldLocation:
		return "location"
	case FieldSerialNumber:
		return "serial_number"
	default:
		return fmt.Sprintf("MetadataField(%d)", int(f))
	}
}

// Metadata identifies a test session. A zero TestDate means "not set".
type Metadata struct {
	Operator     string
	TestDate     time.Time
	Location     string
	SerialNumber string
}

// Reading is one stored (index, value) pair.
type Reading struct {
	Index int
	Value float64
}

// Slot is one position of the fixed time grid; Value is nil when not yet
// measured.
type Slot struct {
	Index int
	Value *float64
}

// TestRow is one row of the acceptance-test table. Factory bounds come from
// the device spec; SpecMin/SpecMax are the bounds in force.
type TestRow struct {
	Key         string
	Description string
	Unit        string
	Section     bool
	PassFail    PassFail
	Measured    *float64
	SpecMin     *float64
	SpecMax     *float64
	FactoryMin  *float64
	FactoryMax  *float64
}

// MinOverridden reports whether the minimum differs from the factory value.
func (r TestRow) MinOverridden() bool { return !sameBound(r.SpecMin, r.FactoryMin) }

// MaxOverridden reports whether the maximum differs from the factory value.
func (r TestRow) MaxOverridden() bool { return !sameBound(r.SpecMax, r.FactoryMax) }

func sameBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r TestRow) clone() TestRow {
	r.Measured = copyFloat(r.Measured)
	r.SpecMin = copyFloat(r.SpecMin)
	r.SpecMax = copyFloat(r.SpecMax)
	r.FactoryMin = copyFloat(r.FactoryMin)
	r.FactoryMax = copyFloat(r.FactoryMax)
	return r
}

// evaluate derives the verdict from the measured value and bounds in force.
// With no bounds at all the current verdict is left as entered.
func (r TestRow) evaluate() PassFail {
	if r.Measured == nil {
		return PassFailUnset
	}
	if r.SpecMin == nil && r.SpecMax == nil {
		return r.PassFail
	}
	v := *r.Measured
	if (r.SpecMin == nil || v >= *r.SpecMin) && (r.SpecMax == nil || v <= *r.SpecMax) {
		return Pass
	}
	return Fail
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// FloatPatch is a partial update to an optional float field: a nil Value
// clears it.
type FloatPatch struct {
	Value *float64
}

// SetTo patches a field to v.
func SetTo(v float64) *FloatPatch { return &FloatPatch{Value: &v} }

// Cleared patches a field to "absent".
func Cleared() *FloatPatch { return &FloatPatch{} }

// PatchOf patches a field to v, clearing it when v is nil.
func PatchOf(v *float64) *FloatPatch { return &FloatPatch{Value: copyFloat(v)} }

// RowUpdate is a partial test-row update: nil members are left unchanged.
// AcceptOverride commits spec bounds even when they widen the factory
// envelope; otherwise such an update returns a SpecOverrideWarning and
// changes nothing.
type RowUpdate struct {
	PassFail       *PassFail
	Measured       *FloatPatch
	SpecMin        *FloatPatch
	SpecMax        *FloatPatch
	AcceptOverride bool
}

func (u RowUpdate) empty() bool {
	return u.PassFail == nil && u.Measured == nil && u.SpecMin == nil && u.SpecMax == nil
}

// Snapshot is an immutable, point-in-time copy of the model state. It holds
// no references to model internals.
type Snapshot struct {
	Device     string
	IndexMin   int
	IndexMax   int
	Thresholds []float64
	Metadata   Metadata
	Readings   []Reading
	Ambient    *float64
	TestRows   []TestRow
	SourcePath string
}

// Loaded reports whether any reading is present.
func (s Snapshot) Loaded() bool { return len(s.Readings) > 0 }

// PointsFilled is the number of stored readings.
func (s Snapshot) PointsFilled() int { return len(s.Readings) }

// Slots expands the readings onto the full time grid.
func (s Snapshot) Slots() []Slot {
	byIndex := make(map[int]float64, len(s.Readings))
	for _, r := range s.Readings {
		byIndex[r.Index] = r.Value
	}
	slots := make([]Slot, 0, s.IndexMax-s.IndexMin+1)
	for i := s.IndexMin; i <= s.IndexMax; i++ {
		slot := Slot{Index: i}
		if v, ok := byIndex[i]; ok {
			slot.Value = &v
		}
		slots = append(slots, slot)
	}
	return slots
}

// Row returns the row with key.
func (s Snapshot) Row(key string) (TestRow, bool) {
	for _, r := range s.TestRows {
		if r.Key == key {
			return r, true
		}
	}
	return TestRow{}, false
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	s.Readings = slices.Clone(s.Readings)
	s.Thresholds = slices.Clone(s.Thresholds)
	s.Ambient = copyFloat(s.Ambient)
	rows := make([]TestRow, len(s.TestRows))
	for i, r := range s.TestRows {
		rows[i] = r.clone()
	}
	s.TestRows = rows
	return s
}
