package model

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/schema"
	"github.com/user/testpad_go/internal/validation"
)

const dateLayout = "2006-01-02"

// ToDict renders the whole session as a current-version persisted record.
// Numbers are stored as float64 so a JSON round trip is lossless.
func (m *Model) ToDict() schema.Record {
	series := make(map[string]any, len(m.readings))
	for i, v := range m.readings {
		series[strconv.Itoa(i)] = v
	}

	rows := make([]any, 0, len(m.rows))
	for i, r := range m.rows {
		rows = append(rows, map[string]any{
			"key":       r.Key,
			"position":  i,
			"pass_fail": r.PassFail.persisted(),
			"measured":  floatOrNil(r.Measured),
			"spec_min":  floatOrNil(r.SpecMin),
			"spec_max":  floatOrNil(r.SpecMax),
		})
	}

	testDate := ""
	if !m.meta.TestDate.IsZero() {
		testDate = m.meta.TestDate.Format(dateLayout)
	}

	var source any
	if m.sourcePath != "" {
		source = m.sourcePath
	}

	return schema.Record{
		schema.VersionKey: schema.CurrentVersion,
		"device":          m.spec.Name,
		"metadata": map[string]any{
			"operator":      m.meta.Operator,
			"test_date":     testDate,
			"location":      m.meta.Location,
			"serial_number": m.meta.SerialNumber,
		},
		"time_series":   series,
		"ambient_value": floatOrNil(m.ambient),
		"test_rows":     rows,
		"source_path":   source,
	}
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// FromDict builds a session from a persisted record of any supported
// version. The record is migrated first; every stored value then passes the
// same validation the mutators apply.
func FromDict(spec *device.Spec, rec schema.Record, opts ...Option) (*Model, error) {
	migrated, err := schema.Migrate(rec, spec.Name)
	if err != nil {
		return nil, err
	}

	m := New(spec, opts...)
	if name, ok := migrated["device"].(string); ok && name != spec.Name {
		return nil, &schema.FieldError{Field: "device", Reason: fmt.Sprintf("state is for %q, not %q", name, spec.Name)}
	}
	if err := m.restoreMetadata(migrated["metadata"]); err != nil {
		return nil, err
	}
	if err := m.restoreSeries(migrated["time_series"]); err != nil {
		return nil, err
	}
	ambient, err := optionalFloat("ambient_value", migrated["ambient_value"])
	if err != nil {
		return nil, err
	}
	if m.ambient, err = validation.ValidateAmbient(ambient); err != nil {
		return nil, err
	}
	if err := m.restoreRows(migrated["test_rows"]); err != nil {
		return nil, err
	}
	switch src := migrated["source_path"].(type) {
	case nil:
	case string:
		m.sourcePath = src
	default:
		return nil, &schema.FieldError{Field: "source_path", Reason: "must be a string or null"}
	}
	return m, nil
}

// Restore replaces the whole session with rec. Nothing changes when rec is
// rejected.
func (m *Model) Restore(rec schema.Record) (Snapshot, error) {
	restored, err := FromDict(m.spec, rec, WithFs(m.fs), WithClock(m.clock), WithPrecision(m.precision))
	if err != nil {
		return Snapshot{}, err
	}
	m.readings = restored.readings
	m.ambient = restored.ambient
	m.rows = restored.rows
	m.meta = restored.meta
	m.sourcePath = restored.sourcePath
	return m.GetState(), nil
}

func (m *Model) restoreMetadata(raw any) error {
	if raw == nil {
		return nil
	}
	meta, ok := raw.(map[string]any)
	if !ok {
		return &schema.FieldError{Field: "metadata", Reason: "must be an object"}
	}
	text := func(key string) (string, error) {
		switch v := meta[key].(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		default:
			return "", &schema.FieldError{Field: "metadata." + key, Reason: "must be a string"}
		}
	}

	var err error
	if m.meta.Operator, err = text("operator"); err != nil {
		return err
	}
	if m.meta.Location, err = text("location"); err != nil {
		return err
	}
	if m.meta.SerialNumber, err = text("serial_number"); err != nil {
		return err
	}
	date, err := text("test_date")
	if err != nil {
		return err
	}
	m.meta.TestDate = time.Time{}
	if date != "" {
		t, perr := time.Parse(dateLayout, date)
		if perr != nil {
			if t, perr = time.Parse(time.RFC3339, date); perr != nil {
				return &schema.FieldError{Field: "metadata.test_date", Reason: "must be a YYYY-MM-DD date"}
			}
		}
		m.meta.TestDate = dateOf(t)
	}
	return nil
}

func (m *Model) restoreSeries(raw any) error {
	if raw == nil {
		return nil
	}
	series, ok := raw.(map[string]any)
	if !ok {
		return &schema.FieldError{Field: "time_series", Reason: "must be an object"}
	}
	bounds, rule := m.spec.IndexBounds(), m.spec.ReadingRule()
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		index, err := validation.ParseTimeIndex(k, bounds)
		if err != nil {
			return fmt.Errorf("time_series key %q: %w", k, err)
		}
		f, ok := schema.ToFloat(series[k])
		if !ok {
			return &schema.FieldError{Field: "time_series." + k, Reason: "must be a number"}
		}
		value, err := validation.ValidateReading(f, rule)
		if err != nil {
			return fmt.Errorf("time_series key %q: %w", k, err)
		}
		m.readings[index] = value
	}
	return nil
}

func (m *Model) restoreRows(raw any) error {
	if raw == nil {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return &schema.FieldError{Field: "test_rows", Reason: "must be a list"}
	}
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return &schema.FieldError{Field: fmt.Sprintf("test_rows[%d]", i), Reason: "must be an object"}
		}
		idx, err := m.rowFor(entry, i)
		if err != nil {
			return err
		}
		if idx < 0 || m.rows[idx].Section {
			continue
		}
		if err := restoreRow(&m.rows[idx], entry); err != nil {
			return err
		}
	}
	return nil
}

// rowFor locates the row an entry describes: by key when present, by
// position for records written before rows had keys. -1 means the entry has
// no counterpart in this device's table.
func (m *Model) rowFor(entry map[string]any, i int) (int, error) {
	if key, ok := entry["key"].(string); ok {
		for j, r := range m.rows {
			if r.Key == key {
				return j, nil
			}
		}
		return -1, &KeyError{Kind: "test row", Key: key}
	}
	pos := i
	if raw, ok := entry["position"]; ok {
		f, isNum := schema.ToFloat(raw)
		if !isNum {
			return -1, &schema.FieldError{Field: fmt.Sprintf("test_rows[%d].position", i), Reason: "must be an integer"}
		}
		pos = int(f)
	}
	if pos < 0 || pos >= len(m.rows) {
		return -1, nil
	}
	return pos, nil
}

func restoreRow(row *TestRow, entry map[string]any) error {
	field := func(name string) string { return "test_rows." + row.Key + "." + name }

	if raw, ok := entry["pass_fail"]; ok && raw != nil {
		text, isStr := raw.(string)
		if !isStr {
			return &schema.FieldError{Field: field("pass_fail"), Reason: "must be a string"}
		}
		pf, err := ParsePassFail(text)
		if err != nil {
			return err
		}
		row.PassFail = pf
	}

	for name, dst := range map[string]**float64{
		"measured": &row.Measured,
		"spec_min": &row.SpecMin,
		"spec_max": &row.SpecMax,
	} {
		raw, ok := entry[name]
		if !ok {
			continue
		}
		v, err := optionalFloat(field(name), raw)
		if err != nil {
			return err
		}
		*dst = v
	}

	// Stored overrides were accepted when they were entered; only an
	// inverted window is rejected here.
	err := validation.ValidateSpecOverride(row.Key, row.FactoryMin, row.FactoryMax, row.SpecMin, row.SpecMax)
	if err != nil && !validation.IsWarning(err) {
		return err
	}
	return nil
}

func optionalFloat(field string, raw any) (*float64, error) {
	if raw == nil {
		return nil, nil
	}
	f, ok := schema.ToFloat(raw)
	if !ok {
		return nil, &schema.FieldError{Field: field, Reason: "must be a number or null"}
	}
	return &f, nil
}
