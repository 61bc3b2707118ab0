package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/storage"
	"github.com/user/testpad_go/internal/validation"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

var testNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestModel(t *testing.T) (*Model, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return New(device.DS50(), WithFs(fs), WithClock(fixedClock(testNow))), fs
}

func ptr(v float64) *float64 { return &v }

func TestNewSessionIsEmpty(t *testing.T) {
	m, _ := newTestModel(t)
	snap := m.GetState()

	assert.False(t, snap.Loaded())
	assert.Equal(t, 0, snap.PointsFilled())
	assert.Nil(t, snap.Ambient)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), snap.Metadata.TestDate)
	require.Len(t, snap.TestRows, 7)

	flow, ok := snap.Row("flow_rate")
	require.True(t, ok)
	assert.Equal(t, ptr(300), flow.SpecMin)
	assert.Equal(t, ptr(700), flow.SpecMax)
	assert.False(t, flow.MinOverridden())
	assert.Len(t, snap.Slots(), 11)
}

func TestSetMeasurementValidation(t *testing.T) {
	m, _ := newTestModel(t)

	_, err := m.SetMeasurement(-1, 5.0)
	var rangeErr *validation.RangeError
	assert.ErrorAs(t, err, &rangeErr)

	_, err = m.SetMeasurement(11, 5.0)
	assert.ErrorAs(t, err, &rangeErr)

	_, err = m.SetMeasurement(0, -3.0)
	var valueErr *validation.ValueError
	assert.ErrorAs(t, err, &valueErr)

	_, err = m.SetMeasurement(0, 0)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	assert.Empty(t, m.ListMeasurements())

	snap, err := m.SetMeasurement(0, 5.0)
	require.NoError(t, err)
	assert.Equal(t, []Reading{{Index: 0, Value: 5.0}}, snap.Readings)
}

func TestSetMeasurementOverwrites(t *testing.T) {
	m, _ := newTestModel(t)
	_, err := m.SetMeasurement(3, 5.0)
	require.NoError(t, err)
	snap, err := m.SetMeasurement(3, 6.5)
	require.NoError(t, err)
	assert.Equal(t, []Reading{{Index: 3, Value: 6.5}}, snap.Readings)
}

func TestListMeasurementsSorted(t *testing.T) {
	m, _ := newTestModel(t)
	for _, i := range []int{7, 0, 3} {
		_, err := m.SetMeasurement(i, float64(10-i))
		require.NoError(t, err)
	}
	got := m.ListMeasurements()
	assert.Equal(t, []Reading{{0, 10}, {3, 7}, {7, 3}}, got)

	got[0].Value = 99
	assert.Equal(t, 10.0, m.ListMeasurements()[0].Value)
}

func TestClearMeasurement(t *testing.T) {
	m, _ := newTestModel(t)
	_, err := m.SetMeasurement(2, 5.0)
	require.NoError(t, err)

	before := m.GetState()
	snap, err := m.ClearMeasurement(5)
	require.NoError(t, err)
	if diff := cmp.Diff(before, snap); diff != "" {
		t.Errorf("clearing an empty slot changed state (-before +after):\n%s", diff)
	}

	snap, err = m.ClearMeasurement(2)
	require.NoError(t, err)
	assert.Empty(t, snap.Readings)

	_, err = m.ClearMeasurement(42)
	var rangeErr *validation.RangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestSetAmbient(t *testing.T) {
	m, _ := newTestModel(t)

	snap, err := m.SetAmbient(ptr(0))
	require.NoError(t, err)
	require.NotNil(t, snap.Ambient)
	assert.Equal(t, 0.0, *snap.Ambient)

	snap, err = m.SetAmbient(nil)
	require.NoError(t, err)
	assert.Nil(t, snap.Ambient)

	v := 22.3
	_, err = m.SetAmbient(&v)
	require.NoError(t, err)
	v = 99
	assert.Equal(t, 22.3, *m.Ambient())
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	m, _ := newTestModel(t)
	_, err := m.UpdateTestRow("flow_rate", RowUpdate{Measured: SetTo(500)})
	require.NoError(t, err)

	snap := m.GetState()
	*snap.TestRows[1].Measured = 1
	*snap.TestRows[1].SpecMin = 1

	row, _ := m.GetState().Row("flow_rate")
	assert.Equal(t, 500.0, *row.Measured)
	assert.Equal(t, 300.0, *row.SpecMin)
}

func TestUpdateTestRowAutoEvaluates(t *testing.T) {
	m, _ := newTestModel(t)

	snap, err := m.UpdateTestRow("flow_rate", RowUpdate{Measured: SetTo(500)})
	require.NoError(t, err)
	row, _ := snap.Row("flow_rate")
	assert.Equal(t, Pass, row.PassFail)

	snap, err = m.UpdateTestRow("flow_rate", RowUpdate{Measured: SetTo(800)})
	require.NoError(t, err)
	row, _ = snap.Row("flow_rate")
	assert.Equal(t, Fail, row.PassFail)

	pass := Pass
	snap, err = m.UpdateTestRow("flow_rate", RowUpdate{Measured: SetTo(900), PassFail: &pass})
	require.NoError(t, err)
	row, _ = snap.Row("flow_rate")
	assert.Equal(t, Pass, row.PassFail, "explicit verdict wins")

	snap, err = m.UpdateTestRow("flow_rate", RowUpdate{Measured: Cleared()})
	require.NoError(t, err)
	row, _ = snap.Row("flow_rate")
	assert.Nil(t, row.Measured)
	assert.Equal(t, PassFailUnset, row.PassFail)
}

func TestUpdateTestRowNarrowingSpecReevaluates(t *testing.T) {
	m, _ := newTestModel(t)
	_, err := m.UpdateTestRow("flow_rate", RowUpdate{Measured: SetTo(650)})
	require.NoError(t, err)

	snap, err := m.UpdateTestRow("flow_rate", RowUpdate{SpecMax: SetTo(600)})
	require.NoError(t, err)
	row, _ := snap.Row("flow_rate")
	assert.Equal(t, Fail, row.PassFail)
	assert.True(t, row.MaxOverridden())
	assert.False(t, row.MinOverridden())
}

func TestUpdateTestRowOverrideWarning(t *testing.T) {
	m, _ := newTestModel(t)
	before := m.GetState()

	_, err := m.UpdateTestRow("flow_rate", RowUpdate{SpecMax: SetTo(900)})
	var warning *validation.SpecOverrideWarning
	require.ErrorAs(t, err, &warning)
	assert.Equal(t, []string{"max"}, warning.Bounds)
	assert.NotErrorIs(t, err, validation.ErrInvalid)
	if diff := cmp.Diff(before, m.GetState()); diff != "" {
		t.Errorf("warning committed a change (-before +after):\n%s", diff)
	}

	snap, err := m.UpdateTestRow("flow_rate", RowUpdate{SpecMax: SetTo(900), AcceptOverride: true})
	require.NoError(t, err)
	row, _ := snap.Row("flow_rate")
	assert.Equal(t, ptr(900), row.SpecMax)
	assert.True(t, row.MaxOverridden())
}

func TestUpdateTestRowWarnsOnlyForEditedBound(t *testing.T) {
	m, _ := newTestModel(t)
	_, err := m.UpdateTestRow("flow_rate", RowUpdate{SpecMin: SetTo(200), AcceptOverride: true})
	require.NoError(t, err)

	snap, err := m.UpdateTestRow("flow_rate", RowUpdate{SpecMax: SetTo(650)})
	require.NoError(t, err, "tightening max must not re-raise the accepted min")
	row, _ := snap.Row("flow_rate")
	assert.Equal(t, ptr(200), row.SpecMin)
	assert.Equal(t, ptr(650), row.SpecMax)

	_, err = m.UpdateTestRow("flow_rate", RowUpdate{SpecMax: SetTo(800)})
	var warning *validation.SpecOverrideWarning
	require.ErrorAs(t, err, &warning)
	assert.Equal(t, []string{"max"}, warning.Bounds)

	_, err = m.UpdateTestRow("flow_rate", RowUpdate{Measured: SetTo(250)})
	assert.NoError(t, err)
}

func TestUpdateTestRowRejections(t *testing.T) {
	m, _ := newTestModel(t)
	before := m.GetState()

	_, err := m.UpdateTestRow("no_such_row", RowUpdate{Measured: SetTo(1)})
	var keyErr *KeyError
	assert.ErrorAs(t, err, &keyErr)

	_, err = m.UpdateTestRow("recirculation", RowUpdate{Measured: SetTo(1)})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = m.UpdateTestRow("flow_rate", RowUpdate{})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = m.UpdateTestRow("flow_rate", RowUpdate{SpecMin: SetTo(650), SpecMax: SetTo(400), AcceptOverride: true})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	bad := PassFail(7)
	_, err = m.UpdateTestRow("flow_rate", RowUpdate{Measured: SetTo(500), PassFail: &bad})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	if diff := cmp.Diff(before, m.GetState()); diff != "" {
		t.Errorf("rejected updates changed state (-before +after):\n%s", diff)
	}
}

func TestParsePassFail(t *testing.T) {
	for text, want := range map[string]PassFail{"": PassFailUnset, "Pass": Pass, " fail ": Fail, "PASS": Pass} {
		got, err := ParsePassFail(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}
	_, err := ParsePassFail("maybe")
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestMetadataSetters(t *testing.T) {
	m, _ := newTestModel(t)
	_, err := m.SetMetadataField(FieldOperator, "Ada")
	require.NoError(t, err)
	_, err = m.SetMetadataField(FieldSerialNumber, "1234")
	require.NoError(t, err)
	snap := m.SetTestDate(time.Date(2024, 12, 1, 18, 30, 0, 0, time.UTC))

	assert.Equal(t, "Ada", snap.Metadata.Operator)
	assert.Equal(t, "1234", snap.Metadata.SerialNumber)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), snap.Metadata.TestDate)

	_, err = m.SetMetadataField(MetadataField(9), "x")
	var keyErr *KeyError
	assert.ErrorAs(t, err, &keyErr)
}

func TestReset(t *testing.T) {
	m, _ := newTestModel(t)
	fresh := m.GetState()

	_, err := m.SetMeasurement(1, 8)
	require.NoError(t, err)
	_, err = m.SetAmbient(ptr(21))
	require.NoError(t, err)
	_, err = m.UpdateTestRow("do_level", RowUpdate{Measured: SetTo(2.5)})
	require.NoError(t, err)
	_, err = m.SetMetadataField(FieldLocation, "Bay 2")
	require.NoError(t, err)

	if diff := cmp.Diff(fresh, m.Reset()); diff != "" {
		t.Errorf("reset did not restore defaults (-want +got):\n%s", diff)
	}
}

func TestValidateForReport(t *testing.T) {
	m, _ := newTestModel(t)
	missing := m.ValidateForReport()
	assert.Contains(t, missing, "'Tester Name'")
	assert.Contains(t, missing, "'DS-50 Serial Number'")
	assert.Contains(t, missing, "'Flow Rate' measurement")
	assert.Contains(t, missing, "Dissolved O2 measurements")
	assert.NotContains(t, missing, "'Test Date'")
	for _, item := range missing {
		assert.NotContains(t, item, "re-circulation test", "section rows are not reported")
	}
}

func TestEndToEndCSVScenario(t *testing.T) {
	m, fs := newTestModel(t)
	_, err := m.SetMeasurement(0, 7.5)
	require.NoError(t, err)
	_, err = m.SetMeasurement(5, 4.0)
	require.NoError(t, err)
	_, err = m.SetAmbient(ptr(22.3))
	require.NoError(t, err)
	require.NoError(t, m.ExportCSV("/data/run.csv"))

	fresh := New(device.DS50(), WithFs(fs), WithClock(fixedClock(testNow)))
	snap, err := fresh.LoadFromCSV("/data/run.csv")
	require.NoError(t, err)

	assert.Equal(t, []Reading{{0, 7.5}, {5, 4.0}}, snap.Readings)
	require.NotNil(t, snap.Ambient)
	assert.InDelta(t, 22.3, *snap.Ambient, 1e-9)
	assert.Equal(t, "/data/run.csv", snap.SourcePath)
}

func TestCSVRoundTripWithinPrecision(t *testing.T) {
	m, fs := newTestModel(t)
	values := map[int]float64{0: 8.123456, 1: 6.00004, 4: 3.99995, 10: 0.0001}
	for i, v := range values {
		_, err := m.SetMeasurement(i, v)
		require.NoError(t, err)
	}
	require.NoError(t, m.ExportCSV("/rt.csv"))

	fresh := New(device.DS50(), WithFs(fs), WithClock(fixedClock(testNow)))
	snap, err := fresh.LoadFromCSV("/rt.csv")
	require.NoError(t, err)
	require.Len(t, snap.Readings, len(values))
	for _, r := range snap.Readings {
		assert.InDelta(t, values[r.Index], r.Value, 1e-4)
	}
	assert.Nil(t, snap.Ambient)
}

func TestLoadFromCSVIsAtomic(t *testing.T) {
	m, fs := newTestModel(t)
	_, err := m.SetMeasurement(9, 1.5)
	require.NoError(t, err)
	_, err = m.SetAmbient(ptr(20))
	require.NoError(t, err)
	before := m.GetState()

	csv := "minute,oxygen,temperature_c\n0,8.0,21\n1,7.0,21\n2,abc,21\n3,5.0,21\n4,4.0,21\n"
	require.NoError(t, afero.WriteFile(fs, "/bad.csv", []byte(csv), 0o644))

	_, err = m.LoadFromCSV("/bad.csv")
	require.Error(t, err)
	if diff := cmp.Diff(before, m.GetState()); diff != "" {
		t.Errorf("failed import changed state (-before +after):\n%s", diff)
	}
}

func TestLoadFromCSVRejectsInvalidReadingWithLine(t *testing.T) {
	m, fs := newTestModel(t)
	before := m.GetState()
	csv := "time,o2\n0,8.0\n1,7.0\n2,-1\n"
	require.NoError(t, afero.WriteFile(fs, "/neg.csv", []byte(csv), 0o644))

	_, err := m.LoadFromCSV("/neg.csv")
	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, 4, importErr.Line)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Equal(t, before, m.GetState())
}

func TestLoadFromCSVAmbientHandling(t *testing.T) {
	m, fs := newTestModel(t)
	_, err := m.SetAmbient(ptr(19))
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/noamb.csv", []byte("minute,oxygen\n0,8\n"), 0o644))
	snap, err := m.LoadFromCSV("/noamb.csv")
	require.NoError(t, err)
	assert.Equal(t, ptr(19), snap.Ambient, "absent column keeps ambient")

	require.NoError(t, afero.WriteFile(fs, "/empty.csv", []byte("minute,oxygen,temp\n0,8,\n"), 0o644))
	snap, err = m.LoadFromCSV("/empty.csv")
	require.NoError(t, err)
	assert.Nil(t, snap.Ambient, "empty column clears ambient")
}

func TestLoadFromCSVFractionalIndex(t *testing.T) {
	m, fs := newTestModel(t)
	require.NoError(t, afero.WriteFile(fs, "/frac.csv", []byte("minute,oxygen\n3.0,8\n2.5,7\n"), 0o644))
	_, err := m.LoadFromCSV("/frac.csv")
	var typeErr *validation.TypeError
	assert.ErrorAs(t, err, &typeErr)
	assert.Empty(t, m.ListMeasurements())
}

func TestLoadFromCSVMissingFile(t *testing.T) {
	m, _ := newTestModel(t)
	_, err := m.LoadFromCSV("/missing.csv")
	var ioErr *storage.IOError
	assert.ErrorAs(t, err, &ioErr)
	assert.Empty(t, m.GetState().SourcePath)
}

func TestExportCSVWriteFailure(t *testing.T) {
	m, _ := newTestModel(t)
	m.fs = afero.NewReadOnlyFs(afero.NewMemMapFs())
	err := m.ExportCSV("/out/run.csv")
	var ioErr *storage.IOError
	assert.True(t, errors.As(err, &ioErr))
}
