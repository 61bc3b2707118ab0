package presenter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/user/testpad_go/internal/config"
	"github.com/user/testpad_go/internal/model"
	"github.com/user/testpad_go/internal/validation"
)

// Column identifies an editable column of the test table.
type Column int

const (
	ColumnPassFail Column = iota
	ColumnMeasured
	ColumnSpecMin
	ColumnSpecMax
)

func (c Column) String() string {
	switch c {
	case ColumnPassFail:
		return "pass_fail"
	case ColumnMeasured:
		return "measured"
	case ColumnSpecMin:
		return "spec_min"
	case ColumnSpecMax:
		return "spec_max"
	default:
		return fmt.Sprintf("Column(%d)", int(c))
	}
}

// ParseColumn maps the shell's column name to a Column.
func ParseColumn(name string) (Column, error) {
	for c := ColumnPassFail; c <= ColumnSpecMax; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, &model.KeyError{Kind: "test table column", Key: name}
}

// columnHandlers turn the text of one cell into a row update.
var columnHandlers = map[Column]func(text string) (model.RowUpdate, error){
	ColumnPassFail: func(text string) (model.RowUpdate, error) {
		pf, err := model.ParsePassFail(text)
		if err != nil {
			return model.RowUpdate{}, err
		}
		return model.RowUpdate{PassFail: &pf}, nil
	},
	ColumnMeasured: func(text string) (model.RowUpdate, error) {
		v, err := validation.ParseOptionalFloat("measured value", text)
		return model.RowUpdate{Measured: model.PatchOf(v)}, err
	},
	ColumnSpecMin: func(text string) (model.RowUpdate, error) {
		v, err := validation.ParseOptionalFloat("spec min", text)
		return model.RowUpdate{SpecMin: model.PatchOf(v)}, err
	},
	ColumnSpecMax: func(text string) (model.RowUpdate, error) {
		v, err := validation.ParseOptionalFloat("spec max", text)
		return model.RowUpdate{SpecMax: model.PatchOf(v)}, err
	},
}

var metadataFields = map[string]model.MetadataField{
	model.FieldOperator.String():     model.FieldOperator,
	model.FieldLocation.String():     model.FieldLocation,
	model.FieldSerialNumber.String(): model.FieldSerialNumber,
}

// OnMetadataChanged stores one free-text metadata field. name is
// "operator", "location" or "serial_number".
func (c *Coordinator) OnMetadataChanged(name, text string) {
	field, ok := metadataFields[name]
	if !ok {
		c.reject("metadata", &model.KeyError{Kind: "metadata field", Key: name})
		return
	}
	snap, err := c.model.SetMetadataField(field, strings.TrimSpace(text))
	if err != nil {
		c.reject("metadata", err)
		return
	}
	c.commit(snap)
}

// OnTestDateChanged takes a YYYY-MM-DD date; blank clears it.
func (c *Coordinator) OnTestDateChanged(text string) {
	text = strings.TrimSpace(text)
	var date time.Time
	if text != "" {
		var err error
		date, err = time.Parse(time.DateOnly, text)
		if err != nil {
			c.reject("test date", &validation.ValueError{Field: "test date", Raw: text, Reason: "must be a date like 2025-01-31"})
			return
		}
	}
	c.commit(c.model.SetTestDate(date))
}

// OnReadingEdited sets the reading at a minute; blank value text clears it.
func (c *Coordinator) OnReadingEdited(indexText, valueText string) {
	index, err := validation.ParseTimeIndex(indexText, c.spec.IndexBounds())
	if err != nil {
		c.reject("reading", err)
		return
	}
	if strings.TrimSpace(valueText) == "" {
		snap, err := c.model.ClearMeasurement(index)
		if err != nil {
			c.reject("reading", err)
			return
		}
		c.log.WithField("index", index).Debug("Cleared reading")
		c.commit(snap)
		return
	}
	value, err := validation.ParseReading(valueText, c.spec.ReadingRule())
	if err != nil {
		c.reject("reading", err)
		return
	}
	snap, err := c.model.SetMeasurement(index, value)
	if err != nil {
		c.reject("reading", err)
		return
	}
	c.log.WithFields(logrus.Fields{"index": index, "value": value}).Debug("Set reading")
	c.commit(snap)
}

// OnAmbientEdited sets the ambient value; blank clears it.
func (c *Coordinator) OnAmbientEdited(text string) {
	v, err := validation.ParseAmbient(text)
	if err != nil {
		c.reject("ambient", err)
		return
	}
	snap, err := c.model.SetAmbient(v)
	if err != nil {
		c.reject("ambient", err)
		return
	}
	c.commit(snap)
}

// OnTestRowEdited applies the text of one test-table cell.
func (c *Coordinator) OnTestRowEdited(key string, column Column, text string) {
	handler, ok := columnHandlers[column]
	if !ok {
		c.reject("test row", &model.KeyError{Kind: "test table column", Key: column.String()})
		return
	}
	update, err := handler(text)
	if err != nil {
		c.reject("test row", err)
		return
	}

	snap, err := c.model.UpdateTestRow(key, update)
	if validation.IsWarning(err) && c.cfg.OverridePolicy == config.OverrideFlag {
		warning := err
		update.AcceptOverride = true
		snap, err = c.model.UpdateTestRow(key, update)
		if err == nil {
			c.log.WithField("row", key).WithError(warning).Warn("Spec override accepted")
			c.commit(snap)
			c.notify(LevelWarning, "Spec Override", userMessage(warning))
			return
		}
	}
	if err != nil {
		c.reject("test row", err)
		return
	}
	c.commit(snap)
}

// OnSelectOutputDir lets the user pick the report directory.
func (c *Coordinator) OnSelectOutputDir() {
	path, ok, err := c.picker.SelectDirectory("Select Output Folder", c.outputDir)
	if err != nil {
		c.reject("output folder", err)
		return
	}
	if !ok {
		return
	}
	if !filepath.IsAbs(path) {
		c.reject("output folder", &validation.ValueError{Field: "output folder", Raw: path, Reason: "must be an absolute path"})
		return
	}
	c.outputDir = filepath.Clean(path)
	c.info("Output folder set to %s", c.outputDir)
}

// OnReset discards the session after confirmation. A running report job is
// cancelled.
func (c *Coordinator) OnReset() {
	if !c.prompter.Confirm("Confirm Reset Data", "Are you sure you want to reset all data? This action cannot be undone.") {
		return
	}
	c.cancelReport()
	c.commit(c.model.Reset())
	c.info("All data reset.")
}
