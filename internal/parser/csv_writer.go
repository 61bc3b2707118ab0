package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/afero"

	"github.com/user/testpad_go/internal/storage"
)

// Precision bounds for exported readings.
const (
	MinPrecision     = 2
	MaxPrecision     = 4
	DefaultPrecision = 4
)

func formatValue(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// WriteSeries writes rows in canonical column order. The ambient column is
// always present, empty when ambient is nil. When rows is empty but ambient
// is set, a single row with blank index and reading carries it.
func WriteSeries(w io.Writer, schema Schema, rows []Row, ambient *float64, precision int) error {
	if precision < MinPrecision || precision > MaxPrecision {
		return fmt.Errorf("precision must be in range %d..%d, got %d", MinPrecision, MaxPrecision, precision)
	}
	ambientCell := ""
	if ambient != nil {
		ambientCell = formatValue(*ambient, precision)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{schema.Index.Canonical, schema.Reading.Canonical, schema.Ambient.Canonical}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		record := []string{strconv.Itoa(r.Index), formatValue(r.Value, precision), ambientCell}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for %d: %w", r.Index, err)
		}
	}
	if len(rows) == 0 && ambient != nil {
		if err := writer.Write([]string{"", "", ambientCell}); err != nil {
			return fmt.Errorf("failed to write CSV ambient row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSeriesFile writes the CSV to path via a temp file, so a failed export
// never leaves a partial file behind.
func WriteSeriesFile(fs afero.Fs, path string, schema Schema, rows []Row, ambient *float64, precision int) error {
	return storage.WriteAtomic(fs, path, func(w io.Writer) error {
		return WriteSeries(w, schema, rows, ambient, precision)
	})
}
