package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/storage"
)

// resolveColumn finds the position of col among the normalized headers.
func resolveColumn(normalized []string, col Column) int {
	for i, h := range normalized {
		if col.accepts(h) {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNumber(raw string, line int, column string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParseError{Line: line, Column: column, Raw: raw, Reason: "value is not numeric"}
	}
	return v, nil
}

// ParseSeries reads a time-series CSV. Headers are matched against the
// schema aliases case-insensitively; unknown columns are ignored. Rows whose
// index and reading are both blank are skipped but may still carry the
// ambient value.
func ParseSeries(r io.Reader, schema Schema) (*ParsedSeries, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // exports from other tools are ragged

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &FormatError{Reason: "missing header row"}
	}
	if err != nil {
		return nil, &FormatError{Reason: "failed to read header row", Err: err}
	}

	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = device.NormalizeHeader(h)
	}

	indexCol := resolveColumn(normalized, schema.Index)
	if indexCol < 0 {
		return nil, &FormatError{Reason: "missing required time column", Expected: schema.Index.expected()}
	}
	readingCol := resolveColumn(normalized, schema.Reading)
	if readingCol < 0 {
		return nil, &FormatError{Reason: "missing required reading column", Expected: schema.Reading.expected()}
	}
	ambientCol := resolveColumn(normalized, schema.Ambient)

	parsed := &ParsedSeries{
		Headers:          append([]string(nil), header...),
		HasAmbientColumn: ambientCol >= 0,
	}
	for i, h := range header {
		if i != indexCol && i != readingCol && i != ambientCol {
			parsed.Ignored = append(parsed.Ignored, h)
		}
	}

	indexName, readingName := header[indexCol], header[readingCol]
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FormatError{Reason: "malformed CSV", Err: err}
		}
		line, _ := reader.FieldPos(0)

		rawIndex, rawReading := cell(row, indexCol), cell(row, readingCol)
		if ambientCol >= 0 {
			if rawAmbient := cell(row, ambientCol); rawAmbient != "" {
				v, err := parseNumber(rawAmbient, line, header[ambientCol])
				if err != nil {
					return nil, err
				}
				parsed.Ambient = &v
			}
		}

		switch {
		case rawIndex == "" && rawReading == "":
			continue
		case rawIndex == "":
			return nil, &ParseError{Line: line, Column: indexName, Reason: "blank cell"}
		case rawReading == "":
			return nil, &ParseError{Line: line, Column: readingName, Reason: "blank cell"}
		}

		index, err := parseNumber(rawIndex, line, indexName)
		if err != nil {
			return nil, err
		}
		reading, err := parseNumber(rawReading, line, readingName)
		if err != nil {
			return nil, err
		}
		parsed.Records = append(parsed.Records, Record{Line: line, Index: index, Reading: reading})
	}

	return parsed, nil
}

// ParseSeriesFile opens path on fs and parses it.
func ParseSeriesFile(fs afero.Fs, path string, schema Schema) (*ParsedSeries, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, &storage.IOError{Op: "open", Path: path, Err: err}
	}
	defer file.Close()

	parsed, err := ParseSeries(file, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}
