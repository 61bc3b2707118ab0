package presenter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/user/testpad_go/internal/model"
	"github.com/user/testpad_go/internal/parser"
	"github.com/user/testpad_go/internal/report"
	"github.com/user/testpad_go/internal/schema"
	"github.com/user/testpad_go/internal/storage"
	"github.com/user/testpad_go/internal/validation"
)

var actionTitles = map[string]string{
	"import":        "Import Error",
	"export":        "Export Error",
	"reading":       "Invalid Reading",
	"ambient":       "Invalid Temperature",
	"test row":      "Test Table Error",
	"test date":     "Invalid Date",
	"metadata":      "Invalid Field",
	"output folder": "Output Folder",
}

func titleFor(action string) string {
	if t, ok := actionTitles[action]; ok {
		return t
	}
	return "Error"
}

// userMessage turns an error into one short line for the user. File-system
// detail such as errno text stays in the log.
func userMessage(err error) string {
	var (
		ioErr     *storage.IOError
		importErr *model.ImportError
		parseErr  *parser.ParseError
		formatErr *parser.FormatError
		versErr   *schema.SchemaVersionError
		fieldErr  *schema.FieldError
		genErr    *report.GenerateError
		warning   *validation.SpecOverrideWarning
		keyErr    *model.KeyError
	)
	switch {
	case errors.As(err, &importErr):
		if importErr.Line > 0 {
			return fmt.Sprintf("Line %d of %s: %s", importErr.Line, filepath.Base(importErr.Path), userMessage(importErr.Err))
		}
		return fmt.Sprintf("%s: %s", filepath.Base(importErr.Path), userMessage(importErr.Err))
	case errors.As(err, &parseErr):
		return capitalize(parseErr.Error())
	case errors.As(err, &formatErr):
		if len(formatErr.Expected) > 0 {
			return fmt.Sprintf("The file is not a valid CSV: %s (expected one of: %s).", formatErr.Reason, strings.Join(formatErr.Expected, ", "))
		}
		return fmt.Sprintf("The file is not a valid CSV: %s.", formatErr.Reason)
	case errors.As(err, &genErr) && !errors.As(err, &ioErr):
		return fmt.Sprintf("Failed to generate report during the %s step.", genErr.Stage)
	case errors.As(err, &ioErr):
		return fmt.Sprintf("Could not %s %s. Check that the location exists and is writable.", ioErr.Op, ioErr.Path)
	case errors.Is(err, report.ErrNoFreeName):
		return "Too many reports with this serial number already exist in the output folder."
	case errors.As(err, &versErr):
		return "The saved data was written by an unsupported version and was not loaded."
	case errors.As(err, &fieldErr):
		return capitalize(fieldErr.Error())
	case errors.As(err, &warning):
		return capitalize(warning.Error())
	case errors.As(err, &keyErr):
		return capitalize(keyErr.Error())
	case errors.Is(err, validation.ErrInvalid):
		return capitalize(err.Error())
	default:
		return "Unexpected error; see the log for details."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
