package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/user/testpad_go/internal/storage"
)

// MaxNameAttempts bounds the _1, _2, ... suffixes tried on a name collision.
const MaxNameAttempts = 100

const noSerial = "NOSERIAL"

// ErrNoFreeName is returned when every suffixed report name is taken.
var ErrNoFreeName = errors.New("no free report file name")

// ReportFilename builds "<prefix><serial>_<yyyymmdd-HHMMSS>.pdf". The serial
// loses any '#' and has path-unsafe characters replaced by '_'.
func ReportFilename(prefix, serial string, at time.Time) string {
	return fmt.Sprintf("%s%s_%s.pdf", prefix, sanitizeSerial(serial), at.Format("20060102-150405"))
}

func sanitizeSerial(serial string) string {
	serial = strings.TrimSpace(strings.ReplaceAll(serial, "#", ""))
	if serial == "" {
		return noSerial
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, serial)
}

// WriteReport writes pdf to dir/name, or to the first free name_N variant
// when name is taken, and returns the path used. The file appears at that
// path only once it is complete, and an existing report is never replaced:
// a name taken while the report is being written moves on to the next
// suffix.
func WriteReport(fs afero.Fs, dir, name string, pdf []byte) (string, error) {
	base := filepath.Join(dir, name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 0; i <= MaxNameAttempts; i++ {
		path := base
		if i > 0 {
			path = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		taken, err := storage.Exists(fs, path)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}
		err = storage.WriteFileNew(fs, path, pdf)
		if errors.Is(err, storage.ErrExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("%w after %d attempts: %s", ErrNoFreeName, MaxNameAttempts, base)
}

// Written describes a report file on disk.
type Written struct {
	Path  string
	Pages int
}

// Producer runs chart, layout and write for one report. Cancellation is
// checked between stages; a cancelled run leaves no file behind.
type Producer struct {
	Fs     afero.Fs
	Charts ChartRenderer
	Log    logrus.FieldLogger
}

// Produce builds the report for in and writes it into dir. A chart failure
// is logged and the report is laid out without the chart. A cancelled ctx
// returns ctx.Err() unwrapped.
func (p Producer) Produce(ctx context.Context, in Input, dir string) (Written, error) {
	if err := ctx.Err(); err != nil {
		return Written{}, err
	}

	var chart []byte
	if p.Charts != nil && len(in.Session.Readings) > 0 {
		img, err := p.Charts.RenderChart(ctx, ChartDataFor(in))
		switch {
		case ctx.Err() != nil:
			return Written{}, ctx.Err()
		case err != nil:
			p.logger().WithError(err).Warn("Chart rendering failed, continuing without chart")
		default:
			chart = img
		}
	}
	if err := ctx.Err(); err != nil {
		return Written{}, err
	}

	res := Generate(in, chart)
	if res.Err != nil {
		return Written{}, res.Err
	}
	if err := ctx.Err(); err != nil {
		return Written{}, err
	}

	name := ReportFilename(in.Device.FilenamePrefix, in.Session.Metadata.SerialNumber, in.GeneratedAt)
	path, err := WriteReport(p.Fs, dir, name, res.PDF)
	if err != nil {
		return Written{}, &GenerateError{Stage: StageWrite, Err: err}
	}
	p.logger().WithFields(logrus.Fields{"path": path, "pages": res.Pages}).Info("Report written")
	return Written{Path: path, Pages: res.Pages}, nil
}

func (p Producer) logger() logrus.FieldLogger {
	if p.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return p.Log
}
