package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/testpad_go/internal/analysis"
	"github.com/user/testpad_go/internal/model"
)

const (
	inchToMm          = 25.4
	pdfPageWidth      = 8.5 * inchToMm // Letter portrait
	pdfPageHeight     = 11 * inchToMm
	pdfMargin         = 0.6 * inchToMm
	pdfContentWidth   = pdfPageWidth - (2 * pdfMargin)
	noLimit           = "--"
	overrideMark      = "*"
	chartImageName    = "time_series_chart"
	minChartHeightMm  = 50.0
	metadataSpacerCol = 10.0
)

// pdfStyler holds reusable styling and state for PDF generation
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	tr          func(string) string
	styles      map[string]func()
	lineHeight  float64
	currentY    float64 // manually tracked Y position for flowing content
	pageBottom  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		tr:          pdf.UnicodeTranslatorFromDescriptor(""), // cp1252, for the degree sign
		styles:      make(map[string]func()),
		lineHeight:  6,
		pageBottom:  pdfPageHeight - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Helvetica", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Helvetica", "B", 12)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Helvetica", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["small"] = func() {
		s.pdf.SetFont("Helvetica", "I", 8)
		s.pdf.SetTextColor(80, 80, 80)
	}
	s.styles["metadata"] = func() {
		s.pdf.SetFont("Helvetica", "B", 11)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Helvetica", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableSection"] = func() {
		s.pdf.SetFont("Helvetica", "B", 10)
		s.pdf.SetFillColor(235, 235, 235)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Helvetica", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellOverride"] = func() {
		s.pdf.SetFont("Helvetica", "B", 9)
		s.pdf.SetTextColor(200, 0, 0)
	}
	s.styles["tableCellFail"] = func() {
		s.pdf.SetFont("Helvetica", "B", 9)
		s.pdf.SetTextColor(200, 0, 0)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > s.pageBottom {
		s.newPage()
	}
}

func (s *pdfStyler) writeParagraph(text string, styleName string, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitLines([]byte(s.tr(text)), pdfContentWidth)
	s.checkAddPage(float64(len(lines)) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, s.tr(text), "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.currentY += height
	if s.currentY > s.pageBottom {
		s.newPage()
	}
}

// cell draws one bordered table cell at x on the current row.
func (s *pdfStyler) cell(x, width float64, text, styleName, align string, fill bool) {
	s.applyStyle(styleName)
	s.pdf.SetXY(x, s.currentY)
	s.pdf.CellFormat(width, s.lineHeight, s.tr(text), "1", 0, align, fill, 0, "")
}

// tableHeader draws a header row and reserves room for at least one data row.
func (s *pdfStyler) tableHeader(headers []string, widths []float64) {
	s.checkAddPage(2 * s.lineHeight)
	x := pdfMargin
	for i, h := range headers {
		s.cell(x, widths[i], h, "tableHeader", "C", true)
		x += widths[i]
	}
	s.currentY += s.lineHeight
}

// addImage embeds a PNG scaled to width, keeping its aspect ratio.
func (s *pdfStyler) addImage(imageBytes []byte, imageName string, width float64, caption string) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageBytes))
	if err != nil {
		return fmt.Errorf("failed to read chart image: %w", err)
	}
	if format != "png" {
		return fmt.Errorf("chart image must be PNG, got %s", format)
	}
	if width > pdfContentWidth {
		width = pdfContentWidth
	}
	height := width * float64(cfg.Height) / float64(cfg.Width)

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	s.pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(imageBytes))
	if err := s.pdf.Error(); err != nil {
		return fmt.Errorf("failed to register chart image: %w", err)
	}

	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	s.pdf.ImageOptions(imageName, pdfMargin+(pdfContentWidth-width)/2, s.currentY, width, height, false, opts, 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "small", "C")
	}
	s.addSpacer(2)
	return nil
}

// Generate lays out the report for in with the given chart image. It never
// panics: layout failures come back in Result.Err as a *GenerateError. For
// equal inputs the output is byte-identical.
func Generate(in Input, chart []byte) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Err: &GenerateError{Stage: StageLayout, Err: fmt.Errorf("%v", p)}}
		}
	}()

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetCatalogSort(true)
	// A zero GeneratedAt makes gofpdf stamp the wall clock.
	pdf.SetCreationDate(in.GeneratedAt)
	pdf.SetModificationDate(in.GeneratedAt)
	pdf.SetTitle(in.Device.ReportTitle, true)
	pdf.SetCreator("testpad", true)
	pdf.AddPage()

	styler := newPDFStyler(pdf)
	styler.writeParagraph(reportTitle(in), "h1", "C")
	if !in.GeneratedAt.IsZero() {
		styler.writeParagraph("Generated "+in.GeneratedAt.Format("2006-01-02 15:04:05 MST"), "small", "C")
	}
	styler.addSpacer(4)

	buildMetadataBlock(styler, in)
	styler.addSpacer(6)
	buildTestTable(styler, in)
	styler.addSpacer(6)
	buildTimeSeriesTable(styler, in)
	styler.addSpacer(4)
	buildSummary(styler, in, in.Summary())
	styler.addSpacer(4)

	if len(chart) > 0 {
		caption := fmt.Sprintf("%s vs %s", in.Device.Reading.Label, in.Device.Index.Label)
		if err := styler.addImage(chart, chartImageName, pdfContentWidth, caption); err != nil {
			return Result{Err: &GenerateError{Stage: StageChart, Err: err}}
		}
	} else {
		styler.writeParagraph("Chart not available.", "normal", "L")
	}

	if err := pdf.Error(); err != nil {
		return Result{Err: &GenerateError{Stage: StageLayout, Err: err}}
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Result{Err: &GenerateError{Stage: StageOutput, Err: err}}
	}
	return Result{PDF: buf.Bytes(), Pages: pdf.PageCount()}
}

func reportTitle(in Input) string {
	if in.Device.ReportVersion == "" {
		return in.Device.ReportTitle
	}
	return fmt.Sprintf("%s version %s", in.Device.ReportTitle, in.Device.ReportVersion)
}

// buildMetadataBlock draws the 2 x 2 metadata grid; blank values keep their
// slot so the printed form can be filled in by hand.
func buildMetadataBlock(s *pdfStyler, in Input) {
	meta := in.Session.Metadata
	date := ""
	if !meta.TestDate.IsZero() {
		date = meta.TestDate.Format("2006-01-02")
	}
	fields := [][2]string{
		{"Tester", meta.Operator},
		{"Date", date},
		{in.Device.Name + " Serial Number", meta.SerialNumber},
		{"Location", meta.Location},
	}

	colWidth := (pdfContentWidth - metadataSpacerCol) / 2
	s.checkAddPage(2 * s.lineHeight)
	for i := 0; i < len(fields); i += 2 {
		x := pdfMargin
		for _, f := range fields[i : i+2] {
			value := f[1]
			if value == "" {
				value = "      "
			}
			s.applyStyle("metadata")
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(colWidth, s.lineHeight, s.tr(fmt.Sprintf("%s: --%s--", f[0], value)), "", 0, "C", false, 0, "")
			x += colWidth + metadataSpacerCol
		}
		s.currentY += s.lineHeight
	}
}

func formatWithUnit(v *float64, unit string) string {
	if v == nil {
		return noLimit
	}
	text := strconv.FormatFloat(*v, 'f', 2, 64)
	if unit != "" {
		text += " " + unit
	}
	return text
}

// buildTestTable draws the acceptance table. Bounds that differ from the
// factory values are marked and listed below the table.
func buildTestTable(s *pdfStyler, in Input) {
	headers := []string{"Test", "Pass/Fail", "Spec Min", "Spec Max", "Measured"}
	colWidthsRel := []float64{0.36, 0.14, 0.16, 0.16, 0.18}
	widths := make([]float64, len(colWidthsRel))
	for i, rel := range colWidthsRel {
		widths[i] = rel * pdfContentWidth
	}

	s.writeParagraph("Test Results", "h2", "L")
	s.tableHeader(headers, widths)

	var overrides []string
	for _, row := range in.Session.TestRows {
		s.checkAddPage(s.lineHeight)
		if row.Section {
			s.cell(pdfMargin, pdfContentWidth, row.Description, "tableSection", "C", true)
			s.currentY += s.lineHeight
			continue
		}

		minText, maxText := formatWithUnit(row.SpecMin, row.Unit), formatWithUnit(row.SpecMax, row.Unit)
		minStyle, maxStyle := "tableCell", "tableCell"
		if row.MinOverridden() {
			minText, minStyle = minText+overrideMark, "tableCellOverride"
			overrides = append(overrides, overrideNote(row, "min", row.FactoryMin))
		}
		if row.MaxOverridden() {
			maxText, maxStyle = maxText+overrideMark, "tableCellOverride"
			overrides = append(overrides, overrideNote(row, "max", row.FactoryMax))
		}
		verdictStyle := "tableCell"
		if row.PassFail == model.Fail {
			verdictStyle = "tableCellFail"
		}

		x := pdfMargin
		cells := []struct {
			text, style, align string
		}{
			{row.Description, "tableCell", "L"},
			{row.PassFail.String(), verdictStyle, "C"},
			{minText, minStyle, "C"},
			{maxText, maxStyle, "C"},
			{formatWithUnit(row.Measured, row.Unit), "tableCell", "C"},
		}
		for i, c := range cells {
			s.cell(x, widths[i], c.text, c.style, c.align, false)
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}

	if len(overrides) > 0 {
		s.addSpacer(1)
		s.writeParagraph(overrideMark+" Spec limit overridden from the factory default:\n"+strings.Join(overrides, "\n"), "small", "L")
	}
}

func overrideNote(row model.TestRow, bound string, factory *float64) string {
	return fmt.Sprintf("%s %s: factory %s", row.Description, bound, formatWithUnit(factory, row.Unit))
}

// buildTimeSeriesTable draws every slot of the time window as a two-row
// horizontal table; unmeasured slots show the no-limit symbol.
func buildTimeSeriesTable(s *pdfStyler, in Input) {
	s.writeParagraph(fmt.Sprintf("%s Measurements", in.Device.Reading.Label), "h2", "L")

	slots := in.Session.Slots()
	labelWidth := 0.22 * pdfContentWidth
	colWidth := (pdfContentWidth - labelWidth) / float64(max(len(slots), 1))
	readingLabel := in.Device.Reading.Label
	if in.Device.Reading.Unit != "" {
		readingLabel = fmt.Sprintf("%s (%s)", readingLabel, in.Device.Reading.Unit)
	}

	s.checkAddPage(2 * s.lineHeight)
	x := pdfMargin
	s.cell(x, labelWidth, in.Device.Index.Label, "tableHeader", "L", true)
	x += labelWidth
	for _, slot := range slots {
		s.cell(x, colWidth, strconv.Itoa(slot.Index), "tableHeader", "C", true)
		x += colWidth
	}
	s.currentY += s.lineHeight

	x = pdfMargin
	s.cell(x, labelWidth, readingLabel, "tableHeader", "L", true)
	x += labelWidth
	for _, slot := range slots {
		text := noLimit
		if slot.Value != nil {
			text = strconv.FormatFloat(*slot.Value, 'f', 2, 64)
		}
		s.cell(x, colWidth, text, "tableCell", "C", false)
		x += colWidth
	}
	s.currentY += s.lineHeight
	s.addSpacer(2)

	ambient := "not recorded"
	if in.Session.Ambient != nil {
		ambient = formatWithUnit(in.Session.Ambient, in.Device.Ambient.Unit)
	}
	s.writeParagraph(fmt.Sprintf("%s: %s", in.Device.Ambient.Label, ambient), "normal", "L")
}

func buildSummary(s *pdfStyler, in Input, summary analysis.SeriesSummary) {
	s.writeParagraph("Summary", "h2", "L")
	if summary.Count == 0 {
		s.writeParagraph("No measurements recorded.", "normal", "L")
		return
	}
	unit := in.Device.Reading.Unit
	lines := []string{
		fmt.Sprintf("Points: %d of %d", summary.Count, in.Session.IndexMax-in.Session.IndexMin+1),
		fmt.Sprintf("Mean: %.2f %s   Std dev: %.2f %s", summary.Mean, unit, summary.StdDev, unit),
		fmt.Sprintf("Min: %.2f %s   Max: %.2f %s", summary.Min, unit, summary.Max, unit),
	}
	for _, c := range summary.Crossing {
		reached := "not reached"
		if c.Reached {
			reached = fmt.Sprintf("%d min", c.Index)
		}
		lines = append(lines, fmt.Sprintf("Time to reach %s %s: %s", strconv.FormatFloat(c.Threshold, 'f', -1, 64), unit, reached))
	}
	s.writeParagraph(strings.Join(lines, "\n"), "normal", "L")
}
