package report

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/user/testpad_go/internal/analysis"
)

// ChartData is everything needed to draw the time-series chart.
type ChartData struct {
	Title      string
	XLabel     string
	YLabel     string
	XMin       int
	XMax       int
	Points     []analysis.Point
	Thresholds []float64
	Unit       string
}

// ChartRenderer turns chart data into a PNG image.
type ChartRenderer interface {
	RenderChart(ctx context.Context, data ChartData) ([]byte, error)
}

// ChartDataFor derives the chart of the readings in in.
func ChartDataFor(in Input) ChartData {
	title := fmt.Sprintf("%s over %s", in.Device.Reading.Label, in.Device.Index.Label)
	if a := in.Session.Ambient; a != nil {
		title = fmt.Sprintf("%s (%s %s %s)", title, in.Device.Ambient.Label, strconv.FormatFloat(*a, 'f', -1, 64), in.Device.Ambient.Unit)
	}
	yLabel := in.Device.Reading.Label
	if in.Device.Reading.Unit != "" {
		yLabel = fmt.Sprintf("%s (%s)", yLabel, in.Device.Reading.Unit)
	}
	return ChartData{
		Title:      title,
		XLabel:     in.Device.Index.Label,
		YLabel:     yLabel,
		XMin:       in.Device.Index.Min,
		XMax:       in.Device.Index.Max,
		Points:     in.Points(),
		Thresholds: in.Device.Thresholds,
		Unit:       in.Device.Reading.Unit,
	}
}

// GonumChart renders charts with gonum/plot. Zero sizes fall back to
// 800 x 400 points.
type GonumChart struct {
	Width  vg.Length
	Height vg.Length
}

// RenderChart implements ChartRenderer.
func (g GonumChart) RenderChart(ctx context.Context, data ChartData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := g.Width, g.Height
	if w == 0 || h == 0 {
		w, h = vg.Points(800), vg.Points(400)
	}
	return RenderTimeSeriesChart(data, w, h)
}

var thresholdColors = []color.Color{
	color.RGBA{R: 255, G: 165, A: 255}, // Orange
	color.RGBA{R: 255, A: 255},         // Red
	color.RGBA{R: 128, B: 128, A: 255}, // Purple
}

// RenderTimeSeriesChart draws the readings as a line with markers plus one
// dashed line per threshold, and returns the PNG bytes.
func RenderTimeSeriesChart(data ChartData, width, height vg.Length) ([]byte, error) {
	if len(data.Points) == 0 {
		return nil, fmt.Errorf("no readings to plot")
	}
	if data.XMax <= data.XMin {
		return nil, fmt.Errorf("invalid time window %d..%d", data.XMin, data.XMax)
	}

	p := plot.New()
	p.Title.Text = data.Title
	p.X.Label.Text = data.XLabel
	p.Y.Label.Text = data.YLabel
	p.X.Min = float64(data.XMin)
	p.X.Max = float64(data.XMax)
	p.X.Tick.Marker = plot.ConstantTicks(generateTicks(data.XMin, data.XMax, tickStep(data.XMax-data.XMin)))
	p.Add(plotter.NewGrid())

	yMin, yMax := 0.0, 0.0
	pts := make(plotter.XYs, 0, len(data.Points))
	for _, pt := range data.Points {
		if math.IsNaN(pt.Value) || math.IsInf(pt.Value, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(pt.Index), Y: pt.Value})
		yMin = math.Min(yMin, pt.Value)
		yMax = math.Max(yMax, pt.Value)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("no finite readings to plot")
	}

	for i, threshold := range data.Thresholds {
		tol, err := plotter.NewLine(plotter.XYs{{X: p.X.Min, Y: threshold}, {X: p.X.Max, Y: threshold}})
		if err != nil {
			return nil, fmt.Errorf("failed to create threshold line: %v", err)
		}
		tol.Color = thresholdColors[i%len(thresholdColors)]
		tol.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(tol)
		p.Legend.Add(fmt.Sprintf("%s %s", strconv.FormatFloat(threshold, 'f', -1, 64), data.Unit), tol)
		yMax = math.Max(yMax, threshold)
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create series line: %v", err)
	}
	line.Color = color.RGBA{B: 255, A: 255}
	line.LineStyle.Width = vg.Points(1.5)
	points.Color = color.RGBA{B: 255, A: 255}
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(3)
	p.Add(line, points)
	p.Legend.Add(data.YLabel, line, points)

	pad := (yMax - yMin) * 0.1
	p.Y.Min = yMin - pad
	if yMin == 0 {
		p.Y.Min = 0
	}
	p.Y.Max = yMax + pad
	if p.Y.Max <= p.Y.Min {
		p.Y.Max = p.Y.Min + 1
	}
	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-10)

	writer, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %v", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %v", err)
	}
	return buf.Bytes(), nil
}

// tickStep keeps the x axis to about a dozen labels.
func tickStep(span int) int {
	step := 1
	for span/step > 12 {
		step++
	}
	return step
}

// generateTicks returns labelled ticks from min to max every step, always
// ending on max.
func generateTicks(min, max, step int) []plot.Tick {
	var ticks []plot.Tick
	for i := min; i <= max; i += step {
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: fmt.Sprintf("%d", i)})
	}
	if ticks[len(ticks)-1].Value < float64(max) {
		ticks = append(ticks, plot.Tick{Value: float64(max), Label: fmt.Sprintf("%d", max)})
	}
	return ticks
}
