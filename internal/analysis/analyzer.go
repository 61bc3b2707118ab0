package analysis

import (
	"math"
	"sort"
)

// Helper to calculate mean
func calculateMean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Population standard deviation; a single point has zero spread.
func calculateStdDev(data []float64, mean float64) float64 {
	if len(data) == 0 || math.IsNaN(mean) {
		return math.NaN()
	}
	if len(data) == 1 {
		return 0.0
	}
	sumSqDiff := 0.0
	for _, v := range data {
		sumSqDiff += (v - mean) * (v - mean)
	}
	return math.Sqrt(sumSqDiff / float64(len(data)))
}

func calculateMinMax(data []float64) (float64, float64) {
	if len(data) == 0 {
		return math.NaN(), math.NaN()
	}
	minVal, maxVal := data[0], data[0]
	for _, v := range data[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

// AnalyzeSeries summarizes points and finds, for each threshold, the first
// index at which the reading is at or below it. The input is not modified.
func AnalyzeSeries(points []Point, thresholds []float64) SeriesSummary {
	summary := NewSeriesSummary()
	sorted := append([]Point(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	values := make([]float64, 0, len(sorted))
	for _, p := range sorted {
		if !math.IsNaN(p.Value) {
			values = append(values, p.Value)
		}
	}
	summary.Count = len(values)
	if summary.Count > 0 {
		summary.Mean = calculateMean(values)
		summary.StdDev = calculateStdDev(values, summary.Mean)
		summary.Min, summary.Max = calculateMinMax(values)
		summary.Range = summary.Max - summary.Min
		first, last := sorted[0], sorted[len(sorted)-1]
		summary.First, summary.Last = &first, &last
	}

	for _, th := range thresholds {
		crossing := ThresholdCrossing{Threshold: th}
		for _, p := range sorted {
			if p.Value <= th {
				crossing.Reached = true
				crossing.Index = p.Index
				break
			}
		}
		summary.Crossing = append(summary.Crossing, crossing)
	}
	return summary
}
