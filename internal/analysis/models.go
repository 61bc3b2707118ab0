package analysis

import "math"

// Point is one (minute, reading) sample.
type Point struct {
	Index int
	Value float64
}

// ThresholdCrossing records the first index at which the series fell to or
// below a threshold. Reached is false when it never did.
type ThresholdCrossing struct {
	Threshold float64
	Reached   bool
	Index     int
}

// SeriesSummary holds the statistics of one time series. Statistics are NaN
// when the series is empty.
type SeriesSummary struct {
	Count    int
	Mean     float64
	StdDev   float64
	Min      float64
	Max      float64
	Range    float64
	First    *Point
	Last     *Point
	Crossing []ThresholdCrossing
}

// NewSeriesSummary returns an empty summary.
func NewSeriesSummary() SeriesSummary {
	return SeriesSummary{
		Mean:   math.NaN(),
		StdDev: math.NaN(),
		Min:    math.NaN(),
		Max:    math.NaN(),
		Range:  math.NaN(),
	}
}
