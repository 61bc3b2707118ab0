// Package validation holds the pure checks applied to every measured quantity
// before it reaches the measurement model.
package validation

import (
	"math"
	"strconv"
	"strings"
)

// IndexBounds is the inclusive window of valid time indices.
type IndexBounds struct {
	Min int
	Max int
}

// ReadingRule describes the physical constraints of a reading.
type ReadingRule struct {
	Quantity     string
	PositiveOnly bool     // zero and negative values are rejected
	Max          *float64 // optional plausibility ceiling
}

// ValidateTimeIndex checks i against the window.
func ValidateTimeIndex(i int, b IndexBounds) error {
	if i < b.Min || i > b.Max {
		return &RangeError{Field: "minute", Value: i, Min: b.Min, Max: b.Max}
	}
	return nil
}

// TimeIndexFromFloat accepts integral floats such as 3.0 and rejects 2.5.
func TimeIndexFromFloat(f float64, b IndexBounds) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, &TypeError{Field: "minute", Raw: strconv.FormatFloat(f, 'g', -1, 64), Want: "an integer"}
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, &RangeError{Field: "minute", Value: clampInt(f), Min: b.Min, Max: b.Max}
	}
	i := int(f)
	if err := ValidateTimeIndex(i, b); err != nil {
		return 0, err
	}
	return i, nil
}

func clampInt(f float64) int {
	if f < 0 {
		return math.MinInt32
	}
	return math.MaxInt32
}

// ParseTimeIndex converts raw UI or file text to a validated index.
func ParseTimeIndex(raw string, b IndexBounds) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ValueError{Field: "minute", Reason: "is required"}
	}
	if i, err := strconv.Atoi(s); err == nil {
		if err := ValidateTimeIndex(i, b); err != nil {
			return 0, err
		}
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &TypeError{Field: "minute", Raw: s, Want: "an integer"}
	}
	return TimeIndexFromFloat(f, b)
}

// ValidateReading enforces finiteness and the quantity's physical rule.
func ValidateReading(v float64, rule ReadingRule) (float64, error) {
	name := rule.Quantity
	if name == "" {
		name = "reading"
	}
	raw := strconv.FormatFloat(v, 'g', -1, 64)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValueError{Field: name, Raw: raw, Reason: "must be a finite number"}
	}
	if rule.PositiveOnly && v <= 0 {
		return 0, &ValueError{Field: name, Raw: raw, Reason: "must be > 0"}
	}
	if rule.Max != nil && v > *rule.Max {
		return 0, &ValueError{Field: name, Raw: raw, Reason: "must be <= " + strconv.FormatFloat(*rule.Max, 'g', -1, 64)}
	}
	return v, nil
}

// ParseReading coerces numeric-like text to a validated reading.
func ParseReading(raw string, rule ReadingRule) (float64, error) {
	name := rule.Quantity
	if name == "" {
		name = "reading"
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ValueError{Field: name, Reason: "is required"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValueError{Field: name, Raw: s, Reason: "must be numeric"}
	}
	return ValidateReading(v, rule)
}

// ValidateAmbient accepts nil (not recorded) or a finite value and returns a
// private copy.
func ValidateAmbient(v *float64) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil, &ValueError{Field: "temperature", Raw: strconv.FormatFloat(*v, 'g', -1, 64), Reason: "must be a finite number"}
	}
	c := *v
	return &c, nil
}

// ParseAmbient treats blank text as "not recorded".
func ParseAmbient(raw string) (*float64, error) {
	return ParseOptionalFloat("temperature", raw)
}

// ParseOptionalFloat parses a nullable numeric cell; blank means absent.
func ParseOptionalFloat(field, raw string) (*float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &ValueError{Field: field, Raw: s, Reason: "must be numeric"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &ValueError{Field: field, Raw: s, Reason: "must be a finite number"}
	}
	return &v, nil
}

// ValidateSpecOverride checks candidate spec bounds against the factory
// envelope. An inverted range is a hard ValueError; bounds that widen the
// envelope (lower min, higher max, or a dropped limit) yield a
// *SpecOverrideWarning.
func ValidateSpecOverride(row string, factoryMin, factoryMax, min, max *float64) error {
	if min != nil && max != nil && *min > *max {
		return &ValueError{
			Field:  row + " spec",
			Raw:    FormatBound(min) + ".." + FormatBound(max),
			Reason: "minimum must not exceed maximum",
		}
	}
	var widened []string
	if factoryMin != nil && (min == nil || *min < *factoryMin) {
		widened = append(widened, "min")
	}
	if factoryMax != nil && (max == nil || *max > *factoryMax) {
		widened = append(widened, "max")
	}
	if len(widened) == 0 {
		return nil
	}
	return &SpecOverrideWarning{
		Row:        row,
		Bounds:     widened,
		FactoryMin: factoryMin,
		FactoryMax: factoryMax,
		Min:        min,
		Max:        max,
	}
}
