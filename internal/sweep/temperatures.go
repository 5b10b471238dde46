package sweep

import (
	"fmt"
	"math"

	"llmsweep/pkg/sweeptypes"
)

const (
	// temperatureEpsilon absorbs float drift at the inclusive upper bound.
	temperatureEpsilon = 1e-5
	// temperatureScale rounds temperatures to 4 decimal digits.
	temperatureScale = 1e4
	// minTemperatureStep is the smallest step still distinct after rounding.
	minTemperatureStep = 1 / temperatureScale
	// maxTemperaturePoints bounds a sweep so a typo cannot schedule millions of calls.
	maxTemperaturePoints = 10000
)

// RoundTemperature rounds t to 4 decimal digits.
func RoundTemperature(t float64) float64 {
	return math.Round(t*temperatureScale) / temperatureScale
}

// Temperatures resolves the ordered temperature list of an experiment.
// A range wins over a single value; with neither, the sweep runs once at 0.
func Temperatures(cfg sweeptypes.ExperimentConfig) ([]float64, error) {
	if cfg.TemperatureRange != nil {
		return TemperatureSequence(*cfg.TemperatureRange)
	}
	if cfg.Temperature != nil {
		return []float64{RoundTemperature(*cfg.Temperature)}, nil
	}
	return []float64{0}, nil
}

// TemperatureSequence steps from Start to End inclusive. Points are computed as
// Start + i*Step, so error does not accumulate across steps.
func TemperatureSequence(r sweeptypes.TemperatureRange) ([]float64, error) {
	if math.IsNaN(r.Start) || math.IsNaN(r.End) || math.IsNaN(r.Step) {
		return nil, &sweeptypes.ConfigError{Field: "temperature_range", Reason: "must not contain NaN"}
	}
	if math.IsInf(r.Start, 0) || math.IsInf(r.End, 0) || math.IsInf(r.Step, 0) {
		return nil, &sweeptypes.ConfigError{Field: "temperature_range", Reason: "must be finite"}
	}
	if r.Step < minTemperatureStep {
		return nil, &sweeptypes.ConfigError{
			Field:  "temperature_range.step",
			Reason: fmt.Sprintf("must be at least %g", minTemperatureStep),
		}
	}
	if r.End < r.Start {
		return nil, &sweeptypes.ConfigError{Field: "temperature_range", Reason: "end must not be less than start"}
	}

	points := math.Floor((r.End-r.Start+temperatureEpsilon)/r.Step) + 1
	if math.IsNaN(points) || points > maxTemperaturePoints {
		return nil, &sweeptypes.ConfigError{
			Field:  "temperature_range",
			Reason: fmt.Sprintf("yields %.0f temperatures (max %d)", points, maxTemperaturePoints),
		}
	}

	n := int(points)
	temps := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		t := RoundTemperature(r.Start + float64(i)*r.Step)
		if i > 0 && t <= temps[i-1] {
			return nil, &sweeptypes.ConfigError{
				Field:  "temperature_range",
				Reason: fmt.Sprintf("step %g is too small to advance from %g", r.Step, temps[i-1]),
			}
		}
		temps = append(temps, t)
	}
	return temps, nil
}
