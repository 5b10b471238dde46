package sweep

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmsweep/pkg/sweeptypes"
)

func TestTemperatureSequence(t *testing.T) {
	tests := []struct {
		name     string
		r        sweeptypes.TemperatureRange
		expected []float64
	}{
		{
			name:     "single point",
			r:        sweeptypes.TemperatureRange{Start: 0.7, End: 0.7, Step: 0.1},
			expected: []float64{0.7},
		},
		{
			name:     "inclusive end despite float drift",
			r:        sweeptypes.TemperatureRange{Start: 0, End: 0.3, Step: 0.1},
			expected: []float64{0, 0.1, 0.2, 0.3},
		},
		{
			name:     "step overshoots end",
			r:        sweeptypes.TemperatureRange{Start: 0, End: 1, Step: 0.3},
			expected: []float64{0, 0.3, 0.6, 0.9},
		},
		{
			name:     "rounded to four decimals",
			r:        sweeptypes.TemperatureRange{Start: 0.1, End: 0.4, Step: 0.15},
			expected: []float64{0.1, 0.25, 0.4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temps, err := TemperatureSequence(tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, temps)
		})
	}
}

func TestTemperatureSequence_FullRange(t *testing.T) {
	temps, err := TemperatureSequence(sweeptypes.TemperatureRange{Start: 0, End: 2, Step: 0.1})
	require.NoError(t, err)

	require.Len(t, temps, 21)
	assert.Equal(t, 0.0, temps[0])
	assert.Equal(t, 1.5, temps[15])
	assert.Equal(t, 2.0, temps[20])
}

func TestTemperatureSequence_Properties(t *testing.T) {
	ranges := []sweeptypes.TemperatureRange{
		{Start: 0, End: 2, Step: 0.1},
		{Start: 0, End: 1, Step: 0.25},
		{Start: 0.2, End: 1.3, Step: 0.07},
		{Start: 0.5, End: 0.5, Step: 1},
		{Start: 0, End: 1, Step: 0.001},
		{Start: 1, End: 1.9, Step: 0.3},
	}

	for _, r := range ranges {
		temps, err := TemperatureSequence(r)
		require.NoError(t, err)

		expected := int(math.Floor((r.End-r.Start+temperatureEpsilon)/r.Step)) + 1
		assert.Len(t, temps, expected, "range %+v", r)
		assert.Equal(t, RoundTemperature(r.Start), temps[0])
		for i := 1; i < len(temps); i++ {
			assert.Greater(t, temps[i], temps[i-1], "range %+v not strictly increasing at %d", r, i)
		}
		assert.LessOrEqual(t, temps[len(temps)-1], r.End+temperatureEpsilon)
	}
}

func TestTemperatureSequence_Invalid(t *testing.T) {
	tests := []struct {
		name string
		r    sweeptypes.TemperatureRange
	}{
		{name: "zero step", r: sweeptypes.TemperatureRange{Start: 0, End: 1, Step: 0}},
		{name: "negative step", r: sweeptypes.TemperatureRange{Start: 0, End: 1, Step: -0.1}},
		{name: "step below resolution", r: sweeptypes.TemperatureRange{Start: 0, End: 1, Step: 0.00001}},
		{name: "end before start", r: sweeptypes.TemperatureRange{Start: 1, End: 0, Step: 0.1}},
		{name: "nan bound", r: sweeptypes.TemperatureRange{Start: math.NaN(), End: 1, Step: 0.1}},
		{name: "too many points", r: sweeptypes.TemperatureRange{Start: 0, End: 100, Step: 0.001}},
		{name: "infinite bounds", r: sweeptypes.TemperatureRange{Start: math.Inf(1), End: math.Inf(1), Step: 0.1}},
		{name: "infinite end", r: sweeptypes.TemperatureRange{Start: 0, End: math.Inf(1), Step: 0.1}},
		{name: "infinite step", r: sweeptypes.TemperatureRange{Start: 0, End: 1, Step: math.Inf(1)}},
		{name: "step lost at magnitude", r: sweeptypes.TemperatureRange{Start: 1e17, End: 1e17 + 64, Step: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TemperatureSequence(tt.r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, sweeptypes.ErrConfiguration))
		})
	}
}

func TestTemperatures(t *testing.T) {
	single := 0.73
	tests := []struct {
		name     string
		cfg      sweeptypes.ExperimentConfig
		expected []float64
	}{
		{
			name:     "no temperature defaults to zero",
			cfg:      sweeptypes.ExperimentConfig{},
			expected: []float64{0},
		},
		{
			name:     "single temperature",
			cfg:      sweeptypes.ExperimentConfig{Temperature: &single},
			expected: []float64{0.73},
		},
		{
			name: "range wins over single temperature",
			cfg: sweeptypes.ExperimentConfig{
				Temperature:      &single,
				TemperatureRange: &sweeptypes.TemperatureRange{Start: 0, End: 0.2, Step: 0.1},
			},
			expected: []float64{0, 0.1, 0.2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temps, err := Temperatures(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, temps)
		})
	}
}
