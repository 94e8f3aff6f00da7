package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toxbot/toxbot/internal/bot/constants"
)

func TestThresholdMet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		toxicity  float64
		threshold int
		expected  bool
	}{
		{name: "well above threshold", toxicity: 0.75, threshold: 50, expected: true},
		{name: "exactly at threshold", toxicity: 0.50, threshold: 50, expected: true},
		{name: "just below threshold", toxicity: 0.499, threshold: 50, expected: false},
		{name: "truncation keeps fraction below threshold", toxicity: 0.509, threshold: 51, expected: false},
		{name: "zero score zero threshold", toxicity: 0.0, threshold: 0, expected: true},
		{name: "max score", toxicity: 1.0, threshold: 100, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, ThresholdMet(tt.toxicity, tt.threshold))
		})
	}
}

func TestSeverityPercentRoundsWhereThresholdTruncates(t *testing.T) {
	t.Parallel()

	// 50.9% truncates to 50 for the threshold comparison but rounds to 51
	// for display
	assert.False(t, ThresholdMet(0.509, 51))
	assert.Equal(t, 51, SeverityPercent(0.509))
}

func TestSeverityColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		toxicity float64
		expected int
	}{
		{name: "zero is low", toxicity: 0.0, expected: constants.LowSeverityColor},
		{name: "thirty percent is low", toxicity: 0.30, expected: constants.LowSeverityColor},
		{name: "just above thirty is medium", toxicity: 0.31, expected: constants.MediumSeverityColor},
		{name: "sixty percent is medium", toxicity: 0.60, expected: constants.MediumSeverityColor},
		{name: "rounds down into medium band", toxicity: 0.604, expected: constants.MediumSeverityColor},
		{name: "just above sixty is high", toxicity: 0.61, expected: constants.HighSeverityColor},
		{name: "max is high", toxicity: 1.0, expected: constants.HighSeverityColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, SeverityColor(tt.toxicity))
		})
	}
}
