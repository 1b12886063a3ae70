package eval

import (
	"math"
	"testing"
)

func TestComputeAvailability(t *testing.T) {
	tests := []struct {
		name             string
		ok               float64
		total            float64
		minSamples       int
		expected         float64
		insufficientData bool
	}{
		{
			name:     "perfect availability",
			ok:       100,
			total:    100,
			expected: 1.0,
		},
		{
			name:     "99.9% availability",
			ok:       999,
			total:    1000,
			expected: 0.999,
		},
		{
			name:     "all errors",
			ok:       0,
			total:    100,
			expected: 0.0,
		},
		{
			name:             "zero traffic",
			ok:               0,
			total:            0,
			insufficientData: true,
		},
		{
			name:             "below minimum sample count",
			ok:               9,
			total:            9,
			minSamples:       30,
			insufficientData: true,
		},
		{
			name:       "exactly minimum sample count",
			ok:         30,
			total:      30,
			minSamples: 30,
			expected:   1.0,
		},
		{
			name:     "fractional decayed counters",
			ok:       99.9,
			total:    111.0,
			expected: 0.9,
		},
		{
			name:     "ok clamped to total",
			ok:       110,
			total:    100,
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeAvailability(tt.ok, tt.total, tt.minSamples)

			if result.InsufficientData != tt.insufficientData {
				t.Errorf("expected InsufficientData=%v, got %v",
					tt.insufficientData, result.InsufficientData)
			}

			if !tt.insufficientData && math.Abs(result.Value-tt.expected) > 0.0001 {
				t.Errorf("expected availability=%.4f, got %.4f", tt.expected, result.Value)
			}
		})
	}
}

func TestApplyFreshnessPenalty(t *testing.T) {
	tests := []struct {
		name          string
		availability  float64
		freshnessMiss float64
		total         float64
		expected      float64
	}{
		{"no misses", 0.999, 0, 1000, 0.999},
		{"10% stale", 1.0, 100, 1000, 0.9},
		{"penalty floors at zero", 0.05, 900, 1000, 0.0},
		{"zero traffic passes through", 0.5, 10, 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFreshnessPenalty(tt.availability, tt.freshnessMiss, tt.total)
			if math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("expected %.4f, got %.4f", tt.expected, got)
			}
		})
	}
}

func TestComputeBurnRate(t *testing.T) {
	tests := []struct {
		name         string
		availability float64
		errorBudget  float64
		expected     float64
	}{
		{
			name:         "no errors",
			availability: 1.0,
			errorBudget:  0.001,
			expected:     0.0,
		},
		{
			name:         "1x burn rate",
			availability: 0.999,
			errorBudget:  0.001,
			expected:     1.0,
		},
		{
			name:         "14.4x burn rate",
			availability: 0.9856,
			errorBudget:  0.001,
			expected:     14.4,
		},
		{
			name:         "full outage on 99.9% target",
			availability: 0.0,
			errorBudget:  0.001,
			expected:     1000.0,
		},
		{
			name:         "zero budget never burns",
			availability: 0.5,
			errorBudget:  0.0,
			expected:     0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBurnRate(tt.availability, tt.errorBudget)
			if math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("expected burn rate=%.4f, got %.4f", tt.expected, got)
			}
		})
	}
}

// Burn rate must fall as availability rises, holding the budget fixed.
func TestComputeBurnRate_Monotonic(t *testing.T) {
	budget := 0.001
	prev := math.Inf(1)
	for avail := 0.0; avail <= 1.0; avail += 0.05 {
		burn := ComputeBurnRate(avail, budget)
		if burn > prev {
			t.Fatalf("burn rate increased from %.4f to %.4f at availability %.2f",
				prev, burn, avail)
		}
		prev = burn
	}
}
