package telemetry

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name           string
		values         []float64
		mean, std, p50 float64
	}{
		{"empty", nil, 0, 0, 0},
		{"single", []float64{5}, 5, 0, 5},
		{"odd", []float64{5, 1, 3, 2, 4}, 3, math.Sqrt2, 3},
		{"constant", []float64{7, 7, 7, 7}, 7, 0, 7},
		{"even takes lower middle", []float64{4, 1, 3, 2}, 2.5, math.Sqrt(1.25), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std, p50 := Summarize(tt.values)
			if math.Abs(mean-tt.mean) > 1e-9 || math.Abs(std-tt.std) > 1e-9 || p50 != tt.p50 {
				t.Errorf("Summarize(%v) = (%v, %v, %v), want (%v, %v, %v)",
					tt.values, mean, std, p50, tt.mean, tt.std, tt.p50)
			}
		})
	}
}

func TestSummarizeLeavesInputUnsorted(t *testing.T) {
	values := []float64{3, 1, 2}
	Summarize(values)
	if values[0] != 3 || values[1] != 1 {
		t.Errorf("input reordered to %v", values)
	}
}
