package vectors

import (
	"errors"
	"math"
	"testing"

	"github.com/optiprofile/ranker/pkg/types"
)

func TestCosineIdentities(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"self", []float32{0.3, -1.2, 4.5}, []float32{0.3, -1.2, 4.5}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 2, 3}, []float32{-1, -2, -3}, -1},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Cosine failed: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("Cosine error = %v, want ErrDimensionMismatch", err)
	}
}

func TestTopK(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0, 1},  // similarity 0
		{1, 0},  // similarity 1
		{1, 1},  // similarity ~0.707
		{-1, 0}, // similarity -1
	}

	matches, err := TopK(query, candidates, 2)
	if err != nil {
		t.Fatalf("TopK failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("TopK returned %d matches, want 2", len(matches))
	}
	if matches[0].Index != 1 {
		t.Errorf("top match index = %d, want 1", matches[0].Index)
	}
	if matches[1].Index != 2 {
		t.Errorf("second match index = %d, want 2", matches[1].Index)
	}
}

func TestTopKTiesByIndex(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{2, 0}, // similarity 1
		{1, 0}, // similarity 1
		{3, 0}, // similarity 1
	}

	matches, err := TopK(query, candidates, 3)
	if err != nil {
		t.Fatalf("TopK failed: %v", err)
	}
	for i, m := range matches {
		if m.Index != i {
			t.Errorf("match %d has index %d, want ties broken by ascending index", i, m.Index)
		}
	}
}

func TestTopKDimensionMismatch(t *testing.T) {
	_, err := TopK([]float32{1, 0}, [][]float32{{1, 0, 0}}, 1)
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("TopK error = %v, want ErrDimensionMismatch", err)
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3,4]) = %v, want [0.6, 0.8]", v)
	}

	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("Normalize(zero) = %v, want unchanged zero vector", zero)
	}
}

func TestAverage(t *testing.T) {
	avg, err := Average([][]float32{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}
	if avg[0] != 2 || avg[1] != 3 {
		t.Errorf("Average = %v, want [2, 3]", avg)
	}

	_, err = Average([][]float32{{1, 2}, {1, 2, 3}})
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("Average error = %v, want ErrDimensionMismatch", err)
	}
}
