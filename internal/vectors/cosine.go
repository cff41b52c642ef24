// Package vectors provides the small amount of dense-vector math the
// ranker needs: cosine similarity, top-k lookup, normalization and
// averaging. All operations treat a dimension mismatch as a hard error,
// never as silent truncation.
package vectors

import (
	"fmt"
	"math"
	"sort"

	"github.com/optiprofile/ranker/pkg/types"
)

// Match pairs a similarity score with the original index of the matched
// vector.
type Match struct {
	Index int
	Score float64
}

// Cosine computes the cosine similarity between a and b, in [-1, 1].
// Zero vectors yield 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", types.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// TopK returns the k highest-similarity entries from vectors against the
// query, ties broken by original index ascending. Fails if any candidate
// has a different dimensionality than the query.
func TopK(query []float32, vectors [][]float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(vectors))
	for i, v := range vectors {
		score, err := Cosine(query, v)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		matches = append(matches, Match{Index: i, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Index < matches[j].Index
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Normalize returns a unit-length copy of v. Zero vectors are returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	copy(out, v)

	norm := math.Sqrt(sum)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}

// Average computes the element-wise mean of the given vectors. All
// vectors must share the same dimensionality.
func Average(vecs [][]float32) ([]float32, error) {
	if len(vecs) == 0 {
		return nil, nil
	}

	dim := len(vecs[0])
	sums := make([]float64, dim)
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d: %w: %d vs %d", i, types.ErrDimensionMismatch, len(v), dim)
		}
		for j, x := range v {
			sums[j] += float64(x)
		}
	}

	out := make([]float32, dim)
	for j, s := range sums {
		out[j] = float32(s / float64(len(vecs)))
	}
	return out, nil
}
