package retrieval

import (
	"math"
	"testing"
)

func TestCosineSimilarity_Self(t *testing.T) {
	v := []float64{1, 2, 3}
	if got := CosineSimilarity(v, v); math.Abs(got-1) > 1e-12 {
		t.Errorf("similarity(v, v)=%f, want 1", got)
	}
}

func TestCosineSimilarity_Negation(t *testing.T) {
	v := []float64{0.5, -1.5, 2}
	neg := []float64{-0.5, 1.5, -2}
	if got := CosineSimilarity(v, neg); math.Abs(got+1) > 1e-12 {
		t.Errorf("similarity(v, -v)=%f, want -1", got)
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float64{1, 0, 2}
	b := []float64{3, 1, 0.5}
	if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
		t.Error("similarity should be symmetric")
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	a := []float64{0, 0, 0}
	b := []float64{1, 2, 3}
	if got := CosineSimilarity(a, b); got != 0 {
		t.Errorf("zero vector similarity=%f, want 0", got)
	}
	if got := CosineSimilarity(a, a); got != 0 {
		t.Errorf("zero/zero similarity=%f, want 0", got)
	}
}

func TestCosineSimilarity_LengthMismatch(t *testing.T) {
	if got := CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}); got != 0 {
		t.Errorf("mismatched lengths should score 0, got %f", got)
	}
	if got := CosineSimilarity(nil, nil); got != 0 {
		t.Errorf("empty vectors should score 0, got %f", got)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	if got := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-12 {
		t.Errorf("orthogonal similarity=%f, want 0", got)
	}
}
