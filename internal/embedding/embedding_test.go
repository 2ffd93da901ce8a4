package embedding

import (
	"math"
	"testing"
)

func TestVectorizeEmptyInputIsZeroVector(t *testing.T) {
	vec := Vectorize("")
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("dim %d = %v, want 0", i, v)
		}
	}
	if len(vec) != Dim {
		t.Fatalf("len = %d, want %d", len(vec), Dim)
	}
}

func TestVectorizeIsDeterministic(t *testing.T) {
	text := "the repo uses postgresql and django with oauth2"
	a := Vectorize(text)
	b := Vectorize(text)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("dim %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestVectorizeIsUnitNorm(t *testing.T) {
	vec := Vectorize("kubernetes deployment using docker and terraform")
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	norm := math.Sqrt(sumSquares)
	if math.Abs(norm-1.0) > 1e-9 {
		t.Fatalf("norm = %v, want ~1.0", norm)
	}
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	vec := Vectorize("uses postgresql database")
	sim := CosineSimilarity(vec, vec)
	if math.Abs(sim-1.0) > 1e-9 {
		t.Fatalf("self-similarity = %v, want ~1.0", sim)
	}
}

func TestCosineSimilarityIsClampedToUnitInterval(t *testing.T) {
	sim := CosineSimilarity([]float64{1, 0}, []float64{-1, 0})
	if sim < 0 || sim > 1 {
		t.Fatalf("sim = %v, want within [0,1]", sim)
	}
}

func TestTopKReturnsMostSimilarFirst(t *testing.T) {
	query := Vectorize("uses postgresql database")
	candidates := []Candidate{
		{ID: 1, Embedding: Vectorize("the repo uses mysql database")},
		{ID: 2, Embedding: Vectorize("uses postgresql database")},
		{ID: 3, Embedding: Vectorize("kubernetes deployment platform")},
	}

	top := TopK(query, candidates, 2)
	if len(top) != 2 {
		t.Fatalf("got %d results, want 2", len(top))
	}
	if top[0].ID != 2 {
		t.Fatalf("top match id = %d, want 2", top[0].ID)
	}
	if top[0].Score < top[1].Score {
		t.Fatalf("results not sorted descending: %v", top)
	}
}

func TestTopKZeroOrNegativeKReturnsEmpty(t *testing.T) {
	query := Vectorize("anything")
	candidates := []Candidate{{ID: 1, Embedding: Vectorize("anything")}}
	if got := TopK(query, candidates, 0); got != nil {
		t.Fatalf("TopK with k=0 = %v, want nil", got)
	}
	if got := TopK(query, candidates, -1); got != nil {
		t.Fatalf("TopK with k=-1 = %v, want nil", got)
	}
}
