// Package embedding implements a deterministic, dependency-free embedding
// generator and similarity ranking over it. The vector has no relation to
// any trained model: it is a fixed sparse tf·idf-over-vocabulary plus
// positional-hash representation, chosen so two runs of the same algorithm
// on the same text always produce the identical vector without a network
// call or model weights.
package embedding

import (
	"hash/fnv"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/devhaven/memoryd/internal/types"
)

// Dim is the fixed length of every embedding vector.
const Dim = types.EmbeddingDim

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// idfCommon, idfVocab, idfOther are the three fixed idf weights a token can
// receive, keyed by whether it's a recognized common word, a vocabulary
// term, or neither.
const (
	idfCommon = 0.5
	idfVocab  = 2.0
	idfOther  = 1.0
)

// Vectorize produces a unit-norm, Dim-length embedding for text. Empty
// input returns the zero vector.
func Vectorize(text string) []float64 {
	vec := make([]float64, Dim)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec
	}

	tf := termFrequency(tokens)
	maxTF := 0
	for _, count := range tf {
		if count > maxTF {
			maxTF = count
		}
	}

	for term, count := range tf {
		idx, ok := vocabIndex[term]
		if !ok {
			continue
		}
		normalizedTF := float64(count) / float64(maxTF)
		vec[idx] = normalizedTF * idf(term)
	}

	hashDims := Dim - len(vocabulary)
	if hashDims > 0 {
		addPositionalHashFeatures(vec, tokens, len(vocabulary), hashDims)
	}

	return l2Normalize(vec)
}

func idf(term string) float64 {
	switch {
	case commonWords[term]:
		return idfCommon
	case isVocab(term):
		return idfVocab
	default:
		return idfOther
	}
}

func isVocab(term string) bool {
	_, ok := vocabIndex[term]
	return ok
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func termFrequency(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf
}

// addPositionalHashFeatures folds unigrams and bigrams into the remaining
// dimensions via fnv hashing.
func addPositionalHashFeatures(vec []float64, tokens []string, offset, hashDims int) {
	raw := make([]float64, hashDims)

	for i, tok := range tokens {
		bucket := int(fnvHash32(tok+"_"+strconv.Itoa(i%10))) % hashDims
		raw[bucket] += 1.0
	}
	for i := 0; i < len(tokens)-1; i++ {
		bigram := tokens[i] + "_" + tokens[i+1]
		bucket := int(fnvHash32(bigram)) % hashDims
		raw[bucket] += 0.5
	}

	maxVal := 0.0
	for _, v := range raw {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		return
	}
	for i, v := range raw {
		vec[offset+i] = v / maxVal
	}
}

func fnvHash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func l2Normalize(vec []float64) []float64 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return vec
	}
	norm := math.Sqrt(sumSquares)
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between two equal-length
// unit-norm vectors, clamped to [0, 1]. Two zero vectors are defined as
// maximally dissimilar (0), not undefined.
func CosineSimilarity(a, b []float64) float64 {
	var dot float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}

// Candidate pairs an opaque id with its precomputed embedding, so TopK can
// rank arbitrary domain objects (facts, content items) without importing
// their packages.
type Candidate struct {
	ID        int64
	Embedding []float64
}

// Scored is one Candidate plus its similarity to the query vector.
type Scored struct {
	Candidate
	Score float64
}

// TopK ranks candidates by descending similarity to query and returns the
// first k. k <= 0 or an empty candidate list returns an empty slice.
func TopK(query []float64, candidates []Candidate, k int) []Scored {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Candidate: c, Score: CosineSimilarity(query, c.Embedding)}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}
