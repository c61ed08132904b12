// Package vector holds the similarity and validation logic shared by the
// chunk store backends that rank in process.
package vector

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/askdoc/internal/core/domain"
)

// Cosine returns dot(a, b) / (|a| |b|) computed in float64.
// A zero-norm operand gives 0. Callers check lengths first.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CheckDimensions fails with a DimensionMismatchError when the query
// length differs from the stored length. A stored length of zero means
// nothing is stored and always passes.
func CheckDimensions(stored int, query []float32) error {
	if stored != 0 && len(query) != stored {
		return &domain.DimensionMismatchError{Expected: stored, Actual: len(query)}
	}
	return nil
}

// ValidateInputs checks a replacement set and returns its common dimension.
// Every chunk needs text and a vector, and all vectors share one length.
func ValidateInputs(chunks []domain.ChunkInput) (int, error) {
	dims := 0
	for i, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			return 0, domain.NewInvalidInput(fmt.Sprintf("chunks[%d].content", i), "empty text")
		}
		if len(c.Embedding) == 0 {
			return 0, domain.NewInvalidInput(fmt.Sprintf("chunks[%d].embedding", i), "empty vector")
		}
		if dims == 0 {
			dims = len(c.Embedding)
			continue
		}
		if len(c.Embedding) != dims {
			return 0, &domain.DimensionMismatchError{Expected: dims, Actual: len(c.Embedding)}
		}
	}
	return dims, nil
}

// Rank scores chunks against query, keeps those at or above threshold and
// returns at most topK ordered by similarity descending, then index ascending.
func Rank(chunks []domain.Chunk, query []float32, threshold float64, topK int) []domain.Match {
	matches := make([]domain.Match, 0, len(chunks))
	for _, c := range chunks {
		sim := Cosine(query, c.Embedding)
		if sim >= threshold {
			matches = append(matches, domain.Match{Chunk: c, Similarity: sim})
		}
	}
	Sort(matches)
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Sort orders matches by similarity descending, then chunk index ascending.
func Sort(matches []domain.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Chunk.Index < matches[j].Chunk.Index
	})
}

// Params resolves non-positive topK to the default.
func Params(threshold float64, topK int) (float64, int) {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return threshold, topK
}
