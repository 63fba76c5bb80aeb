package notes

import (
	"context"
	"math"
	"sort"
)

// Entry is one indexed note vector.
type Entry struct {
	TransactionID uint      `json:"transaction_id"`
	Vector        []float64 `json:"vector"`
}

// Match is one search hit.
type Match struct {
	TransactionID uint
	Score         float64
}

// Index stores note vectors per user and finds the nearest ones.
type Index interface {
	Upsert(ctx context.Context, userID uint, e Entry) error
	Search(ctx context.Context, userID uint, vector []float64, k int) ([]Match, error)
}

// cosine returns the cosine similarity of two vectors, 0 on mismatch.
func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// rank scores every entry against the query vector and returns the top k.
func rank(entries []Entry, vector []float64, k int) []Match {
	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, Match{
			TransactionID: e.TransactionID,
			Score:         cosine(e.Vector, vector),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
