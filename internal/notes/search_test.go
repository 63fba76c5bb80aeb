package notes

import (
	"context"
	"testing"
	"time"

	"finassist/internal/domain"
	"finassist/internal/ledger/ledgertest"

	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, cosine([]float64{1, 0}, []float64{2, 0}), 1e-9)
	require.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	require.InDelta(t, -1.0, cosine([]float64{1, 0}, []float64{-3, 0}), 1e-9)
	// Mismatched or degenerate inputs score zero instead of failing.
	require.Zero(t, cosine([]float64{1, 0}, []float64{1, 0, 0}))
	require.Zero(t, cosine(nil, nil))
	require.Zero(t, cosine([]float64{0, 0}, []float64{1, 0}))
}

func TestRankOrdersByScoreAndTruncates(t *testing.T) {
	entries := []Entry{
		{TransactionID: 1, Vector: []float64{0, 1}},
		{TransactionID: 2, Vector: []float64{1, 0}},
		{TransactionID: 3, Vector: []float64{1, 1}},
	}
	matches := rank(entries, []float64{1, 0}, 2)
	require.Len(t, matches, 2)
	require.Equal(t, uint(2), matches[0].TransactionID)
	require.Equal(t, uint(3), matches[1].TransactionID)

	// Non-positive k returns everything.
	require.Len(t, rank(entries, []float64{1, 0}, 0), 3)
}

// fixedEmbedder maps known phrases to fixed vectors.
type fixedEmbedder struct {
	vectors map[string][]float64
}

func (e *fixedEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0, 1}, nil
}

// memIndex is an in-memory Index for tests.
type memIndex struct {
	entries map[uint][]Entry
}

func newMemIndex() *memIndex { return &memIndex{entries: make(map[uint][]Entry)} }

func (m *memIndex) Upsert(_ context.Context, userID uint, e Entry) error {
	for i, existing := range m.entries[userID] {
		if existing.TransactionID == e.TransactionID {
			m.entries[userID][i] = e
			return nil
		}
	}
	m.entries[userID] = append(m.entries[userID], e)
	return nil
}

func (m *memIndex) Search(_ context.Context, userID uint, vector []float64, k int) ([]Match, error) {
	return rank(m.entries[userID], vector, k), nil
}

func TestSearchResolvesMatchesToRows(t *testing.T) {
	store := ledgertest.New()
	store.AddTransaction(domain.Transaction{ID: 1, UserID: 1, Amount: -40, Category: "Transfer", Note: "dinner with bob", Recipient: "bob", CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	store.AddTransaction(domain.Transaction{ID: 2, UserID: 1, Amount: -15, Category: "Transfer", Note: "bus ticket", Recipient: "metro", CreatedAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)})

	embedder := &fixedEmbedder{vectors: map[string][]float64{
		"dinner":          {1, 0, 0},
		"dinner with bob": {1, 0.1, 0},
		"bus ticket":      {0, 1, 0},
	}}
	index := newMemIndex()
	s := NewSearcher(embedder, index, store)

	require.NoError(t, s.SaveNoteEmbedding(context.Background(), &domain.Transaction{ID: 1, UserID: 1, Note: "dinner with bob"}))
	require.NoError(t, s.SaveNoteEmbedding(context.Background(), &domain.Transaction{ID: 2, UserID: 1, Note: "bus ticket"}))

	result, err := s.Search(context.Background(), 1, "dinner", 1)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	require.Equal(t, uint(1), result.Results[0].ID)
	require.Equal(t, "dinner with bob", result.Results[0].Note)
	require.Equal(t, "2025-06-01", result.Results[0].Date)
	require.Equal(t, -40.0, result.TotalAmount)
	require.Contains(t, result.Message, "dinner")
}

func TestSearchSkipsRowsOwnedByOthers(t *testing.T) {
	store := ledgertest.New()
	store.AddTransaction(domain.Transaction{ID: 1, UserID: 2, Amount: -40, Note: "dinner with bob"})

	embedder := &fixedEmbedder{vectors: map[string][]float64{"dinner": {1, 0, 0}}}
	index := newMemIndex()
	// A stale index entry pointing at another user's row.
	require.NoError(t, index.Upsert(context.Background(), 1, Entry{TransactionID: 1, Vector: []float64{1, 0, 0}}))
	s := NewSearcher(embedder, index, store)

	result, err := s.Search(context.Background(), 1, "dinner", 5)
	require.NoError(t, err)
	require.Empty(t, result.Results)
	require.Equal(t, "No search results found.", result.Message)
}

func TestSaveNoteEmbeddingSkipsEmptyNotes(t *testing.T) {
	index := newMemIndex()
	s := NewSearcher(&fixedEmbedder{}, index, ledgertest.New())
	require.NoError(t, s.SaveNoteEmbedding(context.Background(), &domain.Transaction{ID: 1, UserID: 1}))
	require.Empty(t, index.entries[1])
}
