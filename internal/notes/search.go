package notes

import (
	"context"
	"fmt"

	"finassist/internal/domain"
	"finassist/internal/ledger"
)

// Result is one matched transaction, formatted for conversational display.
type Result struct {
	ID        uint    `json:"id"`
	Date      string  `json:"date"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Note      string  `json:"note"`
	Recipient string  `json:"recipient"`
}

// SearchResult is the full response to a note query.
type SearchResult struct {
	Message     string   `json:"message"`
	TotalAmount float64  `json:"total_amount"`
	Results     []Result `json:"results"`
}

// Searcher finds transactions whose notes are similar to a free-text query.
type Searcher struct {
	embedder Embedder
	index    Index
	store    ledger.Store
}

// NewSearcher builds a Searcher.
func NewSearcher(embedder Embedder, index Index, store ledger.Store) *Searcher {
	return &Searcher{embedder: embedder, index: index, store: store}
}

// Search embeds the query, looks up the nearest note vectors and resolves
// them back to ledger rows.
func (s *Searcher) Search(ctx context.Context, userID uint, query string, k int) (*SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := s.index.Search(ctx, userID, vector, k)
	if err != nil {
		return nil, err
	}
	out := &SearchResult{}
	for _, m := range matches {
		t, err := s.store.GetTransaction(ctx, m.TransactionID)
		if err != nil {
			return nil, err
		}
		if t == nil || t.UserID != userID {
			continue // Indexed row no longer resolvable for this user
		}
		out.Results = append(out.Results, Result{
			ID:        t.ID,
			Date:      t.CreatedAt.Format("2006-01-02"),
			Amount:    t.Amount,
			Category:  t.Category,
			Note:      t.Note,
			Recipient: t.Recipient,
		})
		out.TotalAmount += t.Amount
	}
	if len(out.Results) == 0 {
		out.Message = "No search results found."
	} else {
		out.Message = fmt.Sprintf("Found %d transactions related to '%s'.", len(out.Results), query)
	}
	return out, nil
}

// SaveNoteEmbedding indexes the note of a committed transaction. Implements
// the orchestrator's NoteSink.
func (s *Searcher) SaveNoteEmbedding(ctx context.Context, t *domain.Transaction) error {
	if t.Note == "" {
		return nil
	}
	vector, err := s.embedder.Embed(ctx, t.Note)
	if err != nil {
		return err
	}
	return s.index.Upsert(ctx, t.UserID, Entry{TransactionID: t.ID, Vector: vector})
}
