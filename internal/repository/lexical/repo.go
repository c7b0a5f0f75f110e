// Package lexical serves keyword search over the FTS5 document index.
package lexical

import (
	"context"
	"fmt"
	"strings"

	"github.com/refbase-io/refbase/internal/db/sqlite"
	"github.com/refbase-io/refbase/internal/domain"
)

// DefaultLimit caps results when the caller does not set one.
const DefaultLimit = 10

// store is the consumer interface for full-text queries (ISP).
type store interface {
	SearchLexical(ctx context.Context, match string, f domain.Filters, limit int) ([]sqlite.LexicalHit, error)
}

// Repo implements the lexical searcher over SQLite FTS5.
type Repo struct {
	store store
}

// New creates a lexical search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Search runs a keyword query with additive metadata filters. A blank
// query returns no results without touching the store. Raw engine ranks
// are normalized into [0, 1].
func (r *Repo) Search(ctx context.Context, query string, f domain.Filters, limit int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	hits, err := r.store.SearchLexical(ctx, buildMatch(query), f, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLexicalSearch, err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.SearchResult{
			DocumentID: h.DocID,
			Score:      normalizeRank(h.Rank),
			Source:     domain.SourceLexical,
		})
	}
	return results, nil
}

// buildMatch quotes each whitespace-separated token so user input can
// never be parsed as FTS5 query syntax. Tokens are ANDed.
func buildMatch(query string) string {
	tokens := strings.Fields(query)
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		quoted = append(quoted, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// normalizeRank maps the raw engine rank, where more negative means
// more relevant, onto [0, 1]. A rank of -1 maps to 0.9, -5 to 0.5, and
// anything at or below -10 to 0.
func normalizeRank(rank float64) float64 {
	score := 1 + rank/10
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
