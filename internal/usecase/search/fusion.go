package search

import (
	"sort"

	"github.com/refbase-io/refbase/internal/domain"
)

// presenceBonus rewards documents found by both retrieval paths, so
// agreement between them outranks a single strong signal.
const presenceBonus = 0.05

type fused struct {
	id     string
	lex    float64
	sem    float64
	hasLex bool
	hasSem bool
}

// fuse merges lexical and semantic results by document ID. A document
// present in both lists becomes a hybrid hit scored
// min(1.0, max(lex, sem) + presenceBonus); single-source hits keep
// their score and source. Ties order by semantic score, then by ID.
func fuse(lexResults, semResults []domain.SearchResult) []domain.SearchResult {
	byID := make(map[string]*fused, len(lexResults)+len(semResults))
	order := make([]string, 0, len(lexResults)+len(semResults))

	for _, r := range lexResults {
		byID[r.DocumentID] = &fused{id: r.DocumentID, lex: r.Score, hasLex: true}
		order = append(order, r.DocumentID)
	}
	for _, r := range semResults {
		if f, ok := byID[r.DocumentID]; ok {
			f.sem = r.Score
			f.hasSem = true
			continue
		}
		byID[r.DocumentID] = &fused{id: r.DocumentID, sem: r.Score, hasSem: true}
		order = append(order, r.DocumentID)
	}

	results := make([]domain.SearchResult, 0, len(order))
	for _, id := range order {
		f := byID[id]
		switch {
		case f.hasLex && f.hasSem:
			score := max(f.lex, f.sem) + presenceBonus
			if score > 1.0 {
				score = 1.0
			}
			results = append(results, domain.SearchResult{
				DocumentID: f.id, Score: score, Source: domain.SourceHybrid,
			})
		case f.hasLex:
			results = append(results, domain.SearchResult{
				DocumentID: f.id, Score: f.lex, Source: domain.SourceLexical,
			})
		default:
			results = append(results, domain.SearchResult{
				DocumentID: f.id, Score: f.sem, Source: domain.SourceSemantic,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		semI, semJ := byID[results[i].DocumentID].sem, byID[results[j].DocumentID].sem
		if semI != semJ {
			return semI > semJ
		}
		return results[i].DocumentID < results[j].DocumentID
	})

	return results
}
