package domain

import "time"

// Source tags which retrieval method produced a search result.
type Source string

// Search result sources.
const (
	SourceLexical  Source = "lexical"
	SourceSemantic Source = "semantic"
	SourceHybrid   Source = "hybrid"
)

// SearchResult is a single ranked hit. Score is always within [0, 1].
type SearchResult struct {
	DocumentID string
	Score      float64
	Source     Source
}

// Filters narrows a search. Zero-valued fields are absent and must be
// omitted from the underlying query entirely, never treated as wildcards.
// Present fields compose as additive AND predicates.
type Filters struct {
	Category string
	DateFrom *time.Time
	DateTo   *time.Time
	PersonID string
	DeptName string
}

// IsEmpty reports whether no filter field is set.
func (f Filters) IsEmpty() bool {
	return f.Category == "" && f.DateFrom == nil && f.DateTo == nil &&
		f.PersonID == "" && f.DeptName == ""
}
