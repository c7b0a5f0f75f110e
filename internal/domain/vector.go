package domain

// VectorEntry is one upsert record for the vector index. ID equals the
// source document id; Meta values are size-bounded by the index layer.
type VectorEntry struct {
	ID     string
	Vector []float32
	Meta   map[string]string
}

// VectorMatch is a provider-ranked hit from the vector index. Score is a
// similarity in [0, 1]; match order is the provider's and is not re-sorted.
type VectorMatch struct {
	ID    string
	Score float64
	Meta  map[string]string
}

// VectorQueryOptions controls a vector index query.
type VectorQueryOptions struct {
	TopK           int
	Filter         VectorFilter
	ReturnMetadata bool
}

// VectorFilter is the pre-filter applied before KNN ranking. Tags match
// exactly; the created range bounds the document creation time (unix
// milliseconds, inclusive). Zero values are omitted.
type VectorFilter struct {
	Tags        map[string]string
	CreatedFrom int64
	CreatedTo   int64
}

// IsEmpty reports whether the filter carries no predicate.
func (f VectorFilter) IsEmpty() bool {
	return len(f.Tags) == 0 && f.CreatedFrom == 0 && f.CreatedTo == 0
}
