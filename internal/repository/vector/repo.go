// Package vector adapts the vector store to the search and sync usecases.
package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/refbase-io/refbase/internal/db"
	"github.com/refbase-io/refbase/internal/domain"
)

// store is the consumer interface for vector entries (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	DelMulti(ctx context.Context, keys []string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Config tunes key layout and query limits.
type Config struct {
	KeyPrefix         string
	IndexName         string
	MaxTopK           int
	MetadataByteLimit int
}

// Repo implements the vector index over a RediSearch-backed store.
type Repo struct {
	store store
	cfg   Config
}

// New creates a vector repository.
func New(s store, cfg Config) *Repo {
	if cfg.MetadataByteLimit <= 0 {
		cfg.MetadataByteLimit = DefaultMetadataByteLimit
	}
	return &Repo{store: s, cfg: cfg}
}

// Upsert writes entries by ID, overwriting existing ones. An empty
// slice is a no-op without a network call.
func (r *Repo) Upsert(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(entries))
	for _, e := range entries {
		fields := EncodeMetadata(e.Meta, r.cfg.MetadataByteLimit)
		fields[FieldVector] = string(db.VectorToBytes(e.Vector))
		items = append(items, db.HashSetItem{Key: r.key(e.ID), Fields: fields})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	return nil
}

// DeleteByIDs removes entries. An empty slice is a no-op without a
// network call; unknown IDs are ignored.
func (r *Repo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.key(id))
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

// Query runs a KNN search and returns matches in the order the store
// ranked them.
func (r *Repo) Query(ctx context.Context, vec []float32, opts domain.VectorQueryOptions) ([]domain.VectorMatch, error) {
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive: %w", domain.ErrValidation)
	}
	if r.cfg.MaxTopK > 0 && opts.TopK > r.cfg.MaxTopK {
		return nil, fmt.Errorf("topK %d exceeds maximum %d: %w", opts.TopK, r.cfg.MaxTopK, domain.ErrValidation)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("query vector is empty: %w", domain.ErrValidation)
	}

	q := &db.KNNQuery{
		IndexName: r.cfg.IndexName,
		Filter:    opts.Filter,
		Vector:    vec,
		K:         opts.TopK,
	}
	if opts.ReturnMetadata {
		q.ReturnFields = []string{FieldCategory, FieldDepartment, FieldAccessScope, FieldPersonIDs, FieldCreatedAt}
	}

	result, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}

	matches := make([]domain.VectorMatch, 0, len(result.Entries))
	for _, entry := range result.Entries {
		matches = append(matches, domain.VectorMatch{
			ID:    strings.TrimPrefix(entry.Key, r.cfg.KeyPrefix),
			Score: entry.Score,
			Meta:  entry.Fields,
		})
	}
	return matches, nil
}

// IndexDefinition describes the RediSearch index backing this repository.
func IndexDefinition(indexName, keyPrefix string, dim, m, efConstruct int) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: FieldCategory, Type: db.FieldTypeTag},
			{Name: FieldDepartment, Type: db.FieldTypeTag},
			{Name: FieldAccessScope, Type: db.FieldTypeTag},
			{Name: FieldPersonIDs, Type: db.FieldTypeTag, TagSeparator: ","},
			{Name: FieldCreatedAt, Type: db.FieldTypeNumeric},
			{
				Name:              FieldVector,
				Type:              db.FieldTypeVector,
				VectorAlgo:        db.VectorAlgoHNSW,
				VectorDim:         dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           m,
				VectorEFConstruct: efConstruct,
			},
		},
	}
}

func (r *Repo) key(id string) string {
	return r.cfg.KeyPrefix + id
}
