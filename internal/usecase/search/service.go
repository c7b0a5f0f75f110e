// Package search fuses lexical and semantic retrieval into one ranked list.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/refbase-io/refbase/internal/domain"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// Request describes one search call. A zero Mode means hybrid; a zero
// Limit or TopK falls back to the configured defaults.
type Request struct {
	Query   string
	Mode    Mode
	Filters domain.Filters
	Limit   int
	TopK    int
}

// Config holds service defaults.
type Config struct {
	DefaultLimit int
	DefaultTopK  int
}

// Service handles search across lexical, semantic, and hybrid modes.
type Service struct {
	lexical LexicalSearcher
	vectors VectorQuerier
	embed   Embedder
	cfg     Config
	logger  *zap.Logger
}

// New creates a search service.
func New(lexical LexicalSearcher, vectors VectorQuerier, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 10
	}
	return &Service{lexical: lexical, vectors: vectors, embed: embed, cfg: cfg, logger: logger}
}

// Search runs the requested retrieval mode and returns ranked results.
// All validation happens before any store or provider call.
func (s *Service) Search(ctx context.Context, req Request) ([]domain.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("query is empty: %w", domain.ErrValidation)
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeHybrid
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}

	switch mode {
	case ModeLexical:
		return s.lexical.Search(ctx, query, req.Filters, limit)
	case ModeSemantic:
		results, err := s.searchSemantic(ctx, query, req.Filters, topK)
		if err != nil {
			return nil, err
		}
		return capResults(results, limit), nil
	case ModeHybrid:
		return s.searchHybrid(ctx, query, req.Filters, limit, topK)
	default:
		return nil, fmt.Errorf("unsupported search mode %q: %w", mode, domain.ErrValidation)
	}
}

func (s *Service) searchSemantic(ctx context.Context, query string, f domain.Filters, topK int) ([]domain.SearchResult, error) {
	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	matches, err := s.vectors.Query(ctx, embResult.Embedding, domain.VectorQueryOptions{
		TopK:   topK,
		Filter: vectorFilterFrom(f),
	})
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.SearchResult{
			DocumentID: m.ID,
			Score:      m.Score,
			Source:     domain.SourceSemantic,
		})
	}
	return results, nil
}

func (s *Service) searchHybrid(ctx context.Context, query string, f domain.Filters, limit, topK int) ([]domain.SearchResult, error) {
	lexResults, err := s.lexical.Search(ctx, query, f, limit)
	if err != nil {
		return nil, err
	}

	semResults, err := s.searchSemantic(ctx, query, f, topK)
	if err != nil {
		return nil, err
	}

	return capResults(fuse(lexResults, semResults), limit), nil
}

// vectorFilterFrom translates catalog filters into vector index
// predicates. All set fields are ANDed, matching the lexical side.
func vectorFilterFrom(f domain.Filters) domain.VectorFilter {
	vf := domain.VectorFilter{}
	tags := map[string]string{}
	if f.Category != "" {
		tags["category"] = f.Category
	}
	if f.DeptName != "" {
		tags["department"] = f.DeptName
	}
	if f.PersonID != "" {
		tags["person_ids"] = f.PersonID
	}
	if len(tags) > 0 {
		vf.Tags = tags
	}
	if f.DateFrom != nil {
		vf.CreatedFrom = f.DateFrom.UnixMilli()
	}
	if f.DateTo != nil {
		vf.CreatedTo = f.DateTo.UnixMilli()
	}
	return vf
}

func capResults(results []domain.SearchResult, limit int) []domain.SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
