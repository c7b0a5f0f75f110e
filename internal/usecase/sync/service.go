// Package sync keeps the vector index aligned with the document catalog.
package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/refbase-io/refbase/internal/domain"
	"github.com/refbase-io/refbase/internal/metrics"
	"github.com/refbase-io/refbase/internal/repository/vector"
)

const (
	jobEmbedPending = "embed_pending"
	jobReindex      = "reindex"
	jobReembed      = "reembed"
)

// Config tunes batch sizes and safety bounds.
type Config struct {
	BatchSize int
	// MaxReindexPasses bounds ReindexAll so a document that keeps
	// failing cannot loop it forever.
	MaxReindexPasses int
	// ReembedTimeout bounds the detached reembed goroutine.
	ReembedTimeout time.Duration
}

// Service orchestrates embedding synchronization.
type Service struct {
	docs    DocumentSource
	vectors VectorIndex
	embed   BatchEmbedder
	cfg     Config
	logger  *zap.Logger
}

// New creates a sync service.
func New(docs DocumentSource, vectors VectorIndex, embed BatchEmbedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxReindexPasses <= 0 {
		cfg.MaxReindexPasses = 100
	}
	if cfg.ReembedTimeout <= 0 {
		cfg.ReembedTimeout = 30 * time.Second
	}
	return &Service{docs: docs, vectors: vectors, embed: embed, cfg: cfg, logger: logger}
}

// Stats counts the catalog fresh on every call, never from a cache.
func (s *Service) Stats(ctx context.Context) (domain.SyncStats, error) {
	total, err := s.docs.CountAll(ctx)
	if err != nil {
		return domain.SyncStats{}, fmt.Errorf("count all: %w", err)
	}
	embedded, err := s.docs.CountEmbedded(ctx)
	if err != nil {
		return domain.SyncStats{}, fmt.Errorf("count embedded: %w", err)
	}
	return domain.SyncStats{Total: total, Embedded: embedded, Pending: total - embedded}, nil
}

// EmbedPending embeds one batch of pending documents. The result always
// satisfies Processed == Succeeded + Failed; a provider failure counts
// every document in the batch as failed.
func (s *Service) EmbedPending(ctx context.Context, batchSize int) (domain.JobResult, error) {
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}

	start := time.Now()
	metrics.SyncRunsTotal.WithLabelValues(jobEmbedPending).Inc()
	defer func() {
		metrics.SyncJobDuration.WithLabelValues(jobEmbedPending).Observe(time.Since(start).Seconds())
	}()

	pending, err := s.docs.ListPending(ctx, batchSize)
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("list pending: %w", err)
	}
	docs := dedupe(pending)
	if len(docs) == 0 {
		return domain.JobResult{}, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	batch, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		metrics.SyncDocumentsTotal.WithLabelValues(jobEmbedPending, "failed").Add(float64(len(docs)))
		return domain.JobResult{Processed: len(docs), Failed: len(docs)},
			fmt.Errorf("embed batch of %d: %w", len(docs), err)
	}

	result := domain.JobResult{Processed: len(docs)}

	entries := make([]domain.VectorEntry, 0, len(docs))
	embeddable := make([]domain.Document, 0, len(docs))
	for i, doc := range docs {
		if i >= len(batch.Embeddings) || len(batch.Embeddings[i]) == 0 {
			result.Failed++
			s.logger.Warn("no embedding for document", zap.String("id", doc.ID))
			continue
		}
		entries = append(entries, domain.VectorEntry{
			ID:     doc.ID,
			Vector: batch.Embeddings[i],
			Meta:   vector.MetadataFromDocument(&docs[i]),
		})
		embeddable = append(embeddable, doc)
	}

	if len(entries) > 0 {
		if err := s.vectors.Upsert(ctx, entries); err != nil {
			result.Failed += len(entries)
			metrics.SyncDocumentsTotal.WithLabelValues(jobEmbedPending, "failed").Add(float64(result.Failed))
			return result, fmt.Errorf("upsert vectors: %w", err)
		}
	}

	now := time.Now()
	for _, doc := range embeddable {
		if err := s.docs.MarkEmbedded(ctx, doc.ID, now); err != nil {
			result.Failed++
			s.logger.Warn("mark embedded failed", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		result.Succeeded++
	}

	metrics.SyncDocumentsTotal.WithLabelValues(jobEmbedPending, "succeeded").Add(float64(result.Succeeded))
	metrics.SyncDocumentsTotal.WithLabelValues(jobEmbedPending, "failed").Add(float64(result.Failed))
	return result, nil
}

// ReindexAll resets every document to pending and re-embeds the whole
// catalog in batches. Passes are bounded so persistent failures
// terminate instead of spinning.
func (s *Service) ReindexAll(ctx context.Context) (domain.JobResult, error) {
	start := time.Now()
	metrics.SyncRunsTotal.WithLabelValues(jobReindex).Inc()
	defer func() {
		metrics.SyncJobDuration.WithLabelValues(jobReindex).Observe(time.Since(start).Seconds())
	}()

	if err := s.docs.ResetAllPending(ctx); err != nil {
		return domain.JobResult{}, fmt.Errorf("reset pending: %w", err)
	}

	var total domain.JobResult
	for pass := 0; pass < s.cfg.MaxReindexPasses; pass++ {
		res, err := s.EmbedPending(ctx, s.cfg.BatchSize)
		total.Add(res)
		if err != nil {
			return total, err
		}
		if res.Processed == 0 {
			break
		}
	}
	return total, nil
}

// ReembedAsync re-embeds a single document in a detached goroutine.
// Errors are logged, never returned; callers get an immediate ack.
func (s *Service) ReembedAsync(id string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ReembedTimeout)
		defer cancel()

		if err := s.Reembed(ctx, id); err != nil {
			s.logger.Error("reembed failed", zap.String("id", id), zap.Error(err))
			return
		}
		s.logger.Info("reembed completed", zap.String("id", id))
	}()
}

// Reembed embeds one document and updates its vector entry.
func (s *Service) Reembed(ctx context.Context, id string) error {
	metrics.SyncRunsTotal.WithLabelValues(jobReembed).Inc()

	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	batch, err := s.embed.BatchEmbed(ctx, []string{doc.Content})
	if err != nil {
		return fmt.Errorf("embed document %s: %w", id, err)
	}
	if len(batch.Embeddings) == 0 || len(batch.Embeddings[0]) == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNoEmbedding)
	}

	entry := domain.VectorEntry{
		ID:     doc.ID,
		Vector: batch.Embeddings[0],
		Meta:   vector.MetadataFromDocument(doc),
	}
	if err := s.vectors.Upsert(ctx, []domain.VectorEntry{entry}); err != nil {
		return fmt.Errorf("upsert vector %s: %w", id, err)
	}

	if err := s.docs.MarkEmbedded(ctx, id, time.Now()); err != nil {
		return fmt.Errorf("mark embedded %s: %w", id, err)
	}
	return nil
}

// RemoveDocument deletes a document and its vector entry, keeping the
// catalog and the index one-to-one.
func (s *Service) RemoveDocument(ctx context.Context, id string) error {
	if err := s.docs.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if err := s.vectors.DeleteByIDs(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete vector %s: %w", id, err)
	}
	return nil
}

// dedupe drops repeated IDs, keeping the first occurrence in order.
func dedupe(docs []domain.Document) []domain.Document {
	seen := make(map[string]struct{}, len(docs))
	out := docs[:0]
	for _, doc := range docs {
		if _, ok := seen[doc.ID]; ok {
			continue
		}
		seen[doc.ID] = struct{}{}
		out = append(out, doc)
	}
	return out
}
