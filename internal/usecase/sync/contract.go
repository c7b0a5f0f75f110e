package sync

import (
	"context"
	"time"

	"github.com/refbase-io/refbase/internal/domain"
)

// DocumentSource reads and updates embedding state in the catalog.
type DocumentSource interface {
	ListPending(ctx context.Context, limit int) ([]domain.Document, error)
	CountAll(ctx context.Context) (int, error)
	CountEmbedded(ctx context.Context) (int, error)
	MarkEmbedded(ctx context.Context, id string, at time.Time) error
	ResetAllPending(ctx context.Context) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// VectorIndex writes and removes vector entries.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []domain.VectorEntry) error
	DeleteByIDs(ctx context.Context, ids []string) error
}

// BatchEmbedder embeds many texts in one provider call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
