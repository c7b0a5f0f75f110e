package chi

import (
	"fmt"
	"time"

	"github.com/refbase-io/refbase/internal/domain"
	searchuc "github.com/refbase-io/refbase/internal/usecase/search"
)

type searchFilters struct {
	Category string `json:"category,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
	PersonID string `json:"person_id,omitempty"`
	DeptName string `json:"dept_name,omitempty"`
}

type searchRequest struct {
	Query   string        `json:"query"`
	Mode    string        `json:"mode,omitempty"`
	Limit   int           `json:"limit,omitempty"`
	TopK    int           `json:"top_k,omitempty"`
	Filters searchFilters `json:"filters,omitempty"`
}

func (r searchRequest) toUsecase() (searchuc.Request, error) {
	f := domain.Filters{
		Category: r.Filters.Category,
		PersonID: r.Filters.PersonID,
		DeptName: r.Filters.DeptName,
	}
	if r.Filters.DateFrom != "" {
		t, err := time.Parse(time.RFC3339, r.Filters.DateFrom)
		if err != nil {
			return searchuc.Request{}, fmt.Errorf("invalid date_from: %v", err)
		}
		f.DateFrom = &t
	}
	if r.Filters.DateTo != "" {
		t, err := time.Parse(time.RFC3339, r.Filters.DateTo)
		if err != nil {
			return searchuc.Request{}, fmt.Errorf("invalid date_to: %v", err)
		}
		f.DateTo = &t
	}

	return searchuc.Request{
		Query:   r.Query,
		Mode:    searchuc.Mode(r.Mode),
		Filters: f,
		Limit:   r.Limit,
		TopK:    r.TopK,
	}, nil
}

type searchResultItem struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
}

type embedPendingRequest struct {
	BatchSize int `json:"batch_size,omitempty"`
}

type documentRequest struct {
	Content     string   `json:"content"`
	Category    string   `json:"category,omitempty"`
	Department  string   `json:"department,omitempty"`
	AccessScope string   `json:"access_scope,omitempty"`
	PersonIDs   []string `json:"person_ids,omitempty"`
}

func (r documentRequest) toDomain(id string) *domain.Document {
	return &domain.Document{
		ID:          id,
		Content:     r.Content,
		Category:    r.Category,
		Department:  r.Department,
		AccessScope: r.AccessScope,
		PersonIDs:   r.PersonIDs,
	}
}

type documentResponse struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Category    string     `json:"category,omitempty"`
	Department  string     `json:"department,omitempty"`
	AccessScope string     `json:"access_scope,omitempty"`
	PersonIDs   []string   `json:"person_ids,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	EmbeddedAt  *time.Time `json:"embedded_at,omitempty"`
}

func documentToResponse(doc *domain.Document) documentResponse {
	return documentResponse{
		ID:          doc.ID,
		Content:     doc.Content,
		Category:    doc.Category,
		Department:  doc.Department,
		AccessScope: doc.AccessScope,
		PersonIDs:   doc.PersonIDs,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		EmbeddedAt:  doc.EmbeddedAt,
	}
}
