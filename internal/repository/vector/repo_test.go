package vector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/refbase-io/refbase/internal/db"
	"github.com/refbase-io/refbase/internal/domain"
)

type fakeStore struct {
	hsetItems  []db.HashSetItem
	delKeys    []string
	knnQuery   *db.KNNQuery
	knnResult  *db.SearchResult
	returnErr  error
	hsetCalls  int
	delCalls   int
	knnCalls   int
}

func (f *fakeStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	f.hsetCalls++
	f.hsetItems = items
	return f.returnErr
}

func (f *fakeStore) DelMulti(_ context.Context, keys []string) error {
	f.delCalls++
	f.delKeys = keys
	return f.returnErr
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.knnCalls++
	f.knnQuery = q
	if f.returnErr != nil {
		return nil, f.returnErr
	}
	return f.knnResult, nil
}

func newTestRepo(s *fakeStore) *Repo {
	return New(s, Config{
		KeyPrefix: "refbase:vec:",
		IndexName: "refbase:vec:idx",
		MaxTopK:   100,
	})
}

func TestUpsert_Empty(t *testing.T) {
	s := &fakeStore{}
	r := newTestRepo(s)

	if err := r.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.hsetCalls != 0 {
		t.Error("empty upsert must not touch the store")
	}
}

func TestUpsert_EncodesEntries(t *testing.T) {
	s := &fakeStore{}
	r := newTestRepo(s)

	err := r.Upsert(context.Background(), []domain.VectorEntry{
		{
			ID:     "doc-1",
			Vector: []float32{0.1, 0.2},
			Meta:   map[string]string{FieldCategory: "policy"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.hsetItems) != 1 {
		t.Fatalf("expected 1 item, got %d", len(s.hsetItems))
	}

	item := s.hsetItems[0]
	if item.Key != "refbase:vec:doc-1" {
		t.Errorf("unexpected key %s", item.Key)
	}
	if item.Fields[FieldCategory] != "policy" {
		t.Errorf("metadata not carried: %v", item.Fields)
	}
	if len(item.Fields[FieldVector]) != 8 {
		t.Errorf("expected 8-byte vector blob, got %d bytes", len(item.Fields[FieldVector]))
	}
}

func TestUpsert_TruncatesMetadata(t *testing.T) {
	s := &fakeStore{}
	r := newTestRepo(s)

	long := strings.Repeat("x", 200)
	err := r.Upsert(context.Background(), []domain.VectorEntry{
		{ID: "doc-1", Vector: []float32{0.1}, Meta: map[string]string{FieldCategory: long}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.hsetItems[0].Fields[FieldCategory]; len(got) != DefaultMetadataByteLimit {
		t.Errorf("expected %d bytes, got %d", DefaultMetadataByteLimit, len(got))
	}
}

func TestDeleteByIDs_Empty(t *testing.T) {
	s := &fakeStore{}
	r := newTestRepo(s)

	if err := r.DeleteByIDs(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.delCalls != 0 {
		t.Error("empty delete must not touch the store")
	}
}

func TestDeleteByIDs_PrefixesKeys(t *testing.T) {
	s := &fakeStore{}
	r := newTestRepo(s)

	if err := r.DeleteByIDs(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.delKeys) != 2 || s.delKeys[0] != "refbase:vec:a" || s.delKeys[1] != "refbase:vec:b" {
		t.Errorf("unexpected keys: %v", s.delKeys)
	}
}

func TestQuery_ValidatesBeforeIO(t *testing.T) {
	s := &fakeStore{}
	r := newTestRepo(s)
	ctx := context.Background()

	_, err := r.Query(ctx, []float32{0.1}, domain.VectorQueryOptions{TopK: 0})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for topK=0, got %v", err)
	}

	_, err = r.Query(ctx, []float32{0.1}, domain.VectorQueryOptions{TopK: 101})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for topK over max, got %v", err)
	}

	_, err = r.Query(ctx, nil, domain.VectorQueryOptions{TopK: 10})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for empty vector, got %v", err)
	}

	if s.knnCalls != 0 {
		t.Error("validation failures must not reach the store")
	}
}

func TestQuery_PreservesStoreOrder(t *testing.T) {
	s := &fakeStore{
		knnResult: &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "refbase:vec:doc-2", Score: 0.9},
				{Key: "refbase:vec:doc-1", Score: 0.7},
			},
		},
	}
	r := newTestRepo(s)

	matches, err := r.Query(context.Background(), []float32{0.1}, domain.VectorQueryOptions{TopK: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "doc-2" || matches[1].ID != "doc-1" {
		t.Errorf("store order must be preserved: %v", matches)
	}
	if matches[0].Score != 0.9 {
		t.Errorf("unexpected score: %f", matches[0].Score)
	}
}

func TestQuery_PassesFilter(t *testing.T) {
	s := &fakeStore{knnResult: &db.SearchResult{}}
	r := newTestRepo(s)

	filter := domain.VectorFilter{Tags: map[string]string{FieldCategory: "policy"}}
	_, err := r.Query(context.Background(), []float32{0.1}, domain.VectorQueryOptions{TopK: 5, Filter: filter})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.knnQuery.K != 5 || s.knnQuery.IndexName != "refbase:vec:idx" {
		t.Errorf("unexpected query: %+v", s.knnQuery)
	}
	if s.knnQuery.Filter.Tags[FieldCategory] != "policy" {
		t.Errorf("filter not passed through: %+v", s.knnQuery.Filter)
	}
}

func TestEncodeMetadata_UTF8Boundary(t *testing.T) {
	// Cyrillic runes are 2 bytes each; an odd limit must not split one.
	meta := map[string]string{"f": strings.Repeat("д", 40)}
	out := EncodeMetadata(meta, 7)
	if out["f"] != "ддд" {
		t.Errorf("expected 3 whole runes, got %q", out["f"])
	}
}

func TestMetadataFromDocument(t *testing.T) {
	doc := &domain.Document{
		ID:          "doc-1",
		Category:    "policy",
		Department:  "hr",
		AccessScope: "internal",
		PersonIDs:   []string{"p1", "p2"},
	}
	meta := MetadataFromDocument(doc)
	if meta[FieldPersonIDs] != "p1,p2" {
		t.Errorf("unexpected person ids: %q", meta[FieldPersonIDs])
	}
	if meta[FieldCategory] != "policy" || meta[FieldDepartment] != "hr" {
		t.Errorf("unexpected meta: %v", meta)
	}
}

func TestIndexDefinition(t *testing.T) {
	def := IndexDefinition("refbase:vec:idx", "refbase:vec:", 1536, 32, 400)
	if err := def.Validate(); err != nil {
		t.Fatalf("definition should validate: %v", err)
	}
	var hasVector bool
	for _, f := range def.Fields {
		if f.Type == db.FieldTypeVector {
			hasVector = true
			if f.VectorDim != 1536 || f.VectorDistance != db.DistanceCosine {
				t.Errorf("unexpected vector field: %+v", f)
			}
		}
	}
	if !hasVector {
		t.Error("definition must include a vector field")
	}
}
