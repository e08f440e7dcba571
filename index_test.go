package sift

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/vecna"
)

// mockVectorProvider records calls and replays canned results.
type mockVectorProvider struct {
	vectors map[uuid.UUID]VectorRecord
	results []VectorResult
	err     error

	lastFilter map[string]any
	lastVecna  *vecna.Filter
	lastK      int
}

func newMockVectorProvider() *mockVectorProvider {
	return &mockVectorProvider{vectors: make(map[uuid.UUID]VectorRecord)}
}

func (m *mockVectorProvider) Upsert(_ context.Context, id uuid.UUID, vector []float32, metadata []byte) error {
	if m.err != nil {
		return m.err
	}
	m.vectors[id] = VectorRecord{ID: id, Vector: vector, Metadata: metadata}
	return nil
}

func (m *mockVectorProvider) UpsertBatch(_ context.Context, vectors []VectorRecord) error {
	if m.err != nil {
		return m.err
	}
	for _, v := range vectors {
		m.vectors[v.ID] = v
	}
	return nil
}

func (m *mockVectorProvider) Get(_ context.Context, id uuid.UUID) ([]float32, *VectorInfo, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	v, ok := m.vectors[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return v.Vector, &VectorInfo{ID: id, Dimension: len(v.Vector), Metadata: v.Metadata}, nil
}

func (m *mockVectorProvider) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.vectors[id]; !ok {
		return ErrNotFound
	}
	delete(m.vectors, id)
	return nil
}

func (m *mockVectorProvider) DeleteBatch(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(m.vectors, id)
	}
	return nil
}

func (m *mockVectorProvider) Search(_ context.Context, _ []float32, k int, filter map[string]any) ([]VectorResult, error) {
	m.lastK, m.lastFilter = k, filter
	return m.results, m.err
}

func (m *mockVectorProvider) Query(_ context.Context, _ []float32, k int, filter *vecna.Filter) ([]VectorResult, error) {
	m.lastK, m.lastVecna = k, filter
	return m.results, m.err
}

func (m *mockVectorProvider) Filter(_ context.Context, filter *vecna.Filter, limit int) ([]VectorResult, error) {
	m.lastK, m.lastVecna = limit, filter
	return m.results, m.err
}

func (m *mockVectorProvider) List(_ context.Context, limit int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(m.vectors))
	for id := range m.vectors {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockVectorProvider) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.vectors[id]
	return ok, nil
}

var _ VectorProvider = (*mockVectorProvider)(nil)

type docMeta struct {
	Category string `json:"category,omitempty"`
	Score    int    `json:"score,omitempty"`
}

func TestNewIndexWithCodec_NilCodec(t *testing.T) {
	idx := NewIndexWithCodec[docMeta](newMockVectorProvider(), nil)
	if _, ok := idx.codec.(JSONCodec); !ok {
		t.Errorf("expected JSONCodec fallback, got %T", idx.codec)
	}
}

func TestIndex_UpsertGet(t *testing.T) {
	provider := newMockVectorProvider()
	idx := NewIndex[docMeta](provider)
	ctx := context.Background()
	id := uuid.New()

	if err := idx.Upsert(ctx, id, []float32{1, 2}, &docMeta{Category: "a", Score: 3}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if string(provider.vectors[id].Metadata) != `{"category":"a","score":3}` {
		t.Errorf("unexpected stored metadata: %s", provider.vectors[id].Metadata)
	}

	got, err := idx.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != id || got.Metadata.Category != "a" || got.Metadata.Score != 3 || len(got.Vector) != 2 {
		t.Errorf("unexpected vector: %+v", got)
	}

	if _, err := idx.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIndex_NilMetadata(t *testing.T) {
	provider := newMockVectorProvider()
	idx := NewIndex[docMeta](provider)
	ctx := context.Background()
	id := uuid.New()

	if err := idx.Upsert(ctx, id, []float32{1}, nil); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if provider.vectors[id].Metadata != nil {
		t.Error("expected nil metadata for nil input")
	}
	got, err := idx.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Metadata != (docMeta{}) {
		t.Errorf("expected zero metadata, got %+v", got.Metadata)
	}
}

func TestIndex_UpsertBatch(t *testing.T) {
	provider := newMockVectorProvider()
	idx := NewIndex[docMeta](provider)

	vectors := []Vector[docMeta]{
		{ID: uuid.New(), Vector: []float32{1}, Metadata: docMeta{Category: "x"}},
		{ID: uuid.New(), Vector: []float32{2}, Metadata: docMeta{Category: "y"}},
	}
	if err := idx.UpsertBatch(context.Background(), vectors); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if string(provider.vectors[vectors[1].ID].Metadata) != `{"category":"y"}` {
		t.Errorf("unexpected metadata: %s", provider.vectors[vectors[1].ID].Metadata)
	}
}

func TestIndex_Search(t *testing.T) {
	provider := newMockVectorProvider()
	idx := NewIndex[docMeta](provider)
	id := uuid.New()
	provider.results = []VectorResult{{ID: id, Vector: []float32{1, 1, 1}, Metadata: []byte(`{"category":"a"}`), Score: 0.5}}

	results, err := idx.Search(context.Background(), []float32{1, 1, 1}, 4, &docMeta{Category: "a"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if provider.lastK != 4 {
		t.Errorf("expected k=4, got %d", provider.lastK)
	}
	if len(provider.lastFilter) != 1 || provider.lastFilter["category"] != "a" {
		t.Errorf("expected encoded filter, got %v", provider.lastFilter)
	}
	if len(results) != 1 || results[0].ID != id || results[0].Score != 0.5 || results[0].Metadata.Category != "a" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestIndex_QueryAndFilter(t *testing.T) {
	provider := newMockVectorProvider()
	idx := NewIndex[docMeta](provider)
	b, err := vecna.New[docMeta]()
	if err != nil {
		t.Fatalf("vecna.New failed: %v", err)
	}
	f := b.Where("category").Eq("a")
	provider.results = []VectorResult{{ID: uuid.New(), Metadata: []byte(`{"score":7}`)}}

	results, err := idx.Query(context.Background(), []float32{0}, 2, f)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if provider.lastVecna != f || results[0].Metadata.Score != 7 {
		t.Errorf("unexpected query pass-through: %+v", results)
	}

	if _, err := idx.Filter(context.Background(), f, 9); err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if provider.lastK != 9 {
		t.Errorf("expected limit 9, got %d", provider.lastK)
	}
}

func TestIndex_DecodeError(t *testing.T) {
	provider := newMockVectorProvider()
	idx := NewIndex[docMeta](provider)
	provider.results = []VectorResult{{ID: uuid.New(), Metadata: []byte(`{not json`)}}

	_, err := idx.Search(context.Background(), []float32{0}, 1, nil)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestIndex_DeleteListExists(t *testing.T) {
	provider := newMockVectorProvider()
	idx := NewIndex[docMeta](provider)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	_ = idx.Upsert(ctx, a, []float32{1}, nil)
	_ = idx.Upsert(ctx, b, []float32{2}, nil)

	if ok, _ := idx.Exists(ctx, a); !ok {
		t.Error("expected a to exist")
	}
	if ids, _ := idx.List(ctx, 1); len(ids) != 1 {
		t.Errorf("expected 1 id, got %d", len(ids))
	}
	if err := idx.Delete(ctx, a); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := idx.Delete(ctx, a); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := idx.DeleteBatch(ctx, []uuid.UUID{b}); err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}
	if ok, _ := idx.Exists(ctx, b); ok {
		t.Error("expected b to be deleted")
	}
}

func TestIndex_Search_EmitsSignals(t *testing.T) {
	provider := newMockVectorProvider()
	idx := NewIndex[docMeta](provider)
	provider.results = []VectorResult{{ID: uuid.New()}, {ID: uuid.New()}}

	var (
		mu     sync.Mutex
		count  int
		failed error
	)
	l1 := capitan.Hook(SearchCompleted, func(_ context.Context, e *capitan.Event) {
		mu.Lock()
		count = FieldCount.ExtractFromFields(e.Fields())
		mu.Unlock()
	})
	l2 := capitan.Hook(SearchFailed, func(_ context.Context, e *capitan.Event) {
		mu.Lock()
		failed = FieldError.ExtractFromFields(e.Fields())
		mu.Unlock()
	})

	ctx := context.Background()
	if _, err := idx.Search(ctx, []float32{1}, 2, nil); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	provider.err = ErrInvalidQuery
	_, _ = idx.Query(ctx, []float32{1}, 2, nil)

	_ = l1.Drain(ctx)
	_ = l2.Drain(ctx)
	l1.Close()
	l2.Close()

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected count 2 in SearchCompleted, got %d", count)
	}
	if !errors.Is(failed, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery in SearchFailed, got %v", failed)
	}
}
