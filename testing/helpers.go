// Package testing provides test utilities for sift.
package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/sift"
	"github.com/zoobzio/vecna"
)

// MockVectorProvider is an in-memory sift.VectorProvider for testing.
// Searches are exhaustive and scored with the configured metric using the
// same conventions as pgvector: L2 distance, cosine distance, and negated
// inner product. Lower scores rank first.
//
// Query and Filter support nil filters, Eq, and And. Other operators return
// sift.ErrOperatorNotSupported.
type MockVectorProvider struct {
	metric  sift.DistanceMetric
	records map[uuid.UUID]sift.VectorRecord
	order   []uuid.UUID
	mu      sync.RWMutex
}

// NewMockVectorProvider creates an empty provider scoring with metric.
func NewMockVectorProvider(metric sift.DistanceMetric) *MockVectorProvider {
	return &MockVectorProvider{
		metric:  metric,
		records: make(map[uuid.UUID]sift.VectorRecord),
	}
}

// Upsert stores a copy of vector and metadata under id.
func (m *MockVectorProvider) Upsert(_ context.Context, id uuid.UUID, vector []float32, metadata []byte) error {
	if len(vector) == 0 {
		return sift.ErrInvalidVector
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.put(sift.VectorRecord{ID: id, Vector: vector, Metadata: metadata})
	return nil
}

// UpsertBatch stores every record.
func (m *MockVectorProvider) UpsertBatch(_ context.Context, records []sift.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if len(r.Vector) == 0 {
			return sift.ErrInvalidVector
		}
		m.put(r)
	}
	return nil
}

func (m *MockVectorProvider) put(r sift.VectorRecord) {
	if _, ok := m.records[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.records[r.ID] = sift.VectorRecord{
		ID:       r.ID,
		Vector:   append([]float32(nil), r.Vector...),
		Metadata: append([]byte(nil), r.Metadata...),
	}
}

// Get returns a copy of the stored vector.
func (m *MockVectorProvider) Get(_ context.Context, id uuid.UUID) ([]float32, *sift.VectorInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, nil, sift.ErrNotFound
	}
	return append([]float32(nil), r.Vector...), &sift.VectorInfo{
		ID:        id,
		Dimension: len(r.Vector),
		Metadata:  append([]byte(nil), r.Metadata...),
	}, nil
}

// Delete removes the record with id.
func (m *MockVectorProvider) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return sift.ErrNotFound
	}
	m.remove(id)
	return nil
}

// DeleteBatch removes every listed record. Missing IDs are ignored.
func (m *MockVectorProvider) DeleteBatch(_ context.Context, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		m.remove(id)
	}
	return nil
}

func (m *MockVectorProvider) remove(id uuid.UUID) {
	if _, ok := m.records[id]; !ok {
		return
	}
	delete(m.records, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Search returns the k records closest to vector whose metadata holds every
// filter entry.
func (m *MockVectorProvider) Search(_ context.Context, vector []float32, k int, filter map[string]any) ([]sift.VectorResult, error) {
	return m.nearest(vector, k, func(meta map[string]any) (bool, error) {
		for key, want := range filter {
			if !equal(meta[key], want) {
				return false, nil
			}
		}
		return true, nil
	})
}

// Query returns the k records closest to vector that match filter.
func (m *MockVectorProvider) Query(_ context.Context, vector []float32, k int, filter *vecna.Filter) ([]sift.VectorResult, error) {
	return m.nearest(vector, k, matcher(filter))
}

// Filter returns records matching filter in insertion order.
func (m *MockVectorProvider) Filter(_ context.Context, filter *vecna.Filter, limit int) ([]sift.VectorResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match := matcher(filter)
	var out []sift.VectorResult
	for _, id := range m.order {
		r := m.records[id]
		ok, err := match(decode(r.Metadata))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, sift.VectorResult{ID: id, Vector: r.Vector, Metadata: r.Metadata})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// List returns stored IDs in insertion order.
func (m *MockVectorProvider) List(_ context.Context, limit int) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.order)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]uuid.UUID(nil), m.order[:n]...), nil
}

// Exists reports whether id is stored.
func (m *MockVectorProvider) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.records[id]
	return ok, nil
}

// Reset clears all stored records.
func (m *MockVectorProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[uuid.UUID]sift.VectorRecord)
	m.order = nil
}

func (m *MockVectorProvider) nearest(vector []float32, k int, match func(map[string]any) (bool, error)) ([]sift.VectorResult, error) {
	if len(vector) == 0 {
		return nil, sift.ErrInvalidVector
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", sift.ErrInvalidQuery, k)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []sift.VectorResult
	for _, id := range m.order {
		r := m.records[id]
		ok, err := match(decode(r.Metadata))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		score, err := Distance(m.metric, r.Vector, vector)
		if err != nil {
			return nil, err
		}
		out = append(out, sift.VectorResult{ID: id, Vector: r.Vector, Metadata: r.Metadata, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Distance scores a against b with metric. Unknown metrics score as L2.
// Returns sift.ErrDimensionMismatch for vectors of different length.
func Distance(metric sift.DistanceMetric, a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", sift.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, sum, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		d := x - y
		sum += d * d
		dot += x * y
		na += x * x
		nb += y * y
	}

	switch metric {
	case sift.DistanceCosine:
		if na == 0 || nb == 0 {
			return math.NaN(), nil
		}
		return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
	case sift.DistanceInnerProduct:
		return -dot, nil
	default:
		return math.Sqrt(sum), nil
	}
}

func matcher(f *vecna.Filter) func(map[string]any) (bool, error) {
	return func(meta map[string]any) (bool, error) {
		return match(f, meta)
	}
}

func match(f *vecna.Filter, meta map[string]any) (bool, error) {
	if f == nil {
		return true, nil
	}
	if err := f.Err(); err != nil {
		return false, fmt.Errorf("%w: %v", sift.ErrInvalidQuery, err)
	}

	switch f.Op() {
	case vecna.Eq:
		return equal(meta[f.Field()], f.Value()), nil
	case vecna.And:
		for _, child := range f.Children() {
			ok, err := match(child, meta)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: %v", sift.ErrOperatorNotSupported, f.Op())
	}
}

func decode(data []byte) map[string]any {
	var m map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &m)
	}
	return m
}

// equal compares a decoded JSON value with a filter value by their text.
func equal(got, want any) bool {
	if got == nil {
		return false
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

// Ensure MockVectorProvider implements sift.VectorProvider.
var _ sift.VectorProvider = (*MockVectorProvider)(nil)

// CapturedEvent represents an event captured during testing.
type CapturedEvent struct {
	Signal    capitan.Signal
	Fields    []capitan.Field
	Timestamp time.Time
}

// EventCapture captures sift events for verification in tests.
type EventCapture struct {
	events []CapturedEvent
	mu     sync.Mutex
}

// NewEventCapture creates a new event capture utility.
func NewEventCapture() *EventCapture {
	return &EventCapture{
		events: make([]CapturedEvent, 0),
	}
}

// Handler returns a capitan.EventCallback that captures events.
func (c *EventCapture) Handler() capitan.EventCallback {
	return func(_ context.Context, e *capitan.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.events = append(c.events, CapturedEvent{
			Signal:    e.Signal(),
			Fields:    e.Fields(),
			Timestamp: time.Now(),
		})
	}
}

// Events returns a copy of all captured events.
func (c *EventCapture) Events() []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]CapturedEvent, len(c.events))
	copy(result, c.events)
	return result
}

// Count returns the number of captured events.
func (c *EventCapture) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.events)
}

// Reset clears all captured events.
func (c *EventCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = make([]CapturedEvent, 0)
}

// WaitForCount blocks until n events are captured or timeout elapses.
func (c *EventCapture) WaitForCount(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Count() >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return c.Count() >= n
}

// EventsBySignal returns events filtered by signal.
func (c *EventCapture) EventsBySignal(sig capitan.Signal) []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]CapturedEvent, 0)
	for _, e := range c.events {
		if e.Signal == sig {
			result = append(result, e)
		}
	}
	return result
}
