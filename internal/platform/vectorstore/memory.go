package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

const ProviderMemory = "memory"

// Memory is a process-local Store ranked by cosine similarity. It backs
// VECTOR_STORE_PROVIDER=memory for local runs and tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	metadata map[string]any
	order    []string
	records  map[string]Record
}

func NewMemory() *Memory {
	return &Memory{collections: map[string]*memCollection{}}
}

func (m *Memory) Provider() string { return ProviderMemory }

func (m *Memory) CreateCollection(ctx context.Context, name string, metadata map[string]any) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return nil
	}
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	m.collections[name] = &memCollection{metadata: meta, records: map[string]Record{}}
	return nil
}

func (m *Memory) get(name string) (*memCollection, error) {
	c, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrCollectionNotFound)
	}
	return c, nil
}

func (m *Memory) GetCollection(ctx context.Context, name string) (CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.get(name)
	if err != nil {
		return CollectionInfo{}, err
	}
	return CollectionInfo{Name: name, ID: name, Metadata: c.metadata}, nil
}

func (m *Memory) Count(ctx context.Context, name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.get(name)
	if err != nil {
		return 0, err
	}
	return len(c.order), nil
}

func (m *Memory) Upsert(ctx context.Context, name string, records []Record) error {
	if err := ValidateRecords(records, 0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.get(name)
	if err != nil {
		return err
	}
	for _, r := range records {
		if _, ok := c.records[r.ID]; !ok {
			c.order = append(c.order, r.ID)
		}
		r.Metadata = ScalarMetadata(r.Metadata)
		c.records[r.ID] = r
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, name string, vector []float32, k int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.get(name)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(c.order))
	for _, id := range c.order {
		r := c.records[id]
		out = append(out, Match{ID: r.ID, Text: r.Text, Metadata: r.Metadata, Score: cosine(vector, r.Vector)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *Memory) GetAll(ctx context.Context, name string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, err := m.get(name)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		r := c.records[id]
		r.Vector = nil
		out = append(out, r)
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
