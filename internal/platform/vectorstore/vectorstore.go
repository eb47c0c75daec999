package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrCollectionNotFound is returned (wrapped) by Store implementations when
// the named collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Store is the contract every vector backend implements. Collections are
// addressed by a single opaque name; backends that keep a separate internal
// id resolve it themselves.
type Store interface {
	Provider() string
	CreateCollection(ctx context.Context, name string, metadata map[string]any) error
	GetCollection(ctx context.Context, name string) (CollectionInfo, error)
	Count(ctx context.Context, name string) (int, error)
	Upsert(ctx context.Context, name string, records []Record) error
	// Query returns the k nearest records, best first.
	Query(ctx context.Context, name string, vector []float32, k int) ([]Match, error)
	// GetAll returns every record without vectors, in backend order.
	GetAll(ctx context.Context, name string) ([]Record, error)
}

type CollectionInfo struct {
	Name     string
	ID       string
	Metadata map[string]any
}

type Record struct {
	ID       string
	Text     string
	Metadata map[string]any
	Vector   []float32
}

type Match struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]any
}

// ValidateRecords checks ids, vectors and an optional fixed dimension.
func ValidateRecords(records []Record, dim int) error {
	for _, r := range records {
		if r.ID == "" {
			return errors.New("record id is required")
		}
		if len(r.Vector) == 0 {
			return fmt.Errorf("record %q has an empty vector", r.ID)
		}
		if dim > 0 && len(r.Vector) != dim {
			return fmt.Errorf("record %q dimension mismatch: expected=%d got=%d", r.ID, dim, len(r.Vector))
		}
	}
	return nil
}

// ScalarMetadata flattens metadata into values every backend accepts:
// strings, bools, ints and floats. Anything else is formatted.
func ScalarMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := in[k].(type) {
		case nil:
		case string, bool, int, int32, int64, float32, float64:
			out[k] = v
		case uint, uint32, uint64:
			out[k] = fmt.Sprint(v)
		default:
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
