package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/exampaper-backend/internal/platform/ctxutil"
	"github.com/yungbote/exampaper-backend/internal/platform/httpx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/vectorstore"
)

const (
	ProviderName      = "chroma"
	maxErrorBodyBytes = 1024
	apiPrefix         = "/api/v1"
)

// store talks to the Chroma v1 REST API. Collections are created under the
// caller's name; Chroma's own collection uuid, which the record endpoints
// require, is looked up once per name and cached.
type store struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client

	mu  sync.RWMutex
	ids map[string]string
}

type collectionResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

func NewStore(log *logger.Logger, cfg Config) (vectorstore.Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &store{
		log:  log.With("service", "ChromaStore"),
		cfg:  cfg,
		http: &http.Client{},
		ids:  map[string]string{},
	}, nil
}

func (s *store) Provider() string { return ProviderName }

// Heartbeat checks the server is reachable.
func (s *store) Heartbeat(ctx context.Context) error {
	return s.doJSON(ctx, "heartbeat", s.cfg.Timeout, http.MethodGet, apiPrefix+"/heartbeat", nil, nil)
}

func (s *store) CreateCollection(ctx context.Context, name string, metadata map[string]any) error {
	const op = "create_collection"
	name = strings.TrimSpace(name)
	if name == "" {
		return opErr(op, OperationErrorValidation, "collection name is required", nil)
	}
	req := map[string]any{
		"name":     name,
		"metadata": vectorstore.ScalarMetadata(metadata),
	}
	var out collectionResponse
	if err := s.doJSON(ctx, op, s.cfg.Timeout, http.MethodPost, apiPrefix+"/collections", req, &out); err != nil {
		return err
	}
	if out.ID != "" {
		s.remember(name, out.ID)
	}
	s.log.Info("Chroma collection created", "collection", name, "chroma_id", out.ID)
	return nil
}

func (s *store) GetCollection(ctx context.Context, name string) (vectorstore.CollectionInfo, error) {
	const op = "get_collection"
	var out collectionResponse
	path := apiPrefix + "/collections/" + url.PathEscape(strings.TrimSpace(name))
	if err := s.doJSON(ctx, op, s.cfg.Timeout, http.MethodGet, path, nil, &out); err != nil {
		return vectorstore.CollectionInfo{}, err
	}
	if out.ID == "" {
		return vectorstore.CollectionInfo{}, &OperationError{
			Code: OperationErrorNotFound, Operation: op, Collection: name,
			Message: "empty collection response", Cause: vectorstore.ErrCollectionNotFound,
		}
	}
	s.remember(name, out.ID)
	return vectorstore.CollectionInfo{Name: out.Name, ID: out.ID, Metadata: out.Metadata}, nil
}

func (s *store) Count(ctx context.Context, name string) (int, error) {
	id, err := s.resolve(ctx, name)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.doJSON(ctx, "count", s.cfg.Timeout, http.MethodGet, recordsPath(id, "/count"), nil, &n); err != nil {
		return 0, s.dropOnMissing(name, err)
	}
	return n, nil
}

func (s *store) Upsert(ctx context.Context, name string, records []vectorstore.Record) error {
	const op = "upsert"
	if len(records) == 0 {
		return nil
	}
	if err := vectorstore.ValidateRecords(records, 0); err != nil {
		return opErr(op, OperationErrorValidation, err.Error(), nil)
	}
	id, err := s.resolve(ctx, name)
	if err != nil {
		return err
	}
	req := struct {
		IDs        []string         `json:"ids"`
		Embeddings [][]float32      `json:"embeddings"`
		Documents  []string         `json:"documents"`
		Metadatas  []map[string]any `json:"metadatas"`
	}{}
	for _, r := range records {
		req.IDs = append(req.IDs, r.ID)
		req.Embeddings = append(req.Embeddings, r.Vector)
		req.Documents = append(req.Documents, r.Text)
		req.Metadatas = append(req.Metadatas, vectorstore.ScalarMetadata(r.Metadata))
	}
	if err := s.doJSON(ctx, op, s.cfg.Timeout, http.MethodPost, recordsPath(id, "/upsert"), req, nil); err != nil {
		return s.dropOnMissing(name, err)
	}
	return nil
}

func (s *store) Query(ctx context.Context, name string, vector []float32, k int) ([]vectorstore.Match, error) {
	const op = "query"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector is required", nil)
	}
	if k <= 0 {
		k = 5
	}
	id, err := s.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	req := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var out struct {
		IDs       [][]string         `json:"ids"`
		Documents [][]*string        `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]float64        `json:"distances"`
	}
	if err := s.doJSON(ctx, op, s.cfg.QueryTimeout, http.MethodPost, recordsPath(id, "/query"), req, &out); err != nil {
		return nil, s.dropOnMissing(name, err)
	}
	if len(out.IDs) == 0 {
		return nil, nil
	}
	matches := make([]vectorstore.Match, 0, len(out.IDs[0]))
	for i, rid := range out.IDs[0] {
		m := vectorstore.Match{ID: rid}
		if len(out.Documents) > 0 && i < len(out.Documents[0]) && out.Documents[0][i] != nil {
			m.Text = *out.Documents[0][i]
		}
		if len(out.Metadatas) > 0 && i < len(out.Metadatas[0]) {
			m.Metadata = out.Metadatas[0][i]
		}
		if len(out.Distances) > 0 && i < len(out.Distances[0]) {
			m.Score = 1.0 / (1.0 + out.Distances[0][i])
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *store) GetAll(ctx context.Context, name string) ([]vectorstore.Record, error) {
	const op = "get"
	id, err := s.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	var all []vectorstore.Record
	for offset := 0; ; offset += s.cfg.GetPageSize {
		req := map[string]any{
			"include": []string{"documents", "metadatas"},
			"limit":   s.cfg.GetPageSize,
			"offset":  offset,
		}
		var out struct {
			IDs       []string         `json:"ids"`
			Documents []*string        `json:"documents"`
			Metadatas []map[string]any `json:"metadatas"`
		}
		if err := s.doJSON(ctx, op, s.cfg.QueryTimeout, http.MethodPost, recordsPath(id, "/get"), req, &out); err != nil {
			return nil, s.dropOnMissing(name, err)
		}
		for i, rid := range out.IDs {
			r := vectorstore.Record{ID: rid}
			if i < len(out.Documents) && out.Documents[i] != nil {
				r.Text = *out.Documents[i]
			}
			if i < len(out.Metadatas) {
				r.Metadata = out.Metadatas[i]
			}
			all = append(all, r)
		}
		if len(out.IDs) < s.cfg.GetPageSize {
			return all, nil
		}
	}
}

func (s *store) resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	s.mu.RLock()
	id, ok := s.ids[name]
	s.mu.RUnlock()
	if ok {
		return id, nil
	}
	info, err := s.GetCollection(ctx, name)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (s *store) remember(name, id string) {
	s.mu.Lock()
	s.ids[name] = id
	s.mu.Unlock()
}

// dropOnMissing evicts a cached id once the server no longer knows it, so a
// recreated collection is looked up again.
func (s *store) dropOnMissing(name string, err error) error {
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		s.mu.Lock()
		delete(s.ids, strings.TrimSpace(name))
		s.mu.Unlock()
	}
	return err
}

func recordsPath(id, suffix string) string {
	return apiPrefix + "/collections/" + url.PathEscape(id) + suffix
}

func (s *store) doJSON(ctx context.Context, op string, timeout time.Duration, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	callCtx, cancel := ctxutil.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, s.cfg.URL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "chroma request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := httpx.TruncateBody(raw, maxErrorBodyBytes)
		if isNotFound(resp.StatusCode, detail) {
			return &OperationError{
				Code: OperationErrorNotFound, Operation: op, StatusCode: resp.StatusCode,
				Message: detail, Cause: vectorstore.ErrCollectionNotFound,
			}
		}
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Chroma %s failed (HTTP %d) %s", op, resp.StatusCode, detail),
		}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode chroma response failed", err)
	}
	return nil
}

// Older Chroma servers answer a missing collection with a 500 whose body
// names the problem.
func isNotFound(status int, body string) bool {
	if status == http.StatusNotFound {
		return true
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "does not exist") || strings.Contains(lower, "not found")
}

func classifyHTTPCallError(op, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}
