package qdrant

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

	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/platform/ctxutil"
	"github.com/yungbote/exampaper-backend/internal/platform/httpx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/vectorstore"
)

const (
	ProviderName      = "qdrant"
	payloadDocIDKey   = "_doc_id"
	payloadTextKey    = "_text"
	maxErrorBodyBytes = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("0f1705d1-2c3f-4e40-b2f4-f855f7d3c8e8")

// store maps one material collection onto one Qdrant collection. Qdrant point
// ids must be uuids, so document ids are hashed and the original id rides in
// the payload next to the text.
type store struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
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
		log:  log.With("service", "QdrantStore"),
		cfg:  cfg,
		http: &http.Client{},
	}, nil
}

func (s *store) Provider() string { return ProviderName }

// Heartbeat checks /readyz.
func (s *store) Heartbeat(ctx context.Context) error {
	const op = "readyz"
	callCtx, cancel := ctxutil.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, s.cfg.URL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode,
			Message: fmt.Sprintf("qdrant ready check returned status=%d", resp.StatusCode),
		}
	}
	return nil
}

func (s *store) CreateCollection(ctx context.Context, name string, metadata map[string]any) error {
	const op = "create_collection"
	if strings.TrimSpace(name) == "" {
		return opErr(op, OperationErrorValidation, "collection name is required", nil)
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.cfg.VectorDim,
			"distance": s.cfg.Distance,
		},
		"metadata": vectorstore.ScalarMetadata(metadata),
	}
	if err := s.doJSON(ctx, op, http.MethodPut, collectionPath(name, ""), req, nil); err != nil {
		return err
	}
	s.log.Info("Qdrant collection created", "collection", name, "vector_dim", s.cfg.VectorDim)
	return nil
}

func (s *store) GetCollection(ctx context.Context, name string) (vectorstore.CollectionInfo, error) {
	var out struct {
		Status string `json:"status"`
		Config struct {
			Metadata map[string]any `json:"metadata"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, "get_collection", http.MethodGet, collectionPath(name, ""), nil, &out); err != nil {
		return vectorstore.CollectionInfo{}, err
	}
	return vectorstore.CollectionInfo{Name: name, ID: name, Metadata: out.Config.Metadata}, nil
}

func (s *store) Count(ctx context.Context, name string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := s.doJSON(ctx, "count", http.MethodPost, collectionPath(name, "/points/count"), map[string]any{"exact": true}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (s *store) Upsert(ctx context.Context, name string, records []vectorstore.Record) error {
	const op = "upsert"
	if len(records) == 0 {
		return nil
	}
	if err := vectorstore.ValidateRecords(records, s.cfg.VectorDim); err != nil {
		return opErr(op, OperationErrorValidation, err.Error(), nil)
	}
	points := make([]map[string]any, 0, len(records))
	for _, r := range records {
		payload := vectorstore.ScalarMetadata(r.Metadata)
		payload[payloadDocIDKey] = r.ID
		payload[payloadTextKey] = r.Text
		points = append(points, map[string]any{
			"id":      pointID(name, r.ID),
			"vector":  r.Vector,
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, collectionPath(name, "/points?wait=true"), map[string]any{"points": points}, nil)
}

func (s *store) Query(ctx context.Context, name string, vector []float32, k int) ([]vectorstore.Match, error) {
	const op = "query"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector is required", nil)
	}
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var items []scoredPoint
	if err := s.doJSON(ctx, op, http.MethodPost, collectionPath(name, "/points/search"), req, &items); err != nil {
		return nil, err
	}
	out := make([]vectorstore.Match, 0, len(items))
	for _, it := range items {
		id, text, meta := splitPayload(it.ID, it.Payload)
		out = append(out, vectorstore.Match{ID: id, Text: text, Score: s.normalizeScore(it.Score), Metadata: meta})
	}
	return out, nil
}

func (s *store) GetAll(ctx context.Context, name string) ([]vectorstore.Record, error) {
	var all []vectorstore.Record
	var offset any
	for {
		req := map[string]any{
			"limit":        s.cfg.ScrollPageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var out struct {
			Points         []scoredPoint `json:"points"`
			NextPageOffset any           `json:"next_page_offset"`
		}
		if err := s.doJSON(ctx, "scroll", http.MethodPost, collectionPath(name, "/points/scroll"), req, &out); err != nil {
			return nil, err
		}
		for _, p := range out.Points {
			id, text, meta := splitPayload(p.ID, p.Payload)
			all = append(all, vectorstore.Record{ID: id, Text: text, Metadata: meta})
		}
		if out.NextPageOffset == nil || len(out.Points) == 0 {
			return all, nil
		}
		offset = out.NextPageOffset
	}
}

func (s *store) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	callCtx, cancel := ctxutil.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, s.cfg.URL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode == http.StatusNotFound {
		return &OperationError{
			Code: OperationErrorNotFound, Operation: op, StatusCode: resp.StatusCode,
			Message: httpx.TruncateBody(raw, maxErrorBodyBytes), Cause: vectorstore.ErrCollectionNotFound,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, httpx.TruncateBody(raw, maxErrorBodyBytes)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(env.Status); statusErr != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: statusErr}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
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

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.EqualFold(asString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", asString)
	}
	var asObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil && strings.TrimSpace(asObject.Error) != "" {
		return strings.TrimSpace(asObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func splitPayload(rawID json.RawMessage, payload map[string]any) (id, text string, meta map[string]any) {
	meta = make(map[string]any, len(payload))
	for k, v := range payload {
		switch k {
		case payloadDocIDKey:
			id, _ = v.(string)
		case payloadTextKey:
			text, _ = v.(string)
		default:
			meta[k] = v
		}
	}
	if id == "" {
		id = decodePointID(rawID)
	}
	return id, text, meta
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return fmt.Sprintf("%d", asNumber)
	}
	return strings.TrimSpace(string(raw))
}

func pointID(collection, docID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(collection+"|"+docID)).String()
}

func collectionPath(name, suffix string) string {
	return "/collections/" + url.PathEscape(strings.TrimSpace(name)) + suffix
}

func (s *store) normalizeScore(score float64) float64 {
	switch strings.ToLower(s.cfg.Distance) {
	case "euclid", "manhattan":
		if score < 0 {
			score = -score
		}
		return 1.0 / (1.0 + score)
	default:
		return score
	}
}
