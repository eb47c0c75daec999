package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/modules/ingestion/chunker"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/ctxutil"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/memguard"
	"github.com/yungbote/exampaper-backend/internal/platform/pdftext"
)

type State string

const (
	StateReceived       State = "RECEIVED"
	StateTextExtracted  State = "TEXT_EXTRACTED"
	StateChunked        State = "CHUNKED"
	StateBatchUpserting State = "BATCH_UPSERTING"
	StateDone           State = "DONE"
	StateSkipped        State = "SKIPPED"
	StateFailed         State = "FAILED"
)

const (
	MsgNotPDF   = "Not a PDF file"
	MsgTooLarge = "File too large"
	MsgEmpty    = "Empty file"
)

const (
	DefaultMaxBytes    int64 = 12 * 1024 * 1024
	DefaultMaxPages          = 80
	DefaultBatchSize         = 25
	DefaultChunkHeapMB       = 1500
	DefaultBatchHeapMB       = 1800
)

type Config struct {
	MaxBytes  int64
	MaxPages  int
	BatchSize int
	// Chunk carries size, overlap and the chunk cap. Its Guard is ignored;
	// the pipeline installs its own.
	Chunk       chunker.Options
	ChunkHeapMB float64
	BatchHeapMB float64
}

func (c Config) withDefaults() Config {
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ChunkHeapMB <= 0 {
		c.ChunkHeapMB = DefaultChunkHeapMB
	}
	if c.BatchHeapMB <= 0 {
		c.BatchHeapMB = DefaultBatchHeapMB
	}
	return c
}

// Upserter is the slice of the collection gateway ingestion writes through.
type Upserter interface {
	UpsertDocuments(ctx context.Context, collectionID string, docs []domain.Document) error
}

type Deps struct {
	Log       *logger.Logger
	Extractor pdftext.Extractor
	Upserter  Upserter
	Metrics   *observability.Metrics

	// ChunkGuard and BatchGuard default to heap guards built from Config.
	ChunkGuard memguard.Guard
	BatchGuard memguard.Guard
}

type Pipeline struct {
	log        *logger.Logger
	extractor  pdftext.Extractor
	upserter   Upserter
	metrics    *observability.Metrics
	chunkGuard memguard.Guard
	batchGuard memguard.Guard
	cfg        Config
}

type Request struct {
	CollectionID string
	Data         []byte
	Filename     string
	Metadata     map[string]any
	MimeType     string
	SizeBytes    int64
}

// Result is the whole outcome of one attempt. Failures are reported here and
// never as a Go error.
type Result struct {
	Segments          int     `json:"segments"`
	State             State   `json:"state"`
	Error             string  `json:"error,omitempty"`
	Details           string  `json:"details,omitempty"`
	TotalChunks       int     `json:"total_chunks"`
	SuccessfulBatches int     `json:"successful_batches"`
	FailedBatches     int     `json:"failed_batches"`
	CollectionID      string  `json:"collection_id"`
	HeapMB            float64 `json:"heap_mb"`
	Aborted           bool    `json:"aborted"`
	Pages             int     `json:"pages,omitempty"`
	Extractor         string  `json:"extractor,omitempty"`
}

func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Log == nil || deps.Extractor == nil || deps.Upserter == nil {
		return nil, fmt.Errorf("pipeline: log, extractor and upserter are required")
	}
	cfg = cfg.withDefaults()
	p := &Pipeline{
		log:        deps.Log.With("service", "IngestionPipeline"),
		extractor:  deps.Extractor,
		upserter:   deps.Upserter,
		metrics:    deps.Metrics,
		chunkGuard: deps.ChunkGuard,
		batchGuard: deps.BatchGuard,
		cfg:        cfg,
	}
	if p.chunkGuard == nil {
		p.chunkGuard = memguard.NewHeap(cfg.ChunkHeapMB)
	}
	if p.batchGuard == nil {
		p.batchGuard = memguard.NewHeap(cfg.BatchHeapMB)
	}
	return p, nil
}

func (p *Pipeline) Ingest(ctx context.Context, req Request) Result {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	res := p.ingest(ctx, req)
	p.metrics.ObserveIngestion(string(res.State), res.Segments)
	p.log.Info(
		"Ingestion finished",
		"collection_id", req.CollectionID,
		"filename", req.Filename,
		"state", res.State,
		"segments", res.Segments,
		"total_chunks", res.TotalChunks,
		"failed_batches", res.FailedBatches,
		"aborted", res.Aborted,
		"error", res.Error,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (p *Pipeline) ingest(ctx context.Context, req Request) Result {
	res := Result{State: StateReceived, CollectionID: req.CollectionID}
	log := p.log.With("collection_id", req.CollectionID, "filename", req.Filename)

	if msg, details := p.admit(req); msg != "" {
		log.Warn("Skipping ingestion", "reason", msg, "details", details)
		res.State, res.Error, res.Details = StateSkipped, msg, details
		return res
	}

	ext, err := p.extractor.Extract(ctx, req.Data, p.cfg.MaxPages)
	res.Pages, res.Extractor = ext.Pages, ext.Provider
	if err == nil && strings.TrimSpace(ext.Text) == "" {
		err = &pdftext.Error{Kind: pdftext.KindEmpty}
	}
	if err != nil {
		kind := pdftext.KindOf(err)
		log.Error("Text extraction failed", "kind", kind, "error", err)
		res.State, res.Error, res.Details = StateFailed, pdftext.Guidance(kind), err.Error()
		return res
	}
	res.State = StateTextExtracted
	log.Debug("Text extracted", "chars", len(ext.Text), "pages", ext.Pages, "pages_read", ext.PagesRead)

	opts := p.cfg.Chunk
	opts.Guard = p.chunkGuard
	chunks, st := chunker.ChunkWithStats(ext.Text, opts)
	ext.Text = ""
	res.State = StateChunked
	res.TotalChunks = len(chunks)
	if st.Truncated {
		log.Warn("Chunk cap reached; remaining text dropped", "kept", len(chunks))
	}
	if st.Aborted {
		log.Warn("Heap ceiling reached while chunking; keeping partial chunks", "kept", len(chunks), "heap_mb", st.HeapMB)
	}

	res.State = StateBatchUpserting
	p.upsertBatches(ctx, log, req, chunks, &res)
	res.Segments = res.SuccessfulBatches * p.cfg.BatchSize
	res.State = StateDone
	return res
}

func (p *Pipeline) admit(req Request) (string, string) {
	if !strings.Contains(strings.ToLower(req.MimeType), "pdf") {
		return MsgNotPDF, fmt.Sprintf("mime type %q", req.MimeType)
	}
	size := req.SizeBytes
	if size <= 0 {
		size = int64(len(req.Data))
	}
	if size > p.cfg.MaxBytes {
		return MsgTooLarge, fmt.Sprintf("%d bytes exceeds limit of %d", size, p.cfg.MaxBytes)
	}
	if len(req.Data) == 0 {
		return MsgEmpty, "zero-byte upload"
	}
	if !pdftext.IsPDF(req.Data) {
		return MsgNotPDF, "missing %PDF- header"
	}
	return "", ""
}

// upsertBatches writes chunks strictly one batch at a time. A failed batch is
// counted and skipped; heap pressure at a batch boundary ends the run.
func (p *Pipeline) upsertBatches(ctx context.Context, log *logger.Logger, req Request, chunks []domain.Chunk, res *Result) {
	size := p.cfg.BatchSize
	batches := (len(chunks) + size - 1) / size
	for start := 0; start < len(chunks); start += size {
		batchNumber := start/size + 1
		if mb, over := p.batchGuard.Check(); over {
			res.HeapMB = mb
			res.Aborted = true
			log.Warn("Heap ceiling reached; abandoning remaining batches", "heap_mb", mb, "batch", batchNumber, "batches", batches)
			p.metrics.IncIngestBatch("aborted")
			return
		}
		if ctx.Err() != nil {
			res.Aborted = true
			log.Warn("Context done; abandoning remaining batches", "error", ctx.Err(), "batch", batchNumber)
			return
		}

		end := min(start+size, len(chunks))
		docs := make([]domain.Document, 0, end-start)
		for i := start; i < end; i++ {
			meta := make(map[string]any, len(req.Metadata)+4)
			meta["filename"] = req.Filename
			for k, v := range req.Metadata {
				meta[k] = v
			}
			meta["idx"] = i
			meta["totalChunks"] = len(chunks)
			meta["batchNumber"] = batchNumber
			docs = append(docs, domain.Document{
				ID:       fmt.Sprintf("%s_%d", req.CollectionID, i),
				Text:     chunks[i].Text,
				Metadata: meta,
			})
		}

		if err := p.upserter.UpsertDocuments(ctx, req.CollectionID, docs); err != nil {
			res.FailedBatches++
			p.metrics.IncIngestBatch("failed")
			log.Error("Batch upsert failed; skipping", "batch", batchNumber, "batches", batches, "error", err)
			continue
		}
		res.SuccessfulBatches++
		p.metrics.IncIngestBatch("ok")
		log.Debug("Batch upserted", "batch", batchNumber, "batches", batches, "documents", len(docs))
	}
	res.HeapMB, _ = p.batchGuard.Check()
}
