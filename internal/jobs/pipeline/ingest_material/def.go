package ingest_material

import (
	"context"

	matrepo "github.com/yungbote/exampaper-backend/internal/data/repos/materials"
	ingestion "github.com/yungbote/exampaper-backend/internal/modules/ingestion/pipeline"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/objectstore"
)

const JobType = "ingest_material"

// Ingester is the ingestion pipeline entry point.
type Ingester interface {
	Ingest(ctx context.Context, req ingestion.Request) ingestion.Result
}

type Pipeline struct {
	log       *logger.Logger
	materials matrepo.MaterialRepo
	blobs     objectstore.Store
	ingest    Ingester
	// maxBlobBytes caps how much of the stored object is read; the pipeline
	// applies its own admission limit on top.
	maxBlobBytes int64
}

func New(baseLog *logger.Logger, materials matrepo.MaterialRepo, blobs objectstore.Store, ingest Ingester, maxBlobBytes int64) *Pipeline {
	return &Pipeline{
		log:          baseLog.With("job", JobType),
		materials:    materials,
		blobs:        blobs,
		ingest:       ingest,
		maxBlobBytes: maxBlobBytes,
	}
}

func (p *Pipeline) Type() string { return JobType }
