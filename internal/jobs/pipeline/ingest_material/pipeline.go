package ingest_material

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/exampaper-backend/internal/domain"
	jobrt "github.com/yungbote/exampaper-backend/internal/jobs/runtime"
	ingestion "github.com/yungbote/exampaper-backend/internal/modules/ingestion/pipeline"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/objectstore"
)

// Run loads the uploaded blob and feeds it to the ingestion pipeline. Any
// ingestion outcome, including SKIPPED and FAILED, completes the job; only
// infrastructure problems before ingestion fail it.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	materialID, ok := jc.PayloadUUID("material_id")
	if !ok || materialID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing material_id"))
		return nil
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	mat, err := p.materials.GetByID(dbc, materialID)
	if err != nil {
		jc.Fail("load_material", err)
		return nil
	}
	if mat == nil {
		jc.Fail("load_material", fmt.Errorf("material %s not found", materialID))
		return nil
	}
	if mat.CollectionID == "" {
		jc.Fail("validate", fmt.Errorf("material %s has no collection", materialID))
		return nil
	}
	log := p.log.With("material_id", mat.ID, "collection_id", mat.CollectionID)

	jc.Progress("load_blob", 10)
	data, err := objectstore.ReadAll(jc.Ctx, p.blobs, mat.StorageKey, p.maxBlobBytes)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			log.Warn("Material blob missing", "storage_key", mat.StorageKey)
		}
		jc.Fail("load_blob", fmt.Errorf("read %s: %w", mat.StorageKey, err))
		return nil
	}

	jc.Progress("ingest", 30)
	res := p.ingest.Ingest(jc.Ctx, ingestion.Request{
		CollectionID: mat.CollectionID,
		Data:         data,
		Filename:     mat.OriginalName,
		MimeType:     mat.MimeType,
		SizeBytes:    mat.SizeBytes,
		Metadata: map[string]any{
			"materialId": mat.ID.String(),
			"teacherId":  mat.TeacherID,
			"class":      mat.ClassName,
			"subject":    mat.Subject,
		},
	})

	now := time.Now()
	updates := map[string]interface{}{
		"ingest_status": materialStatus(res.State),
		"segments":      res.Segments,
		"ingest_error":  res.Error,
	}
	if res.State == ingestion.StateDone {
		updates["ingested_at"] = now
	}
	if err := p.materials.UpdateFields(dbc, mat.ID, updates); err != nil {
		jc.Fail("record_result", err)
		return nil
	}

	log.Info("Material ingestion recorded", "state", res.State, "segments", res.Segments)
	jc.Succeed("ingested", res)
	return nil
}

func materialStatus(s ingestion.State) string {
	switch s {
	case ingestion.StateDone:
		return types.IngestStatusDone
	case ingestion.StateSkipped:
		return types.IngestStatusSkipped
	default:
		return types.IngestStatusFailed
	}
}
