package ingest_material

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	jobrepo "github.com/yungbote/exampaper-backend/internal/data/repos/jobs"
	matrepo "github.com/yungbote/exampaper-backend/internal/data/repos/materials"
	"github.com/yungbote/exampaper-backend/internal/data/repos/testutil"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	jobrt "github.com/yungbote/exampaper-backend/internal/jobs/runtime"
	ingestion "github.com/yungbote/exampaper-backend/internal/modules/ingestion/pipeline"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/objectstore"
)

type fakeIngester struct {
	got ingestion.Request
	res ingestion.Result
}

func (f *fakeIngester) Ingest(ctx context.Context, req ingestion.Request) ingestion.Result {
	f.got = req
	return f.res
}

func setup(t *testing.T, res ingestion.Result) (*Pipeline, *fakeIngester, matrepo.MaterialRepo, jobrepo.JobRunRepo, *types.Material) {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	blobs, err := objectstore.NewFSStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	mat := testutil.SeedMaterial(t, ctx, db, "col-1")
	body := []byte("%PDF-1.4 fake")
	if err := blobs.Put(ctx, mat.StorageKey, bytes.NewReader(body), int64(len(body)), "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ing := &fakeIngester{res: res}
	materials := matrepo.NewMaterialRepo(db, log)
	return New(log, materials, blobs, ing, 0), ing, materials, jobrepo.NewJobRunRepo(db, log), mat
}

func runJob(t *testing.T, p *Pipeline, repo jobrepo.JobRunRepo, payload map[string]any) *types.JobRun {
	t.Helper()
	raw, _ := json.Marshal(payload)
	job := &types.JobRun{ID: uuid.New(), JobType: JobType, Status: types.JobStatusRunning, Stage: "running", Payload: datatypes.JSON(raw)}
	if _, err := repo.Create(dbctx.Context{Ctx: context.Background()}, []*types.JobRun{job}); err != nil {
		t.Fatalf("create job: %v", err)
	}
	jc := jobrt.NewContext(context.Background(), job, repo)
	if err := p.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	stored, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload job: %v", err)
	}
	return stored
}

func TestRunRecordsDoneOnMaterial(t *testing.T) {
	p, ing, materials, repo, mat := setup(t, ingestion.Result{State: ingestion.StateDone, Segments: 50, CollectionID: "col-1"})

	job := runJob(t, p, repo, map[string]any{"material_id": mat.ID.String()})
	if job.Status != types.JobStatusSucceeded || job.Stage != "ingested" {
		t.Fatalf("job: status=%s stage=%s err=%s", job.Status, job.Stage, job.Error)
	}
	var res ingestion.Result
	if err := json.Unmarshal(job.Result, &res); err != nil || res.Segments != 50 {
		t.Fatalf("job result: %s err=%v", string(job.Result), err)
	}

	if ing.got.CollectionID != "col-1" || string(ing.got.Data) != "%PDF-1.4 fake" || ing.got.Metadata["materialId"] != mat.ID.String() {
		t.Fatalf("ingest request: got=%+v", ing.got)
	}

	got, _ := materials.GetByID(dbctx.Context{Ctx: context.Background()}, mat.ID)
	if got.IngestStatus != types.IngestStatusDone || got.Segments != 50 || got.IngestedAt == nil {
		t.Fatalf("material: got=%+v", got)
	}
}

func TestRunRecordsFailedIngestionWithoutFailingJob(t *testing.T) {
	p, _, materials, repo, mat := setup(t, ingestion.Result{State: ingestion.StateFailed, Error: "PDF appears to be corrupted or invalid"})

	job := runJob(t, p, repo, map[string]any{"material_id": mat.ID.String()})
	if job.Status != types.JobStatusSucceeded {
		t.Fatalf("deterministic ingestion failures must not be retried: status=%s", job.Status)
	}
	got, _ := materials.GetByID(dbctx.Context{Ctx: context.Background()}, mat.ID)
	if got.IngestStatus != types.IngestStatusFailed || got.IngestError == "" || got.IngestedAt != nil {
		t.Fatalf("material: got=%+v", got)
	}
}

func TestRunFailsJobOnBadInput(t *testing.T) {
	p, _, _, repo, _ := setup(t, ingestion.Result{State: ingestion.StateDone})

	job := runJob(t, p, repo, map[string]any{})
	if job.Status != types.JobStatusFailed || job.Stage != "validate" {
		t.Fatalf("missing id: status=%s stage=%s", job.Status, job.Stage)
	}
	job = runJob(t, p, repo, map[string]any{"material_id": uuid.New().String()})
	if job.Status != types.JobStatusFailed || job.Stage != "load_material" {
		t.Fatalf("unknown material: status=%s stage=%s", job.Status, job.Stage)
	}
}

func TestRunFailsJobWhenBlobMissing(t *testing.T) {
	p, _, materials, repo, mat := setup(t, ingestion.Result{State: ingestion.StateDone})
	if err := materials.UpdateFields(dbctx.Context{Ctx: context.Background()}, mat.ID, map[string]interface{}{"storage_key": "materials/gone.pdf"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	job := runJob(t, p, repo, map[string]any{"material_id": mat.ID.String()})
	if job.Status != types.JobStatusFailed || job.Stage != "load_blob" {
		t.Fatalf("status=%s stage=%s", job.Status, job.Stage)
	}
}
