package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/exampaper-backend/internal/data/repos/testutil"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
)

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Of(context.Background())
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()

	queued := newJob("ingest_material", types.JobStatusQueued, now.Add(-3*time.Hour))
	failed := newJob("ingest_material", types.JobStatusFailed, now.Add(-2*time.Hour))
	failed.LastErrorAt = testutil.PtrTime(now.Add(-2 * time.Hour))
	exhausted := newJob("ingest_material", types.JobStatusFailed, now.Add(-150*time.Minute))
	exhausted.Attempts = 3
	staleRunning := newJob("ingest_material", types.JobStatusRunning, now.Add(-1*time.Hour))
	staleRunning.HeartbeatAt = testutil.PtrTime(now.Add(-10 * time.Hour))
	freshRunning := newJob("ingest_material", types.JobStatusRunning, now.Add(-4*time.Hour))
	freshRunning.HeartbeatAt = testutil.PtrTime(now)

	created, err := repo.Create(dbc, []*types.JobRun{queued, failed, exhausted, staleRunning, freshRunning})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 5 {
		t.Fatalf("Create: want=5 got=%d", len(created))
	}

	// ClaimNextRunnable walks the runnable set in created_at ASC order and
	// skips exhausted failures and healthy running jobs.
	for i, want := range []uuid.UUID{queued.ID, failed.ID, staleRunning.ID} {
		claimed, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour)
		if err != nil {
			t.Fatalf("ClaimNextRunnable #%d: %v", i+1, err)
		}
		if claimed == nil || claimed.ID != want {
			t.Fatalf("ClaimNextRunnable #%d: want=%v got=%v", i+1, want, claimed)
		}
		if claimed.Status != types.JobStatusRunning {
			t.Fatalf("ClaimNextRunnable #%d: status want=running got=%s", i+1, claimed.Status)
		}
	}
	if claimed, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour); err != nil || claimed != nil {
		t.Fatalf("ClaimNextRunnable #4: want nil got=%v err=%v", claimed, err)
	}

	got, err := repo.GetByID(dbc, queued.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if got.Attempts != 1 || got.LockedAt == nil {
		t.Fatalf("claimed row: attempts=%d locked=%v", got.Attempts, got.LockedAt)
	}

	if err := repo.UpdateFields(dbc, queued.ID, map[string]interface{}{
		"status": types.JobStatusSucceeded,
		"stage":  "done",
		"result": datatypes.JSON([]byte(`{"segments":50}`)),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if err := repo.Heartbeat(dbc, failed.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	got, _ = repo.GetByID(dbc, queued.ID)
	if got.Status != types.JobStatusSucceeded || string(got.Result) != `{"segments":50}` {
		t.Fatalf("UpdateFields: status=%s result=%s", got.Status, got.Result)
	}
}

func TestJobRunRepoEntityLookups(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Of(context.Background())
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	materialID := uuid.New()
	older := newJob("ingest_material", types.JobStatusSucceeded, now.Add(-5*time.Hour))
	older.EntityType, older.EntityID = "material", &materialID
	newer := newJob("ingest_material", types.JobStatusQueued, now.Add(-4*time.Hour))
	newer.EntityType, newer.EntityID = "material", &materialID
	if _, err := repo.Create(dbc, []*types.JobRun{older, newer}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	latest, err := repo.GetLatestByEntity(dbc, "material", materialID, "ingest_material")
	if err != nil || latest == nil || latest.ID != newer.ID {
		t.Fatalf("GetLatestByEntity: want=%v got=%v err=%v", newer.ID, latest, err)
	}
	has, err := repo.HasRunnableForEntity(dbc, "material", materialID, "ingest_material")
	if err != nil || !has {
		t.Fatalf("HasRunnableForEntity: want true got=%v err=%v", has, err)
	}
	has, err = repo.HasRunnableForEntity(dbc, "material", materialID, "other")
	if err != nil || has {
		t.Fatalf("HasRunnableForEntity other type: want false got=%v err=%v", has, err)
	}
}

func newJob(jobType, status string, createdAt time.Time) *types.JobRun {
	return &types.JobRun{
		ID:        uuid.New(),
		JobType:   jobType,
		Status:    status,
		Stage:     status,
		Payload:   datatypes.JSON([]byte("{}")),
		Result:    datatypes.JSON([]byte("{}")),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}
