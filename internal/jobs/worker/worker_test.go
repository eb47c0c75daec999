package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	jobrepo "github.com/yungbote/exampaper-backend/internal/data/repos/jobs"
	"github.com/yungbote/exampaper-backend/internal/data/repos/testutil"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/jobs/runtime"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
)

type funcHandler struct {
	typ string
	run func(jc *runtime.Context) error
}

func (h funcHandler) Type() string                 { return h.typ }
func (h funcHandler) Run(jc *runtime.Context) error { return h.run(jc) }

func newWorker(t *testing.T, handlers ...runtime.Handler) (*Worker, jobrepo.JobRunRepo) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := jobrepo.NewJobRunRepo(db, log)
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return NewWorker(log, repo, reg, nil, Config{}), repo
}

func enqueue(t *testing.T, repo jobrepo.JobRunRepo, jobType string) uuid.UUID {
	t.Helper()
	job := &types.JobRun{ID: uuid.New(), JobType: jobType, Status: types.JobStatusQueued, Stage: "queued"}
	if _, err := repo.Create(dbctx.Context{Ctx: context.Background()}, []*types.JobRun{job}); err != nil {
		t.Fatalf("create: %v", err)
	}
	return job.ID
}

func reload(t *testing.T, repo jobrepo.JobRunRepo, id uuid.UUID) *types.JobRun {
	t.Helper()
	job, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil || job == nil {
		t.Fatalf("reload: %v", err)
	}
	return job
}

func TestRunOnceEmptyQueue(t *testing.T) {
	w, _ := newWorker(t)
	ran, err := w.RunOnce(context.Background())
	if err != nil || ran {
		t.Fatalf("empty queue: ran=%v err=%v", ran, err)
	}
}

func TestRunOnceAutoSucceeds(t *testing.T) {
	var gotPayload map[string]any
	w, repo := newWorker(t, funcHandler{typ: "noop", run: func(jc *runtime.Context) error {
		gotPayload = jc.Payload()
		jc.Progress("working", 50)
		return nil
	}})
	id := enqueue(t, repo, "noop")

	ran, err := w.RunOnce(context.Background())
	if err != nil || !ran {
		t.Fatalf("RunOnce: ran=%v err=%v", ran, err)
	}
	if gotPayload == nil {
		t.Fatalf("payload should be an empty map, not nil")
	}
	job := reload(t, repo, id)
	if job.Status != types.JobStatusSucceeded || job.Progress != 100 || job.Attempts != 1 {
		t.Fatalf("job: status=%s progress=%d attempts=%d", job.Status, job.Progress, job.Attempts)
	}
}

func TestRunOnceRecordsHandlerError(t *testing.T) {
	w, repo := newWorker(t, funcHandler{typ: "boom", run: func(jc *runtime.Context) error {
		return errors.New("store unavailable")
	}})
	id := enqueue(t, repo, "boom")

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	job := reload(t, repo, id)
	if job.Status != types.JobStatusFailed || job.Stage != "run" || job.Error != "store unavailable" {
		t.Fatalf("job: status=%s stage=%s error=%q", job.Status, job.Stage, job.Error)
	}

	// Not claimable again until the retry delay passes.
	ran, err := w.RunOnce(context.Background())
	if err != nil || ran {
		t.Fatalf("retry before delay: ran=%v err=%v", ran, err)
	}
}

func TestRunOnceRecoversPanic(t *testing.T) {
	w, repo := newWorker(t, funcHandler{typ: "panics", run: func(jc *runtime.Context) error {
		panic("nil map")
	}})
	id := enqueue(t, repo, "panics")

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	job := reload(t, repo, id)
	if job.Status != types.JobStatusFailed || job.Stage != "panic" || job.Error != "panic: nil map" {
		t.Fatalf("job: status=%s stage=%s error=%q", job.Status, job.Stage, job.Error)
	}
}

func TestRunOnceMissingHandler(t *testing.T) {
	w, repo := newWorker(t)
	id := enqueue(t, repo, "unknown")

	ran, err := w.RunOnce(context.Background())
	if err != nil || !ran {
		t.Fatalf("RunOnce: ran=%v err=%v", ran, err)
	}
	job := reload(t, repo, id)
	if job.Status != types.JobStatusFailed || job.Stage != "dispatch" {
		t.Fatalf("job: status=%s stage=%s", job.Status, job.Stage)
	}
}

func TestWakeNeverBlocks(t *testing.T) {
	w, _ := newWorker(t)
	for i := 0; i < 10; i++ {
		w.Wake()
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	done := make(chan struct{})
	w, repo := newWorker(t, funcHandler{typ: "noop", run: func(jc *runtime.Context) error {
		close(done)
		return nil
	}})
	enqueue(t, repo, "noop")

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	w.Wake()
	<-done
	cancel()
	w.Wait()
}
