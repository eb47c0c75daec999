package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/data/repos"
	"github.com/yungbote/exampaper-backend/internal/data/repos/testutil"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/apierr"
	"github.com/yungbote/exampaper-backend/internal/platform/ctxutil"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/memguard"
	"github.com/yungbote/exampaper-backend/internal/platform/objectstore"
)

type fakeCollections struct {
	id  string
	err error
}

func (f *fakeCollections) CreateCollection(ctx context.Context, label string) (string, error) {
	return f.id, f.err
}

type recordingNotifier struct{ jobs []*types.JobRun }

func (n *recordingNotifier) JobCreated(job *types.JobRun) { n.jobs = append(n.jobs, job) }

type fakePublisher struct{ msgs []string }

func (p *fakePublisher) Publish(ctx context.Context, msg string) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

type harness struct {
	repos    repos.Repos
	blobs    *objectstore.FSStore
	notifier *recordingNotifier
	jobs     JobService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	blobs, err := objectstore.NewFSStore(t.TempDir(), "http://files.local")
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	rs := repos.New(db, log)
	n := &recordingNotifier{}
	return &harness{repos: rs, blobs: blobs, notifier: n, jobs: NewJobService(log, rs.JobRun, n)}
}

func (h *harness) materialService(t *testing.T, col CollectionCreator, cfg MaterialServiceConfig) MaterialService {
	return NewMaterialService(testutil.Logger(t), h.repos.Material, h.blobs, col, h.jobs, cfg)
}

func upload(name string) UploadStudyMaterialInput {
	body := "%PDF-1.4 study notes"
	return UploadStudyMaterialInput{
		TeacherID:    "t-1",
		ClassName:    "10",
		Subject:      "bio",
		OriginalName: name,
		MimeType:     "application/pdf",
		SizeBytes:    int64(len(body)),
		Reader:       strings.NewReader(body),
	}
}

func TestJobServiceEnqueueCarriesTraceIDs(t *testing.T) {
	h := newHarness(t)
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "trace-1", RequestID: "req-1"})

	job, err := h.jobs.Enqueue(dbctx.Context{Ctx: ctx}, "ingest_material", "material", nil, map[string]any{"material_id": "m"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	stored, err := h.jobs.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: %v", err)
	}
	payload := string(stored.Payload)
	if !strings.Contains(payload, `"trace_id":"trace-1"`) || !strings.Contains(payload, `"request_id":"req-1"`) {
		t.Fatalf("payload: got=%s", payload)
	}
	if stored.Status != types.JobStatusQueued || len(h.notifier.jobs) != 1 {
		t.Fatalf("status=%s notified=%d", stored.Status, len(h.notifier.jobs))
	}

	if _, err := h.jobs.Enqueue(dbctx.Context{Ctx: ctx}, " ", "", nil, nil); err == nil {
		t.Fatalf("blank job type: want error")
	}
}

func TestJobNotifierWakesLocalAndBus(t *testing.T) {
	woke := 0
	bus := &fakePublisher{}
	n := NewJobNotifier(testutil.Logger(t), func() { woke++ }, bus)
	n.JobCreated(&types.JobRun{JobType: "ingest_material"})
	if woke != 1 || len(bus.msgs) != 1 || bus.msgs[0] != "ingest_material" {
		t.Fatalf("woke=%d msgs=%v", woke, bus.msgs)
	}
	NewJobNotifier(testutil.Logger(t), nil, nil).JobCreated(&types.JobRun{})
}

func TestUploadStudyMaterialQueuesIngestion(t *testing.T) {
	h := newHarness(t)
	svc := h.materialService(t, &fakeCollections{id: "col-9"}, MaterialServiceConfig{IngestEnabled: true, HeapGuard: memguard.Fixed{MB: 10}})
	ctx := context.Background()

	res, err := svc.UploadStudyMaterial(ctx, upload("../notes/chapter 1.pdf"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	mat := res.Material
	if mat.CollectionID != "col-9" || mat.IngestStatus != types.IngestStatusQueued || res.JobID == nil {
		t.Fatalf("material: got=%+v job=%v", mat, res.JobID)
	}
	want := "materials/" + mat.ID.String() + "/chapter 1.pdf"
	if mat.StorageKey != want || mat.OriginalName != "chapter 1.pdf" {
		t.Fatalf("storage key: want=%s got=%s name=%s", want, mat.StorageKey, mat.OriginalName)
	}
	data, err := objectstore.ReadAll(ctx, h.blobs, mat.StorageKey, 0)
	if err != nil || string(data) != "%PDF-1.4 study notes" {
		t.Fatalf("blob: err=%v data=%q", err, data)
	}

	job, _ := h.jobs.GetByID(dbctx.Of(ctx), *res.JobID)
	if job == nil || job.JobType != IngestMaterialJobType || job.EntityID == nil || *job.EntityID != mat.ID {
		t.Fatalf("job: got=%+v", job)
	}
	stored, _ := svc.GetByID(ctx, mat.ID)
	if stored.IngestStatus != types.IngestStatusQueued {
		t.Fatalf("stored status: got=%s", stored.IngestStatus)
	}
}

func TestUploadStudyMaterialAdmission(t *testing.T) {
	cases := []struct {
		name string
		cfg  MaterialServiceConfig
		want string
	}{
		{"disabled", MaterialServiceConfig{}, types.IngestStatusDisabled},
		{"heap over guard", MaterialServiceConfig{IngestEnabled: true, HeapGuard: memguard.Fixed{MB: 2048, Over: true}}, types.IngestStatusSkipped},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			svc := h.materialService(t, &fakeCollections{id: "col"}, tc.cfg)
			res, err := svc.UploadStudyMaterial(context.Background(), upload("a.pdf"))
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			if res.Material.IngestStatus != tc.want || res.JobID != nil || len(h.notifier.jobs) != 0 {
				t.Fatalf("want status=%s no job, got status=%s job=%v", tc.want, res.Material.IngestStatus, res.JobID)
			}
		})
	}
}

func TestUploadStudyMaterialErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	svc := h.materialService(t, &fakeCollections{id: "col"}, MaterialServiceConfig{})
	in := upload("a.pdf")
	in.Subject = ""
	_, err := svc.UploadStudyMaterial(ctx, in)
	if ae := apierr.From(err); ae == nil || ae.Status != http.StatusBadRequest {
		t.Fatalf("missing subject: want 400, got %v", err)
	}
	in = upload("")
	_, err = svc.UploadStudyMaterial(ctx, in)
	if ae := apierr.From(err); ae == nil || ae.Code != "missing_file" {
		t.Fatalf("missing file: got %v", err)
	}

	boom := errors.New("chroma down")
	svc = h.materialService(t, &fakeCollections{err: boom}, MaterialServiceConfig{})
	_, err = svc.UploadStudyMaterial(ctx, upload("a.pdf"))
	if !errors.Is(err, boom) {
		t.Fatalf("collection failure: want wrapped cause, got %v", err)
	}

	if _, err := svc.GetByID(ctx, uuid.New()); apierr.From(err) == nil || apierr.From(err).Status != http.StatusNotFound {
		t.Fatalf("GetByID missing: want 404, got %v", err)
	}
}

func TestListStudyPaginates(t *testing.T) {
	h := newHarness(t)
	svc := h.materialService(t, &fakeCollections{id: "col"}, MaterialServiceConfig{})
	ctx := context.Background()
	for _, n := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if _, err := svc.UploadStudyMaterial(ctx, upload(n)); err != nil {
			t.Fatalf("Upload: %v", err)
		}
	}
	page, err := svc.ListStudy(ctx, ListStudyInput{ClassName: "10", Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("ListStudy: %v", err)
	}
	if page.Total != 3 || page.Pages != 2 || len(page.Items) != 1 || page.Page != 2 {
		t.Fatalf("page: got total=%d pages=%d items=%d", page.Total, page.Pages, len(page.Items))
	}
}
