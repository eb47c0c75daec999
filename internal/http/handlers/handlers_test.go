package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/modules/collections"
	"github.com/yungbote/exampaper-backend/internal/modules/paper"
	"github.com/yungbote/exampaper-backend/internal/platform/apierr"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/ollama"
	"github.com/yungbote/exampaper-backend/internal/services"
)

type fakeMaterials struct {
	upload services.UploadStudyMaterialInput
	body   string
	err    error
}

func (f *fakeMaterials) UploadStudyMaterial(ctx context.Context, in services.UploadStudyMaterialInput) (*services.UploadResult, error) {
	f.upload = in
	b, _ := io.ReadAll(in.Reader)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &services.UploadResult{Material: &types.Material{ID: uuid.New(), CollectionID: "col-1", IngestStatus: types.IngestStatusQueued}}, nil
}

func (f *fakeMaterials) GetByID(ctx context.Context, id uuid.UUID) (*types.Material, error) {
	return nil, apierr.NotFound("material_not_found", "material not found")
}

func (f *fakeMaterials) ListStudy(ctx context.Context, in services.ListStudyInput) (*services.MaterialPage, error) {
	return &services.MaterialPage{Items: []*types.Material{}, Page: in.Page, Limit: in.Limit}, nil
}

type fakeInspector struct{}

func (fakeInspector) Validate(ctx context.Context, id string) collections.Validation {
	return collections.Validation{Valid: false, Exists: true, Count: 0, Issues: []string{"Collection is empty"}}
}

func (fakeInspector) Stats(ctx context.Context, id string) collections.Stats {
	return collections.Stats{Exists: true, Count: 12}
}

type fakeHealth struct{}

func (fakeHealth) Health(ctx context.Context) ollama.Health {
	return ollama.Health{Healthy: true, Model: "llama3"}
}

type fakeQuestions struct {
	gen    paper.GenerateRequest
	genErr error
	update services.QuestionUpdate
}

func (f *fakeQuestions) Generate(ctx context.Context, req paper.GenerateRequest) (*paper.GenerateResult, error) {
	f.gen = req
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &paper.GenerateResult{CollectionID: req.CollectionID, Questions: []types.QuestionSetEntry{}}, nil
}

func (f *fakeQuestions) ListByExam(ctx context.Context, examID uuid.UUID) ([]*types.Question, error) {
	return []*types.Question{{ID: uuid.New(), ExamID: examID, Order: 1}}, nil
}

func (f *fakeQuestions) Update(ctx context.Context, id uuid.UUID, in services.QuestionUpdate) (*types.Question, error) {
	f.update = in
	return nil, apierr.Unprocessable("invalid_question", io.ErrUnexpectedEOF)
}

func (f *fakeQuestions) Regenerate(ctx context.Context, id uuid.UUID) (*services.RegenerateResult, error) {
	return &services.RegenerateResult{Question: &types.Question{ID: id}, Regenerated: true}, nil
}

type fakeJobs struct{}

func (fakeJobs) Enqueue(dbc dbctx.Context, jobType, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	return nil, nil
}

func (fakeJobs) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) { return nil, nil }

func (fakeJobs) GetLatestForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error) {
	return nil, nil
}

func newEngine(mh *MaterialHandler, qh *QuestionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/materials/study", mh.UploadStudy)
	r.GET("/api/materials/study", mh.ListStudy)
	r.GET("/api/materials/ollama-health", mh.OllamaHealth)
	r.GET("/api/materials/collection/:id/validate", mh.ValidateCollection)
	r.GET("/api/materials/collection/:id/stats", mh.CollectionStats)
	r.GET("/api/materials/:id", mh.GetMaterial)
	r.POST("/api/questions/generate/:examId", qh.Generate)
	r.GET("/api/questions/by-exam/:examId", qh.ListByExam)
	r.POST("/api/questions/update/:id", qh.Update)
	r.POST("/api/questions/regenerate/:id", qh.Regenerate)
	r.GET("/api/jobs/:id", NewJobHandler(fakeJobs{}).GetJob)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, rec.Body.String())
	}
	return env.Error.Code
}

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write([]byte(content))
	}
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/materials/study", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadStudy(t *testing.T) {
	mats := &fakeMaterials{}
	r := newEngine(NewMaterialHandler(logger.Nop(), mats, fakeInspector{}, nil, 64), NewQuestionHandler(logger.Nop(), &fakeQuestions{}))

	rec := serve(r, multipartUpload(t, map[string]string{"teacherId": "t-1", "class": "10", "subject": "bio"}, "notes.pdf", "%PDF-1.4"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: want=201 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if mats.upload.TeacherID != "t-1" || mats.upload.Subject != "bio" || mats.upload.OriginalName != "notes.pdf" || mats.body != "%PDF-1.4" {
		t.Fatalf("service input: got=%+v body=%q", mats.upload, mats.body)
	}

	rec = serve(r, multipartUpload(t, map[string]string{"teacherId": "t-1"}, "", ""))
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "missing_file" {
		t.Fatalf("no file: got=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(r, multipartUpload(t, nil, "big.pdf", strings.Repeat("x", 65)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("too large: want=413 got=%d", rec.Code)
	}

	mats.err = apierr.BadRequest("missing_fields", "teacherId, class and subject are required")
	rec = serve(r, multipartUpload(t, nil, "a.pdf", "x"))
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "missing_fields" {
		t.Fatalf("service error: got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestMaterialReads(t *testing.T) {
	r := newEngine(NewMaterialHandler(logger.Nop(), &fakeMaterials{}, fakeInspector{}, nil, 0), NewQuestionHandler(logger.Nop(), &fakeQuestions{}))

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/materials/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "material_not_found" {
		t.Fatalf("missing material: got=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/materials/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: got=%d", rec.Code)
	}

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/materials/collection/col-1/validate", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"Collection is empty"`) {
		t.Fatalf("validate: got=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/materials/collection/col-1/stats", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":12`) {
		t.Fatalf("stats: got=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/materials/study?page=2&limit=5", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"page":2`) {
		t.Fatalf("list: got=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/materials/ollama-health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ollama health without provider: got=%d", rec.Code)
	}
	r = newEngine(NewMaterialHandler(logger.Nop(), &fakeMaterials{}, fakeInspector{}, fakeHealth{}, 0), NewQuestionHandler(logger.Nop(), &fakeQuestions{}))
	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/materials/ollama-health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"healthy":true`) {
		t.Fatalf("ollama health: got=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGenerateBindsRequest(t *testing.T) {
	qs := &fakeQuestions{}
	r := newEngine(NewMaterialHandler(logger.Nop(), &fakeMaterials{}, fakeInspector{}, nil, 0), NewQuestionHandler(logger.Nop(), qs))
	examID := uuid.New()
	matID := uuid.New()

	body := `{"maxMarks":20,"weightage":{"mcq":50,"short":0,"long":50},"collectionId":"old","vectorCollectionID":"col-7","classId":"10","subjectId":"bio","difficulty":"Hard","materialId":"` + matID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/questions/generate/"+examID.String(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(r, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: got=%d body=%s", rec.Code, rec.Body.String())
	}
	g := qs.gen
	if g.ExamID != examID || g.CollectionID != "col-7" || g.Spec.TotalMarks != 20 || g.Spec.Weightage.MCQ != 50 {
		t.Fatalf("request: got=%+v", g)
	}
	if g.Difficulty != types.DifficultyHard || g.MaterialID == nil || *g.MaterialID != matID || g.ClassID != "10" {
		t.Fatalf("request context: got=%+v", g)
	}

	qs.genErr = apierr.Unprocessable("collection_unusable", io.EOF)
	req = httptest.NewRequest(http.MethodPost, "/api/questions/generate/new", strings.NewReader(`{"maxMarks":5}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(r, req)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "collection_unusable" {
		t.Fatalf("precondition: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if qs.gen.ExamID != uuid.Nil {
		t.Fatalf("non-uuid exam id should map to a new exam, got %s", qs.gen.ExamID)
	}
}

func TestQuestionEditAndRegenerate(t *testing.T) {
	qs := &fakeQuestions{}
	r := newEngine(NewMaterialHandler(logger.Nop(), &fakeMaterials{}, fakeInspector{}, nil, 0), NewQuestionHandler(logger.Nop(), qs))
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/api/questions/update/"+id, strings.NewReader(`{"marks":3,"correctAnswer":"B"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(r, req)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "invalid_question" {
		t.Fatalf("update error surfaced: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if qs.update.Marks == nil || *qs.update.Marks != 3 || qs.update.CorrectAnswer == nil || qs.update.QuestionText != nil {
		t.Fatalf("update binding: got=%+v", qs.update)
	}

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/api/questions/regenerate/"+id, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"regenerated":true`) {
		t.Fatalf("regenerate: got=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/questions/by-exam/"+uuid.NewString(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("by-exam: got=%d", rec.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	r := newEngine(NewMaterialHandler(logger.Nop(), &fakeMaterials{}, fakeInspector{}, nil, 0), NewQuestionHandler(logger.Nop(), &fakeQuestions{}))
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/jobs/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "job_not_found" {
		t.Fatalf("job: got=%d body=%s", rec.Code, rec.Body.String())
	}
}
