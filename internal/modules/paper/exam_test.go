package paper

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/data/repos/testutil"
	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
)

func TestGenerateForExamCreatesExam(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeCollection{validation: usable(2), chunks: chunks(2)}, &fakeGenerator{})
	mat := testutil.SeedMaterial(t, ctx, h.db, "col-from-material")

	res, err := h.asm.GenerateForExam(ctx, GenerateRequest{
		ExamID:     uuid.New(),
		Spec:       PaperSpec{TotalMarks: 20, Weightage: Weightage{MCQ: 50, Long: 50}},
		MaterialID: testutil.PtrUUID(mat.ID),
		ClassID:    "10",
		SubjectID:  "bio",
	})
	if err != nil {
		t.Fatalf("GenerateForExam: %v", err)
	}
	if res.CollectionID != "col-from-material" || len(res.Questions) != 11 {
		t.Fatalf("result: collection=%s questions=%d", res.CollectionID, len(res.Questions))
	}
	if res.Exam.Title != "Question Paper - 2026-03-09" || res.Exam.Duration != 60 {
		t.Fatalf("exam defaults: got=%+v", res.Exam)
	}

	stored, err := h.exams.GetByID(dbctx.Of(ctx), res.Exam.ID)
	if err != nil || stored == nil {
		t.Fatalf("exam not stored: %v", err)
	}
	if stored.TotalMarks != 20 || stored.Status != domain.ExamStatusGenerated || stored.MaterialID == nil {
		t.Fatalf("stored exam: got=%+v", stored)
	}
}

func TestGenerateForExamExisting(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeCollection{validation: usable(1), chunks: chunks(1)}, &fakeGenerator{})
	exam := testutil.SeedExam(t, ctx, h.db, nil)

	res, err := h.asm.GenerateForExam(ctx, GenerateRequest{
		ExamID:       exam.ID,
		Spec:         PaperSpec{TotalMarks: 5, Weightage: Weightage{Short: 100}},
		CollectionID: "col",
	})
	if err != nil {
		t.Fatalf("GenerateForExam: %v", err)
	}
	if res.Exam.ID != exam.ID || len(res.Questions) != 1 || res.Counts.Short != 1 {
		t.Fatalf("result: got=%+v", res)
	}
}

func TestGenerateForExamErrors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeCollection{validation: usable(1), chunks: chunks(1)}, &fakeGenerator{})

	_, err := h.asm.GenerateForExam(ctx, GenerateRequest{ExamID: uuid.New(), ClassID: "10", SubjectID: "bio"})
	if !errors.Is(err, ErrNoCollection) {
		t.Fatalf("want ErrNoCollection, got %v", err)
	}

	mat := testutil.SeedMaterial(t, ctx, h.db, "")
	_, err = h.asm.GenerateForExam(ctx, GenerateRequest{MaterialID: testutil.PtrUUID(mat.ID), ClassID: "10", SubjectID: "bio"})
	if !errors.Is(err, ErrNoCollection) {
		t.Fatalf("material without collection: want ErrNoCollection, got %v", err)
	}

	_, err = h.asm.GenerateForExam(ctx, GenerateRequest{ExamID: uuid.New(), CollectionID: "col"})
	if !errors.Is(err, ErrExamContextMissing) {
		t.Fatalf("want ErrExamContextMissing, got %v", err)
	}
}
