package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/exampaper-backend/internal/domain"
)

func SeedMaterial(tb testing.TB, ctx context.Context, tx *gorm.DB, collectionID string) *types.Material {
	tb.Helper()
	m := &types.Material{
		ID:           uuid.New(),
		Type:         "study",
		TeacherID:    "teacher-1",
		ClassName:    "10",
		Subject:      "Biology",
		OriginalName: "book.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    1024,
		StorageKey:   "materials/book.pdf",
		CollectionID: collectionID,
		IngestStatus: "pending",
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed material: %v", err)
	}
	return m
}

func SeedExam(tb testing.TB, ctx context.Context, tx *gorm.DB, materialID *uuid.UUID) *types.Exam {
	tb.Helper()
	e := &types.Exam{
		ID:         uuid.New(),
		Title:      "exam",
		Type:       "question_paper",
		Status:     "draft",
		Duration:   60,
		ClassID:    "10",
		SubjectID:  "bio",
		MaterialID: materialID,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed exam: %v", err)
	}
	return e
}

func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, examID uuid.UUID, order int, archetype types.Archetype) *types.Question {
	tb.Helper()
	q := &types.Question{
		ID:            uuid.New(),
		ExamID:        examID,
		Order:         order,
		QuestionText:  "What does chlorophyll absorb?",
		Type:          archetype,
		Difficulty:    types.DifficultyMedium,
		Marks:         1,
		Options:       types.EncodeOptions(nil),
		CorrectAnswer: "Light energy",
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
