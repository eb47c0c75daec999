package paper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
)

var (
	ErrExamContextMissing = errors.New("exam not found and classId/subjectId not provided to create one")
	ErrNoCollection       = errors.New("no vector collection provided, select a study material or book")
)

const defaultDuration = 60

type GenerateRequest struct {
	// ExamID may be nil; a new exam is created from ClassID/SubjectID.
	ExamID       uuid.UUID
	Spec         PaperSpec
	CollectionID string
	MaterialID   *uuid.UUID
	ClassID      string
	SubjectID    string
	Title        string
	Duration     int
	Difficulty   domain.Difficulty
	CreatedByID  *uuid.UUID
}

type GenerateResult struct {
	Exam         *domain.Exam              `json:"exam"`
	CollectionID string                    `json:"collectionId"`
	Counts       Counts                    `json:"counts"`
	Questions    []domain.QuestionSetEntry `json:"questions"`
}

// GenerateForExam resolves the exam and collection for a request, assembles
// the paper and records the exam's mark total.
func (a *Assembler) GenerateForExam(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if a.exams == nil {
		return nil, fmt.Errorf("paper: exam store not configured")
	}
	dbc := dbctx.Of(ctx)

	collectionID, err := a.resolveCollection(dbc, req)
	if err != nil {
		return nil, err
	}

	exam, err := a.loadOrCreateExam(dbc, req)
	if err != nil {
		return nil, err
	}

	entries, err := a.Assemble(ctx, req.Spec, collectionID, ExamContext{
		ExamID:     exam.ID,
		Subject:    exam.SubjectID,
		Grade:      exam.ClassID,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"total_marks": req.Spec.TotalMarks,
		"status":      domain.ExamStatusGenerated,
	}
	if req.MaterialID != nil && exam.MaterialID == nil {
		updates["material_id"] = *req.MaterialID
	}
	if err := a.exams.UpdateFields(dbc, exam.ID, updates); err != nil {
		return nil, fmt.Errorf("update exam after generation: %w", err)
	}
	exam.TotalMarks = req.Spec.TotalMarks
	exam.Status = domain.ExamStatusGenerated

	return &GenerateResult{
		Exam:         exam,
		CollectionID: collectionID,
		Counts:       ResolveCounts(req.Spec),
		Questions:    entries,
	}, nil
}

func (a *Assembler) loadOrCreateExam(dbc dbctx.Context, req GenerateRequest) (*domain.Exam, error) {
	if req.ExamID != uuid.Nil {
		exam, err := a.exams.GetByID(dbc, req.ExamID)
		if err != nil {
			return nil, err
		}
		if exam != nil {
			return exam, nil
		}
	}
	if strings.TrimSpace(req.ClassID) == "" || strings.TrimSpace(req.SubjectID) == "" {
		if req.ExamID != uuid.Nil {
			return nil, fmt.Errorf("%w: %s", ErrExamContextMissing, req.ExamID)
		}
		return nil, ErrExamContextMissing
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Question Paper - " + a.now().Format("2006-01-02")
	}
	duration := req.Duration
	if duration <= 0 {
		duration = defaultDuration
	}
	exam := &domain.Exam{
		ID:          req.ExamID,
		Title:       title,
		Type:        "question_paper",
		Status:      domain.ExamStatusDraft,
		TotalMarks:  req.Spec.TotalMarks,
		Duration:    duration,
		ClassID:     strings.TrimSpace(req.ClassID),
		SubjectID:   strings.TrimSpace(req.SubjectID),
		MaterialID:  req.MaterialID,
		CreatedByID: req.CreatedByID,
	}
	created, err := a.exams.Create(dbc, exam)
	if err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	a.log.Info("Exam created for generation", "exam_id", created.ID, "class_id", created.ClassID, "subject_id", created.SubjectID)
	return created, nil
}

func (a *Assembler) resolveCollection(dbc dbctx.Context, req GenerateRequest) (string, error) {
	if id := strings.TrimSpace(req.CollectionID); id != "" {
		return id, nil
	}
	if req.MaterialID != nil && a.materials != nil {
		mat, err := a.materials.GetByID(dbc, *req.MaterialID)
		if err != nil {
			return "", err
		}
		if mat == nil {
			a.log.Warn("Material not found while resolving collection", "material_id", *req.MaterialID)
		} else if mat.CollectionID != "" {
			return mat.CollectionID, nil
		}
	}
	return "", ErrNoCollection
}
