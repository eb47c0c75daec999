// Package paper turns a mark budget and weightage into an ordered, persisted
// question set, one randomly drawn chunk per question.
package paper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/modules/collections"
	"github.com/yungbote/exampaper-backend/internal/modules/questiongen"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

var ErrQuestionNotFound = errors.New("question not found")

// PreconditionError aborts a whole assembly before anything is generated or
// persisted.
type PreconditionError struct {
	CollectionID string
	Issues       []string
}

func (e *PreconditionError) Error() string {
	if e.CollectionID == "" {
		return "paper precondition failed: " + strings.Join(e.Issues, "; ")
	}
	return fmt.Sprintf("collection %s cannot ground a paper: %s", e.CollectionID, strings.Join(e.Issues, "; "))
}

type CollectionSource interface {
	Validate(ctx context.Context, collectionID string) collections.Validation
	RandomChunk(ctx context.Context, collectionID string) (domain.Chunk, error)
}

type QuestionGenerator interface {
	Generate(ctx context.Context, req questiongen.Request) (domain.GeneratedQuestion, error)
	Regenerate(ctx context.Context, req questiongen.RegenerateRequest) (domain.GeneratedQuestion, error)
}

type QuestionStore interface {
	AppendQuestions(dbc dbctx.Context, examID uuid.UUID, questions []*domain.Question) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Question, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type ExamStore interface {
	Create(dbc dbctx.Context, exam *domain.Exam) (*domain.Exam, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Exam, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type MaterialLookup interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Material, error)
}

type Deps struct {
	Log         *logger.Logger
	Collections CollectionSource
	Generator   QuestionGenerator
	Questions   QuestionStore
	// Exams and Materials are only needed by GenerateForExam.
	Exams     ExamStore
	Materials MaterialLookup
	Metrics   *observability.Metrics
	Now       func() time.Time
}

// ExamContext is what the assembler knows about the exam it fills.
type ExamContext struct {
	ExamID     uuid.UUID
	Subject    string
	Grade      string
	Difficulty domain.Difficulty
}

type Assembler struct {
	log         *logger.Logger
	collections CollectionSource
	generator   QuestionGenerator
	questions   QuestionStore
	exams       ExamStore
	materials   MaterialLookup
	metrics     *observability.Metrics
	now         func() time.Time
}

func New(deps Deps) (*Assembler, error) {
	if deps.Collections == nil || deps.Generator == nil || deps.Questions == nil {
		return nil, fmt.Errorf("paper: collections, generator and question store are required")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Assembler{
		log:         deps.Log.With("service", "PaperAssembler"),
		collections: deps.Collections,
		generator:   deps.Generator,
		questions:   deps.Questions,
		exams:       deps.Exams,
		materials:   deps.Materials,
		metrics:     deps.Metrics,
		now:         deps.Now,
	}, nil
}

// Assemble fills every slot of the paper in MCQ, short, long order and
// appends the set to the exam in one write. Only an unusable collection or a
// persistence error fails the call; slot failures become fallbacks.
func (a *Assembler) Assemble(ctx context.Context, spec PaperSpec, collectionID string, ec ExamContext) ([]domain.QuestionSetEntry, error) {
	if ec.ExamID == uuid.Nil {
		return nil, fmt.Errorf("assemble: exam id required")
	}
	counts := ResolveCounts(spec)

	v := a.collections.Validate(ctx, collectionID)
	if !v.Usable() {
		a.log.Warn("Paper assembly blocked", "collection_id", collectionID, "issues", v.Issues)
		return nil, &PreconditionError{CollectionID: collectionID, Issues: v.Issues}
	}
	if len(v.Issues) > 0 {
		a.log.Info("Collection has non-blocking issues", "collection_id", collectionID, "issues", v.Issues)
	}

	difficulty := ec.Difficulty
	if !difficulty.Valid() {
		difficulty = domain.DifficultyMedium
	}

	entries := make([]domain.QuestionSetEntry, 0, counts.Total())
	fallbacks := 0
	for _, arch := range domain.Archetypes {
		n, marks := counts.For(arch)
		for i := 1; i <= n; i++ {
			entry := a.fillSlot(ctx, collectionID, arch, i, marks, difficulty, ec)
			entry.Order = len(entries) + 1
			if entry.IsFallback {
				fallbacks++
			}
			a.metrics.IncPaperSlot(string(arch), entry.IsFallback)
			entries = append(entries, entry)
		}
	}

	if len(entries) > 0 {
		rows := make([]*domain.Question, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, domain.NewQuestionEntry(ec.ExamID, e))
		}
		if err := a.questions.AppendQuestions(dbctx.Of(ctx), ec.ExamID, rows); err != nil {
			return nil, fmt.Errorf("persist question set: %w", err)
		}
	}

	a.log.Info("Paper assembled",
		"exam_id", ec.ExamID,
		"collection_id", collectionID,
		"mcq", counts.MCQ,
		"short", counts.Short,
		"long", counts.Long,
		"fallbacks", fallbacks,
		"total_marks", counts.TotalMarks(),
	)
	return entries, nil
}

func (a *Assembler) fillSlot(ctx context.Context, collectionID string, arch domain.Archetype, index, marks int, difficulty domain.Difficulty, ec ExamContext) domain.QuestionSetEntry {
	chunk, err := a.collections.RandomChunk(ctx, collectionID)
	if err == nil && strings.TrimSpace(chunk.Text) == "" {
		err = errors.New("drawn chunk has no text")
	}
	if err != nil {
		a.log.Warn("Chunk draw failed, using fallback", "collection_id", collectionID, "archetype", arch, "slot", index, "error", err)
		return domain.QuestionSetEntry{GeneratedQuestion: Fallback(arch, index, marks)}
	}

	q, err := a.generator.Generate(ctx, questiongen.Request{
		ChunkText:  chunk.Text,
		Archetype:  arch,
		Subject:    ec.Subject,
		Grade:      ec.Grade,
		Marks:      marks,
		Difficulty: difficulty,
	})
	if err != nil {
		a.log.Warn("Generation failed, using fallback", "archetype", arch, "slot", index, "kind", questiongen.KindOf(err), "error", err)
		return domain.QuestionSetEntry{GeneratedQuestion: Fallback(arch, index, marks), SourceChunkID: chunk.ID}
	}
	q.Marks = marks
	return domain.QuestionSetEntry{GeneratedQuestion: q, SourceChunkID: chunk.ID}
}

// Regenerate rewrites one persisted question in place. When generation fails
// the question is left as it was, unless it had no text, in which case it gets
// the fallback template. The question is never deleted.
func (a *Assembler) Regenerate(ctx context.Context, questionID uuid.UUID) (domain.QuestionSetEntry, bool, error) {
	dbc := dbctx.Of(ctx)
	q, err := a.questions.GetByID(dbc, questionID)
	if err != nil {
		return domain.QuestionSetEntry{}, false, err
	}
	if q == nil {
		return domain.QuestionSetEntry{}, false, ErrQuestionNotFound
	}

	marks := q.Marks
	if marks <= 0 {
		marks = questiongen.DefaultMarks(q.Type)
	}
	gq, genErr := a.generator.Regenerate(ctx, questiongen.RegenerateRequest{
		Archetype:    q.Type,
		Marks:        marks,
		Difficulty:   q.Difficulty,
		PreviousText: q.QuestionText,
	})

	regenerated := genErr == nil
	if genErr != nil {
		a.log.Warn("Question regeneration failed", "question_id", questionID, "kind", questiongen.KindOf(genErr), "error", genErr)
		if strings.TrimSpace(q.QuestionText) != "" {
			return q.Entry(), false, nil
		}
		gq = Fallback(q.Type, max(q.Order, 1), marks)
	}
	gq.Marks = marks

	updates := map[string]interface{}{
		"question_text":  gq.Text,
		"options":        domain.EncodeOptions(gq.Options),
		"correct_answer": gq.CorrectAnswer,
		"difficulty":     gq.Difficulty,
		"explanation":    gq.Explanation,
		"is_fallback":    gq.IsFallback,
		"marks":          gq.Marks,
	}
	if err := a.questions.UpdateFields(dbc, questionID, updates); err != nil {
		return domain.QuestionSetEntry{}, false, fmt.Errorf("save regenerated question: %w", err)
	}

	entry := q.Entry()
	entry.GeneratedQuestion = gq
	entry.Archetype = q.Type
	return entry, regenerated, nil
}
