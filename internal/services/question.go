package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/data/repos"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/modules/paper"
	"github.com/yungbote/exampaper-backend/internal/platform/apierr"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type QuestionService interface {
	Generate(ctx context.Context, req paper.GenerateRequest) (*paper.GenerateResult, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]*types.Question, error)
	Update(ctx context.Context, id uuid.UUID, in QuestionUpdate) (*types.Question, error)
	Regenerate(ctx context.Context, id uuid.UUID) (*RegenerateResult, error)
}

// PaperAssembler is the slice of *paper.Assembler the service drives.
type PaperAssembler interface {
	GenerateForExam(ctx context.Context, req paper.GenerateRequest) (*paper.GenerateResult, error)
	Regenerate(ctx context.Context, questionID uuid.UUID) (types.QuestionSetEntry, bool, error)
}

// QuestionUpdate is a teacher's manual edit. Nil fields are left unchanged.
type QuestionUpdate struct {
	QuestionText  *string   `json:"questionText"`
	Marks         *int      `json:"marks"`
	Options       *[]string `json:"options"`
	CorrectAnswer *string   `json:"correctAnswer"`
	Difficulty    *string   `json:"difficulty"`
	Explanation   *string   `json:"explanation"`
}

type RegenerateResult struct {
	Question    *types.Question `json:"question"`
	Regenerated bool            `json:"regenerated"`
}

type questionService struct {
	log       *logger.Logger
	questions repos.QuestionRepo
	assembler PaperAssembler
}

func NewQuestionService(baseLog *logger.Logger, questions repos.QuestionRepo, assembler PaperAssembler) QuestionService {
	return &questionService{
		log:       baseLog.With("service", "QuestionService"),
		questions: questions,
		assembler: assembler,
	}
}

// Generate maps assembly errors onto API errors; anything unmapped is an
// internal failure.
func (s *questionService) Generate(ctx context.Context, req paper.GenerateRequest) (*paper.GenerateResult, error) {
	if req.Spec.TotalMarks <= 0 && req.Spec.QuestionCounts == nil {
		return nil, apierr.BadRequest("invalid_spec", "maxMarks must be positive")
	}
	res, err := s.assembler.GenerateForExam(ctx, req)
	if err != nil {
		var pe *paper.PreconditionError
		switch {
		case errors.As(err, &pe):
			return nil, apierr.Unprocessable("collection_unusable", err)
		case errors.Is(err, paper.ErrNoCollection):
			return nil, apierr.BadRequest("missing_collection", err.Error())
		case errors.Is(err, paper.ErrExamContextMissing):
			return nil, apierr.BadRequest("missing_exam_context", err.Error())
		}
		return nil, err
	}
	return res, nil
}

func (s *questionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]*types.Question, error) {
	if examID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_exam_id", "invalid exam id")
	}
	out, err := s.questions.ListByExam(dbctx.Context{Ctx: ctx}, examID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*types.Question{}
	}
	return out, nil
}

func (s *questionService) Update(ctx context.Context, id uuid.UUID, in QuestionUpdate) (*types.Question, error) {
	dbc := dbctx.Context{Ctx: ctx}
	q, err := s.questions.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apierr.NotFound("question_not_found", "question not found")
	}

	updates, err := questionUpdates(q, in)
	if err != nil {
		return nil, apierr.Unprocessable("invalid_question", err)
	}
	if len(updates) == 0 {
		return q, nil
	}
	if err := s.questions.UpdateFields(dbc, id, updates); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	s.log.Info("Question edited", "question_id", id, "fields", len(updates))
	return s.questions.GetByID(dbc, id)
}

// questionUpdates validates the edit against the question's archetype. A
// manual edit clears the fallback flag.
func questionUpdates(q *types.Question, in QuestionUpdate) (map[string]interface{}, error) {
	var issues []string
	updates := map[string]interface{}{}

	if in.QuestionText != nil {
		text := strings.TrimSpace(*in.QuestionText)
		if len(text) < 10 {
			issues = append(issues, "question text shorter than 10 characters")
		}
		updates["question_text"] = text
	}
	if in.Marks != nil {
		if *in.Marks <= 0 {
			issues = append(issues, "marks must be positive")
		}
		updates["marks"] = *in.Marks
	}
	if in.Difficulty != nil {
		updates["difficulty"] = types.ParseDifficulty(*in.Difficulty)
	}
	if in.Explanation != nil {
		updates["explanation"] = strings.TrimSpace(*in.Explanation)
	}

	options := q.OptionList()
	if in.Options != nil {
		options = make([]string, 0, len(*in.Options))
		for _, o := range *in.Options {
			options = append(options, strings.TrimSpace(o))
		}
		if q.Type != types.ArchetypeMCQ && len(options) > 0 {
			issues = append(issues, "only multiple choice questions take options")
		}
		updates["options"] = types.EncodeOptions(options)
	}
	if q.Type == types.ArchetypeMCQ && in.Options != nil && len(options) != 4 {
		issues = append(issues, "mcq needs exactly 4 options")
	}
	if in.CorrectAnswer != nil {
		ans := strings.TrimSpace(*in.CorrectAnswer)
		if q.Type == types.ArchetypeMCQ {
			ans = strings.ToUpper(ans)
			if len(ans) != 1 || ans[0] < 'A' || ans[0] > 'D' {
				issues = append(issues, "mcq answer must be one of A, B, C, D")
			}
		} else if len(ans) < 5 {
			issues = append(issues, "answer shorter than 5 characters")
		}
		updates["correct_answer"] = ans
	}

	if len(issues) > 0 {
		return nil, errors.New(strings.Join(issues, "; "))
	}
	if len(updates) > 0 {
		updates["is_fallback"] = false
	}
	return updates, nil
}

func (s *questionService) Regenerate(ctx context.Context, id uuid.UUID) (*RegenerateResult, error) {
	_, regenerated, err := s.assembler.Regenerate(ctx, id)
	if err != nil {
		if errors.Is(err, paper.ErrQuestionNotFound) {
			return nil, apierr.NotFound("question_not_found", "question not found")
		}
		return nil, err
	}
	q, err := s.questions.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	return &RegenerateResult{Question: q, Regenerated: regenerated}, nil
}
