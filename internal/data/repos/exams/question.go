package exams

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type QuestionRepo interface {
	// AppendQuestions inserts the whole set in one transaction. Existing
	// questions of the exam are left in place.
	AppendQuestions(dbc dbctx.Context, examID uuid.UUID, questions []*types.Question) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Question, error)
	// ListByExam returns the exam's questions ordered by sort_order ascending.
	ListByExam(dbc dbctx.Context, examID uuid.UUID) ([]*types.Question, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{
		db:  db,
		log: baseLog.With("repo", "QuestionRepo"),
	}
}

func (r *questionRepo) AppendQuestions(dbc dbctx.Context, examID uuid.UUID, questions []*types.Question) error {
	if examID == uuid.Nil {
		return fmt.Errorf("append questions: exam id required")
	}
	if len(questions) == 0 {
		return nil
	}
	for _, q := range questions {
		if q == nil {
			return fmt.Errorf("append questions: nil question")
		}
		q.ExamID = examID
	}
	return dbc.DB(r.db).Transaction(func(txx *gorm.DB) error {
		if err := txx.CreateInBatches(questions, 100).Error; err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
}

func (r *questionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Question, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var q types.Question
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&q).Error; err != nil {
		return nil, err
	}
	if q.ID == uuid.Nil {
		return nil, nil
	}
	return &q, nil
}

func (r *questionRepo) ListByExam(dbc dbctx.Context, examID uuid.UUID) ([]*types.Question, error) {
	var out []*types.Question
	if examID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("exam_id = ?", examID).
		Order("sort_order ASC").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *questionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.DB(r.db).
		Model(&types.Question{}).
		Where("id = ?", id).
		Updates(updates).Error
}
