package exams

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type ExamRepo interface {
	Create(dbc dbctx.Context, exam *types.Exam) (*types.Exam, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Exam, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type examRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExamRepo(db *gorm.DB, baseLog *logger.Logger) ExamRepo {
	return &examRepo{
		db:  db,
		log: baseLog.With("repo", "ExamRepo"),
	}
}

func (r *examRepo) Create(dbc dbctx.Context, exam *types.Exam) (*types.Exam, error) {
	if exam == nil {
		return nil, nil
	}
	if err := dbc.DB(r.db).Create(exam).Error; err != nil {
		return nil, err
	}
	return exam, nil
}

// GetByID returns nil without error when no row matches.
func (r *examRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Exam, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var exam types.Exam
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&exam).Error; err != nil {
		return nil, err
	}
	if exam.ID == uuid.Nil {
		return nil, nil
	}
	return &exam, nil
}

func (r *examRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.DB(r.db).
		Model(&types.Exam{}).
		Where("id = ?", id).
		Updates(updates).Error
}
