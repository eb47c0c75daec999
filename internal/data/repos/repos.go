package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/exampaper-backend/internal/data/repos/exams"
	"github.com/yungbote/exampaper-backend/internal/data/repos/jobs"
	"github.com/yungbote/exampaper-backend/internal/data/repos/materials"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type ExamRepo = exams.ExamRepo
type QuestionRepo = exams.QuestionRepo
type MaterialRepo = materials.MaterialRepo
type JobRunRepo = jobs.JobRunRepo

type Repos struct {
	Exam     ExamRepo
	Question QuestionRepo
	Material MaterialRepo
	JobRun   JobRunRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Exam:     exams.NewExamRepo(db, log),
		Question: exams.NewQuestionRepo(db, log),
		Material: materials.NewMaterialRepo(db, log),
		JobRun:   jobs.NewJobRunRepo(db, log),
	}
}
