package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/exampaper-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Materials (uploads + ingestion state)
		&types.Material{},

		// Exams + question sets
		&types.Exam{},
		&types.Question{},

		// Jobs / worker
		&types.JobRun{},
	)
}

// EnsureIndexes adds composite indexes AutoMigrate cannot express.
func EnsureIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_question_exam_order ON question(exam_id, sort_order);`).Error; err != nil {
		return fmt.Errorf("create idx_question_exam_order: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_job_run_status_created ON job_run(status, created_at);`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_status_created: %w", err)
	}
	return nil
}
