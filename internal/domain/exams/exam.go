package exams

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ExamStatusDraft     = "draft"
	ExamStatusGenerated = "generated"
)

type Exam struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Type        string     `gorm:"column:type;not null;default:'question_paper'" json:"type"`
	Status      string     `gorm:"column:status;not null;default:'draft';index" json:"status"`
	TotalMarks  int        `gorm:"column:total_marks;not null;default:0" json:"total_marks"`
	Duration    int        `gorm:"column:duration;not null;default:60" json:"duration"`
	ClassID     string     `gorm:"column:class_id;index" json:"class_id"`
	SubjectID   string     `gorm:"column:subject_id;index" json:"subject_id"`
	MaterialID  *uuid.UUID `gorm:"type:uuid;column:material_id;index" json:"material_id,omitempty"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;column:created_by_id;index" json:"created_by_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Exam) TableName() string { return "exam" }

func (e *Exam) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
