package materials

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MaterialTypeStudy  = "study"
	MaterialTypeAnswer = "answer"
)

// Ingest status values mirror the ingestion pipeline's terminal states plus
// the queue states in front of it.
const (
	IngestStatusPending  = "pending"
	IngestStatusQueued   = "queued"
	IngestStatusDisabled = "disabled"
	IngestStatusDone     = "done"
	IngestStatusSkipped  = "skipped"
	IngestStatusFailed   = "failed"
)

type Material struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Type         string    `gorm:"column:type;not null;default:'study';index" json:"type"`
	TeacherID    string    `gorm:"column:teacher_id;index" json:"teacher_id"`
	ClassName    string    `gorm:"column:class_name" json:"class"`
	Subject      string    `gorm:"column:subject" json:"subject"`
	OriginalName string    `gorm:"column:original_name;not null" json:"original_name"`
	MimeType     string    `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64     `gorm:"column:size_bytes" json:"size_bytes"`
	StorageKey   string    `gorm:"column:storage_key;not null" json:"storage_key"`
	FileURL      string    `gorm:"column:file_url" json:"file_url"`

	CollectionID string     `gorm:"column:collection_id;index" json:"vector_collection_id"`
	IngestStatus string     `gorm:"column:ingest_status;not null;default:'pending';index" json:"ingest_status"`
	Segments     int        `gorm:"column:segments;not null;default:0" json:"segments"`
	IngestError  string     `gorm:"column:ingest_error;type:text" json:"ingest_error,omitempty"`
	IngestedAt   *time.Time `gorm:"column:ingested_at" json:"ingested_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Material) TableName() string { return "material" }

func (m *Material) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
