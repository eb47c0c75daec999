package exams

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GeneratedQuestion is a validated generator output, or a fallback stand-in.
type GeneratedQuestion struct {
	Archetype     Archetype  `json:"type"`
	Text          string     `json:"text"`
	Options       []string   `json:"options,omitempty"`
	CorrectAnswer string     `json:"answer"`
	Marks         int        `json:"marks"`
	Difficulty    Difficulty `json:"difficulty"`
	Explanation   string     `json:"explanation,omitempty"`
	IsFallback    bool       `json:"is_fallback"`
}

// QuestionSetEntry is one ordered slot of an assembled paper.
type QuestionSetEntry struct {
	Order int `json:"order"`
	GeneratedQuestion
	// SourceChunkID names the chunk that grounded the question, if any.
	SourceChunkID string `json:"source_chunk_id,omitempty"`
}

type Question struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExamID uuid.UUID `gorm:"type:uuid;not null;index" json:"exam_id"`

	Order         int            `gorm:"column:sort_order;not null;index" json:"order"`
	QuestionText  string         `gorm:"column:question_text;type:text;not null" json:"question_text"`
	Type          Archetype      `gorm:"column:type;not null;index" json:"type"`
	Difficulty    Difficulty     `gorm:"column:difficulty;not null;default:'medium'" json:"difficulty"`
	Marks         int            `gorm:"column:marks;not null" json:"marks"`
	Options       datatypes.JSON `gorm:"column:options" json:"options"`
	CorrectAnswer string         `gorm:"column:correct_answer;type:text" json:"correct_answer"`
	Explanation   string         `gorm:"column:explanation;type:text" json:"explanation,omitempty"`
	IsFallback    bool           `gorm:"column:is_fallback;not null;default:false" json:"is_fallback"`
	SourceChunkID string         `gorm:"column:source_chunk_id" json:"source_chunk_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Question) TableName() string { return "question" }

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// OptionList decodes the stored options column.
func (q *Question) OptionList() []string {
	if q == nil || len(q.Options) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(q.Options, &out); err != nil {
		return nil
	}
	return out
}

func EncodeOptions(options []string) datatypes.JSON {
	if len(options) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	b, err := json.Marshal(options)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}

// NewQuestionFromEntry builds the persisted row for one assembled slot.
func NewQuestionFromEntry(examID uuid.UUID, e QuestionSetEntry) *Question {
	return &Question{
		ID:            uuid.New(),
		ExamID:        examID,
		Order:         e.Order,
		QuestionText:  e.Text,
		Type:          e.Archetype,
		Difficulty:    e.Difficulty,
		Marks:         e.Marks,
		Options:       EncodeOptions(e.Options),
		CorrectAnswer: e.CorrectAnswer,
		Explanation:   e.Explanation,
		IsFallback:    e.IsFallback,
		SourceChunkID: e.SourceChunkID,
	}
}

// Entry is the inverse of NewQuestionFromEntry.
func (q *Question) Entry() QuestionSetEntry {
	return QuestionSetEntry{
		Order: q.Order,
		GeneratedQuestion: GeneratedQuestion{
			Archetype:     q.Type,
			Text:          q.QuestionText,
			Options:       q.OptionList(),
			CorrectAnswer: q.CorrectAnswer,
			Marks:         q.Marks,
			Difficulty:    q.Difficulty,
			Explanation:   q.Explanation,
			IsFallback:    q.IsFallback,
		},
		SourceChunkID: q.SourceChunkID,
	}
}
