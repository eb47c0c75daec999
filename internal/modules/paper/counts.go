package paper

import (
	"math"

	"github.com/yungbote/exampaper-backend/internal/domain"
)

// Weightage is the percentage of total marks given to each archetype.
type Weightage struct {
	MCQ   float64 `json:"mcq"`
	Short float64 `json:"short"`
	Long  float64 `json:"long"`
}

type MarksPerQuestion struct {
	MCQ   int `json:"mcq"`
	Short int `json:"short"`
	Long  int `json:"long"`
}

type QuestionCounts struct {
	MCQ   int `json:"mcqCount"`
	Short int `json:"shortCount"`
	Long  int `json:"longCount"`
}

type PaperSpec struct {
	TotalMarks       int              `json:"maxMarks"`
	Weightage        Weightage        `json:"weightage"`
	MarksPerQuestion MarksPerQuestion `json:"marksPerQuestion"`
	// QuestionCounts, when set, is used as-is instead of being derived.
	QuestionCounts *QuestionCounts `json:"questionCounts,omitempty"`
}

// Counts is the resolved slot plan for one paper.
type Counts struct {
	QuestionCounts
	Marks MarksPerQuestion `json:"marksPerQuestion"`
}

func (c Counts) Total() int { return c.MCQ + c.Short + c.Long }

// TotalMarks is what the assembled paper is actually worth. It can differ
// from PaperSpec.TotalMarks because counts are rounded independently.
func (c Counts) TotalMarks() int {
	return c.MCQ*c.Marks.MCQ + c.Short*c.Marks.Short + c.Long*c.Marks.Long
}

// For returns the slot count and per-question marks of one archetype.
func (c Counts) For(a domain.Archetype) (count, marks int) {
	switch a {
	case domain.ArchetypeMCQ:
		return c.MCQ, c.Marks.MCQ
	case domain.ArchetypeShort:
		return c.Short, c.Marks.Short
	case domain.ArchetypeLong:
		return c.Long, c.Marks.Long
	}
	return 0, 0
}

// DefaultMarksPerQuestion is 1/5/10 for mcq/short/long.
var DefaultMarksPerQuestion = MarksPerQuestion{MCQ: 1, Short: 5, Long: 10}

// ResolveCounts derives per-archetype counts as
// round(total * pct / 100 / marksPerQuestion). Rounding is per archetype and
// never redistributed.
func ResolveCounts(spec PaperSpec) Counts {
	mpq := spec.MarksPerQuestion
	if mpq.MCQ <= 0 {
		mpq.MCQ = DefaultMarksPerQuestion.MCQ
	}
	if mpq.Short <= 0 {
		mpq.Short = DefaultMarksPerQuestion.Short
	}
	if mpq.Long <= 0 {
		mpq.Long = DefaultMarksPerQuestion.Long
	}

	if qc := spec.QuestionCounts; qc != nil {
		return Counts{
			QuestionCounts: QuestionCounts{MCQ: max(qc.MCQ, 0), Short: max(qc.Short, 0), Long: max(qc.Long, 0)},
			Marks:          mpq,
		}
	}
	return Counts{
		QuestionCounts: QuestionCounts{
			MCQ:   derive(spec.TotalMarks, spec.Weightage.MCQ, mpq.MCQ),
			Short: derive(spec.TotalMarks, spec.Weightage.Short, mpq.Short),
			Long:  derive(spec.TotalMarks, spec.Weightage.Long, mpq.Long),
		},
		Marks: mpq,
	}
}

func derive(total int, pct float64, marks int) int {
	n := int(math.Round(float64(total) * pct / 100 / float64(marks)))
	if n < 0 {
		return 0
	}
	return n
}
