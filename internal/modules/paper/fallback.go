package paper

import (
	"fmt"

	"github.com/yungbote/exampaper-backend/internal/domain"
)

// FallbackOptions are the generic lettered options of a fallback MCQ.
var FallbackOptions = []string{"Option A", "Option B", "Option C", "Option D"}

// Fallback is the deterministic stand-in for a slot the generator could not
// fill. index is 1-based within the archetype's block.
func Fallback(a domain.Archetype, index, marks int) domain.GeneratedQuestion {
	q := domain.GeneratedQuestion{
		Archetype:  a,
		Marks:      marks,
		Difficulty: domain.DifficultyMedium,
		IsFallback: true,
	}
	switch a {
	case domain.ArchetypeMCQ:
		q.Text = fmt.Sprintf("MCQ %d (%d mark): Write a suitable question for the syllabus topic.", index, marks)
		q.Options = append([]string(nil), FallbackOptions...)
		q.CorrectAnswer = "A"
	case domain.ArchetypeLong:
		q.Text = fmt.Sprintf("Long Q%d (%d marks): Discuss in detail with examples from the syllabus.", index, marks)
	default:
		q.Archetype = domain.ArchetypeShort
		q.Text = fmt.Sprintf("Short Q%d (%d marks): Provide a brief explanation on a key concept from the syllabus.", index, marks)
	}
	return q
}
