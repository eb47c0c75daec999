package exams

import "strings"

// Archetype is one of the three question kinds an exam paper is built from.
type Archetype string

const (
	ArchetypeMCQ   Archetype = "multiple_choice"
	ArchetypeShort Archetype = "short_answer"
	ArchetypeLong  Archetype = "long_answer"
)

// Archetypes lists archetypes in paper order.
var Archetypes = []Archetype{ArchetypeMCQ, ArchetypeShort, ArchetypeLong}

func (a Archetype) Valid() bool {
	switch a {
	case ArchetypeMCQ, ArchetypeShort, ArchetypeLong:
		return true
	}
	return false
}

// Label is the short name used in prompts, metrics and fallback text.
func (a Archetype) Label() string {
	switch a {
	case ArchetypeMCQ:
		return "mcq"
	case ArchetypeShort:
		return "short"
	case ArchetypeLong:
		return "long"
	}
	return string(a)
}

// ParseArchetype maps loose model/user spellings onto the canonical set.
// Anything unrecognized is a short answer.
func ParseArchetype(raw string) Archetype {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "multiple"), strings.Contains(s, "choice"), strings.Contains(s, "mcq"):
		return ArchetypeMCQ
	case strings.Contains(s, "long"), strings.Contains(s, "essay"):
		return ArchetypeLong
	default:
		return ArchetypeShort
	}
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

func ParseDifficulty(raw string) Difficulty {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "hard"), strings.Contains(s, "difficult"):
		return DifficultyHard
	case strings.Contains(s, "easy"), strings.Contains(s, "simple"):
		return DifficultyEasy
	default:
		return DifficultyMedium
	}
}
