package domain

import (
	"github.com/yungbote/exampaper-backend/internal/domain/exams"
	"github.com/yungbote/exampaper-backend/internal/domain/jobs"
	"github.com/yungbote/exampaper-backend/internal/domain/materials"
)

type (
	Archetype         = exams.Archetype
	Difficulty        = exams.Difficulty
	Exam              = exams.Exam
	Question          = exams.Question
	GeneratedQuestion = exams.GeneratedQuestion
	QuestionSetEntry  = exams.QuestionSetEntry

	Material = materials.Material
	Chunk    = materials.Chunk
	Document = materials.Document

	JobRun = jobs.JobRun
)

const (
	ArchetypeMCQ   = exams.ArchetypeMCQ
	ArchetypeShort = exams.ArchetypeShort
	ArchetypeLong  = exams.ArchetypeLong

	DifficultyEasy   = exams.DifficultyEasy
	DifficultyMedium = exams.DifficultyMedium
	DifficultyHard   = exams.DifficultyHard

	JobStatusQueued    = jobs.JobStatusQueued
	JobStatusRunning   = jobs.JobStatusRunning
	JobStatusSucceeded = jobs.JobStatusSucceeded
	JobStatusFailed    = jobs.JobStatusFailed

	ExamStatusDraft     = exams.ExamStatusDraft
	ExamStatusGenerated = exams.ExamStatusGenerated

	MaterialTypeStudy    = materials.MaterialTypeStudy
	IngestStatusPending  = materials.IngestStatusPending
	IngestStatusQueued   = materials.IngestStatusQueued
	IngestStatusDisabled = materials.IngestStatusDisabled
	IngestStatusDone     = materials.IngestStatusDone
	IngestStatusSkipped  = materials.IngestStatusSkipped
	IngestStatusFailed   = materials.IngestStatusFailed
)

var (
	Archetypes       = exams.Archetypes
	ParseArchetype   = exams.ParseArchetype
	ParseDifficulty  = exams.ParseDifficulty
	EncodeOptions    = exams.EncodeOptions
	NewQuestionEntry = exams.NewQuestionFromEntry
)
