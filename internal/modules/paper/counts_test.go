package paper

import (
	"strings"
	"testing"

	"github.com/yungbote/exampaper-backend/internal/domain"
)

func TestResolveCounts(t *testing.T) {
	cases := []struct {
		name      string
		spec      PaperSpec
		want      QuestionCounts
		wantMarks int
	}{
		{
			name: "weighted 100",
			spec: PaperSpec{TotalMarks: 100, Weightage: Weightage{MCQ: 20, Short: 40, Long: 40}, MarksPerQuestion: MarksPerQuestion{MCQ: 1, Short: 5, Long: 10}},
			want: QuestionCounts{MCQ: 20, Short: 8, Long: 4}, wantMarks: 100,
		},
		{
			name: "default marks per question",
			spec: PaperSpec{TotalMarks: 100, Weightage: Weightage{MCQ: 20, Short: 40, Long: 40}},
			want: QuestionCounts{MCQ: 20, Short: 8, Long: 4}, wantMarks: 100,
		},
		{
			// 16.5 rounds up, 3.3 down, 1.7 up: the paper is worth 52, not 50.
			name: "rounding is not redistributed",
			spec: PaperSpec{TotalMarks: 50, Weightage: Weightage{MCQ: 33, Short: 33, Long: 34}},
			want: QuestionCounts{MCQ: 17, Short: 3, Long: 2}, wantMarks: 52,
		},
		{
			name: "explicit counts win",
			spec: PaperSpec{TotalMarks: 100, Weightage: Weightage{MCQ: 100}, QuestionCounts: &QuestionCounts{MCQ: 2, Short: 1, Long: -3}},
			want: QuestionCounts{MCQ: 2, Short: 1, Long: 0}, wantMarks: 7,
		},
		{
			name: "zero weight",
			spec: PaperSpec{TotalMarks: 40, Weightage: Weightage{Long: 100}},
			want: QuestionCounts{Long: 4}, wantMarks: 40,
		},
	}
	for _, tc := range cases {
		got := ResolveCounts(tc.spec)
		if got.QuestionCounts != tc.want {
			t.Fatalf("%s: want=%+v got=%+v", tc.name, tc.want, got.QuestionCounts)
		}
		if got.TotalMarks() != tc.wantMarks {
			t.Fatalf("%s: total marks want=%d got=%d", tc.name, tc.wantMarks, got.TotalMarks())
		}
	}
}

func TestFallbackTemplates(t *testing.T) {
	mcq := Fallback(domain.ArchetypeMCQ, 3, 1)
	if mcq.Text != "MCQ 3 (1 mark): Write a suitable question for the syllabus topic." {
		t.Fatalf("mcq text: got=%q", mcq.Text)
	}
	if len(mcq.Options) != 4 || mcq.Options[0] != "Option A" || mcq.CorrectAnswer != "A" || !mcq.IsFallback {
		t.Fatalf("mcq shape: got=%+v", mcq)
	}
	mcq.Options[0] = "mutated"
	if FallbackOptions[0] != "Option A" {
		t.Fatalf("fallback options must be copied")
	}

	short := Fallback(domain.ArchetypeShort, 2, 5)
	if short.Text != "Short Q2 (5 marks): Provide a brief explanation on a key concept from the syllabus." || short.Difficulty != domain.DifficultyMedium {
		t.Fatalf("short: got=%+v", short)
	}
	long := Fallback(domain.ArchetypeLong, 1, 10)
	if !strings.HasPrefix(long.Text, "Long Q1 (10 marks): Discuss in detail") || long.Options != nil {
		t.Fatalf("long: got=%+v", long)
	}
}
