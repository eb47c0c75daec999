package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystemIsIdempotent(t *testing.T) {
	once := ApplySystem("  Write one MCQ.\nMore detail.", ModeJSON)
	if !strings.HasPrefix(once, marker) || !strings.Contains(once, "Task summary: Write one MCQ.") {
		t.Fatalf("prefix missing: %q", once)
	}
	if !strings.Contains(once, "single JSON object") {
		t.Fatalf("json guidance missing")
	}
	if twice := ApplySystem(once, ModeJSON); twice != once {
		t.Fatalf("second apply changed prompt")
	}
	if ApplySystem("   ", ModeText) != "" {
		t.Fatalf("blank prompt must stay blank")
	}
}
