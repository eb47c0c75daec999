package vectorstore

import "testing"

func TestValidateRecords(t *testing.T) {
	if err := ValidateRecords([]Record{{ID: "a", Vector: []float32{1, 2}}}, 2); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}
	if err := ValidateRecords([]Record{{ID: "", Vector: []float32{1}}}, 0); err == nil {
		t.Fatalf("missing id must fail")
	}
	if err := ValidateRecords([]Record{{ID: "a"}}, 0); err == nil {
		t.Fatalf("empty vector must fail")
	}
	if err := ValidateRecords([]Record{{ID: "a", Vector: []float32{1}}}, 3); err == nil {
		t.Fatalf("dimension mismatch must fail")
	}
}

func TestScalarMetadata(t *testing.T) {
	out := ScalarMetadata(map[string]any{
		"filename": "book.pdf",
		"idx":      3,
		"tags":     []string{"a", "b"},
		"skip":     nil,
	})
	if out["filename"] != "book.pdf" || out["idx"] != 3 {
		t.Fatalf("scalars changed: %v", out)
	}
	if out["tags"] != "[a b]" {
		t.Fatalf("slice must be formatted, got=%v", out["tags"])
	}
	if _, ok := out["skip"]; ok {
		t.Fatalf("nil values must be dropped")
	}
}
