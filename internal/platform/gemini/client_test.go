package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestTextFromResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"question":`), genai.Text(`"x"}`)}},
	}}}
	got, err := textFromResponse(resp)
	if err != nil || got != `{"question":"x"}` {
		t.Fatalf("text: got=%q err=%v", got, err)
	}
	if _, err := textFromResponse(&genai.GenerateContentResponse{}); err == nil {
		t.Fatalf("want error without candidates")
	}
}

func TestVectorsFromBatch(t *testing.T) {
	res := &genai.BatchEmbedContentsResponse{Embeddings: []*genai.ContentEmbedding{
		{Values: []float32{1, 2}},
		{Values: []float32{3, 4}},
	}}
	got, err := vectorsFromBatch(2, res)
	if err != nil || len(got) != 2 || got[1][1] != 4 {
		t.Fatalf("vectors: got=%v err=%v", got, err)
	}
	if _, err := vectorsFromBatch(3, res); err == nil {
		t.Fatalf("want count mismatch error")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Model != "gemini-2.0-flash" || cfg.EmbedModel != "text-embedding-004" {
		t.Fatalf("defaults: got=%+v", cfg)
	}
}
