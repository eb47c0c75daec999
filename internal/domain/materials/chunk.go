package materials

// Chunk is a bounded segment of extracted text: the unit of retrieval and
// grounding. Chunks live in the vector store only.
type Chunk struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Document is what gets upserted into a collection: a chunk's text plus the
// per-batch metadata attached by ingestion.
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
