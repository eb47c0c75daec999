package promptstyle

import "strings"

const marker = "EXAMPAPER_PROMPT_STYLE_V1"

type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
)

// ApplySystem prefixes a system prompt with the shared authoring guidance.
// Applying it twice is a no-op.
func ApplySystem(system string, mode Mode) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou write examination questions for teachers.")
	if first := firstLine(base); first != "" {
		b.WriteString("\nTask summary: " + first)
	}
	b.WriteString("\nGround every question in the supplied study material only.")
	b.WriteString("\nDo not invent facts, citations or page numbers.")
	if mode == ModeJSON {
		b.WriteString("\nReturn a single JSON object and nothing else. No markdown fences.")
	} else {
		b.WriteString("\nBe concise.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
