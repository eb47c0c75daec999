package questiongen

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/promptstyle"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

type promptDoc struct {
	Version    int                        `yaml:"version"`
	System     string                     `yaml:"system"`
	Question   string                     `yaml:"question"`
	Regenerate string                     `yaml:"regenerate"`
	Archetypes map[string]archetypePrompt `yaml:"archetypes"`
}

type archetypePrompt struct {
	Instruction string `yaml:"instruction"`
	Format      string `yaml:"format"`
}

// promptSet holds one compiled template tree per archetype and task.
type promptSet struct {
	version    int
	system     string
	question   map[domain.Archetype]*template.Template
	regenerate map[domain.Archetype]*template.Template
}

type promptData struct {
	Type         string
	Label        string
	LabelUpper   string
	Chunk        string
	Subject      string
	Grade        string
	Marks        int
	Difficulty   string
	PreviousText string
}

type prompt struct {
	System string
	User   string
}

func loadPrompts(raw []byte) (*promptSet, error) {
	var doc promptDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if strings.TrimSpace(doc.System) == "" || strings.TrimSpace(doc.Question) == "" || strings.TrimSpace(doc.Regenerate) == "" {
		return nil, fmt.Errorf("prompts: system, question and regenerate are required")
	}
	ps := &promptSet{
		version:    doc.Version,
		system:     promptstyle.ApplySystem(doc.System, promptstyle.ModeJSON),
		question:   map[domain.Archetype]*template.Template{},
		regenerate: map[domain.Archetype]*template.Template{},
	}
	for _, a := range domain.Archetypes {
		ap, ok := doc.Archetypes[string(a)]
		if !ok || strings.TrimSpace(ap.Instruction) == "" || strings.TrimSpace(ap.Format) == "" {
			return nil, fmt.Errorf("prompts: archetype %s missing instruction/format", a)
		}
		q, err := compile(string(a)+"/question", doc.Question, ap)
		if err != nil {
			return nil, err
		}
		r, err := compile(string(a)+"/regenerate", doc.Regenerate, ap)
		if err != nil {
			return nil, err
		}
		ps.question[a] = q
		ps.regenerate[a] = r
	}
	return ps, nil
}

func compile(name, body string, ap archetypePrompt) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}
	if _, err := t.New("instruction").Parse(strings.TrimSpace(ap.Instruction)); err != nil {
		return nil, fmt.Errorf("prompt %s instruction: %w", name, err)
	}
	if _, err := t.New("format").Parse(strings.TrimSpace(ap.Format)); err != nil {
		return nil, fmt.Errorf("prompt %s format: %w", name, err)
	}
	return t, nil
}

func (ps *promptSet) render(set map[domain.Archetype]*template.Template, a domain.Archetype, data promptData) (prompt, error) {
	t, ok := set[a]
	if !ok {
		return prompt{}, fmt.Errorf("no prompt for archetype %q", a)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return prompt{}, fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return prompt{System: ps.system, User: strings.TrimSpace(b.String())}, nil
}

func (ps *promptSet) forQuestion(req Request) (prompt, error) {
	return ps.render(ps.question, req.Archetype, newPromptData(req.Archetype, req.Marks, req.Difficulty, req.Subject, req.Grade, req.ChunkText, ""))
}

func (ps *promptSet) forRegenerate(req RegenerateRequest) (prompt, error) {
	return ps.render(ps.regenerate, req.Archetype, newPromptData(req.Archetype, req.Marks, req.Difficulty, "", "", "", req.PreviousText))
}

func newPromptData(a domain.Archetype, marks int, d domain.Difficulty, subject, grade, chunk, previous string) promptData {
	if marks <= 0 {
		marks = DefaultMarks(a)
	}
	if !d.Valid() {
		d = domain.DifficultyMedium
	}
	return promptData{
		Type:         string(a),
		Label:        a.Label(),
		LabelUpper:   strings.ToUpper(a.Label()),
		Chunk:        strings.TrimSpace(chunk),
		Subject:      orDefault(subject, "General"),
		Grade:        orDefault(grade, "General"),
		Marks:        marks,
		Difficulty:   string(d),
		PreviousText: cleanText(previous),
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
