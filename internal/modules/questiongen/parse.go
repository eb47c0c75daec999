package questiongen

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/exampaper-backend/internal/domain"
)

var (
	errNoObject   = errors.New("no JSON object in model output")
	errUnbalanced = errors.New("unbalanced JSON object in model output")
)

// extractObject returns the first balanced {...} in raw. Braces inside JSON
// strings do not count.
func extractObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", errNoObject
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", errUnbalanced
}

// rawQuestion accepts the loose shapes models actually return.
type rawQuestion struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Question    string `json:"question"`
	Options     []any  `json:"options"`
	Answer      any    `json:"answer"`
	Marks       any    `json:"marks"`
	Difficulty  string `json:"difficulty"`
	Explanation string `json:"explanation"`
}

func decode(raw string) (rawQuestion, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return rawQuestion{}, err
	}
	var rq rawQuestion
	if err := json.Unmarshal([]byte(obj), &rq); err != nil {
		return rawQuestion{}, fmt.Errorf("decode question json: %w", err)
	}
	return rq, nil
}

var (
	optionPrefix = regexp.MustCompile(`^\(?[A-Da-d](?:\)|\.|:|\s*-)\s+`)
	answerLetter = regexp.MustCompile(`^(?i:option\s+)?\(?([A-Da-d])(?:\)|\.|:|\s*-|\s|$)`)
)

// normalize maps a decoded object onto the canonical question shape. want is
// the requested archetype; marks and difficulty fall back to the request.
func normalize(rq rawQuestion, want domain.Archetype, marks int, difficulty domain.Difficulty) domain.GeneratedQuestion {
	q := domain.GeneratedQuestion{
		Archetype:   want,
		Text:        cleanText(firstNonEmpty(rq.Text, rq.Question)),
		Explanation: cleanText(rq.Explanation),
	}
	if t := strings.TrimSpace(rq.Type); t != "" {
		q.Archetype = domain.ParseArchetype(t)
	}

	switch {
	case marks > 0:
		q.Marks = marks
	default:
		q.Marks = parseMarks(rq.Marks)
		if q.Marks == 0 {
			q.Marks = DefaultMarks(want)
		}
	}

	switch {
	case strings.TrimSpace(rq.Difficulty) != "":
		q.Difficulty = domain.ParseDifficulty(rq.Difficulty)
	case difficulty.Valid():
		q.Difficulty = difficulty
	default:
		q.Difficulty = domain.DifficultyMedium
	}

	answer := cleanText(stringify(rq.Answer))
	if q.Archetype == domain.ArchetypeMCQ {
		for _, o := range rq.Options {
			q.Options = append(q.Options, stripOptionPrefix(cleanText(stringify(o))))
		}
		q.CorrectAnswer = answerToLetter(answer, q.Options)
	} else {
		q.CorrectAnswer = answer
	}
	return q
}

// parseMarks returns 0 for anything that is not a positive whole number.
func parseMarks(v any) int {
	switch m := v.(type) {
	case float64:
		if m > 0 {
			return int(m)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(m)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func stripOptionPrefix(s string) string {
	return strings.TrimSpace(optionPrefix.ReplaceAllString(s, ""))
}

func answerToLetter(answer string, options []string) string {
	if answer == "" {
		return ""
	}
	if len(answer) > 1 {
		bare := stripOptionPrefix(answer)
		for i, o := range options {
			if i < 4 && o != "" && strings.EqualFold(o, bare) {
				return string(rune('A' + i))
			}
		}
	}
	if m := answerLetter.FindStringSubmatch(answer); m != nil {
		return strings.ToUpper(m[1])
	}
	return answer
}

// validate applies the acceptance rules and reports every violation.
func validate(q domain.GeneratedQuestion, want domain.Archetype) error {
	var issues []string
	if q.Archetype != want {
		issues = append(issues, fmt.Sprintf("type %s does not match requested %s", q.Archetype, want))
	}
	if len([]rune(strings.TrimSpace(q.Text))) < 10 {
		issues = append(issues, "question text shorter than 10 characters")
	}
	if q.Marks <= 0 {
		issues = append(issues, "marks must be positive")
	}
	if !q.Difficulty.Valid() {
		issues = append(issues, fmt.Sprintf("invalid difficulty %q", q.Difficulty))
	}
	if q.Archetype == domain.ArchetypeMCQ {
		if len(q.Options) != 4 {
			issues = append(issues, fmt.Sprintf("mcq needs exactly 4 options, got %d", len(q.Options)))
		}
		switch q.CorrectAnswer {
		case "A", "B", "C", "D":
		default:
			issues = append(issues, fmt.Sprintf("mcq answer %q is not one of A, B, C, D", q.CorrectAnswer))
		}
	} else if len([]rune(strings.TrimSpace(q.CorrectAnswer))) < 5 {
		issues = append(issues, "answer shorter than 5 characters")
	}
	if len(issues) > 0 {
		return errors.New(strings.Join(issues, "; "))
	}
	return nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
