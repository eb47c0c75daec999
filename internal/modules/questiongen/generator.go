// Package questiongen turns one chunk of study material into one validated
// exam question. It never substitutes a fallback itself; exhaustion is
// reported as a *Failure and the caller decides what fills the slot.
package questiongen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/observability"
	"github.com/yungbote/exampaper-backend/internal/platform/httpx"
	"github.com/yungbote/exampaper-backend/internal/platform/llm"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

const (
	DefaultMaxRetries = 3
	DefaultTimeout    = 30 * time.Second
	DefaultRetryBase  = time.Second
)

// DefaultMarks is the per-archetype mark value used when neither the caller
// nor the model supplies one.
func DefaultMarks(a domain.Archetype) int {
	switch a {
	case domain.ArchetypeMCQ:
		return 1
	case domain.ArchetypeLong:
		return 10
	default:
		return 5
	}
}

type Config struct {
	MaxRetries int
	Timeout    time.Duration
	RetryBase  time.Duration
	// RPS caps backend calls per second across the process; 0 is unlimited.
	RPS float64
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	return c
}

type Deps struct {
	Log     *logger.Logger
	Model   llm.TextGenerator
	Metrics *observability.Metrics
	// Sleep waits between attempts; nil uses httpx.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

type Request struct {
	ChunkText  string
	Archetype  domain.Archetype
	Subject    string
	Grade      string
	Marks      int
	Difficulty domain.Difficulty
}

type RegenerateRequest struct {
	Archetype    domain.Archetype
	Marks        int
	Difficulty   domain.Difficulty
	PreviousText string
}

type Generator struct {
	log     *logger.Logger
	model   llm.TextGenerator
	metrics *observability.Metrics
	prompts *promptSet
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
	cfg     Config
}

func New(deps Deps, cfg Config) (*Generator, error) {
	if deps.Model == nil {
		return nil, fmt.Errorf("questiongen: model required")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Sleep == nil {
		deps.Sleep = httpx.Sleep
	}
	ps, err := loadPrompts(defaultPromptsYAML)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &Generator{
		log:     deps.Log.With("service", "QuestionGenerator"),
		model:   deps.Model,
		metrics: deps.Metrics,
		prompts: ps,
		limiter: rate.NewLimiter(limit, 1),
		sleep:   deps.Sleep,
		cfg:     cfg,
	}, nil
}

// Generate asks the model for one question grounded in req.ChunkText. The
// returned error is always a *Failure.
func (g *Generator) Generate(ctx context.Context, req Request) (domain.GeneratedQuestion, error) {
	if !req.Archetype.Valid() {
		return domain.GeneratedQuestion{}, &Failure{Kind: KindSchemaInvalid, Last: KindSchemaInvalid, Cause: fmt.Errorf("unknown archetype %q", req.Archetype)}
	}
	p, err := g.prompts.forQuestion(req)
	if err != nil {
		return domain.GeneratedQuestion{}, &Failure{Kind: KindSchemaInvalid, Last: KindSchemaInvalid, Cause: err}
	}
	return g.run(ctx, p, req.Archetype, req.Marks, req.Difficulty)
}

// Regenerate produces a replacement question without chunk context.
func (g *Generator) Regenerate(ctx context.Context, req RegenerateRequest) (domain.GeneratedQuestion, error) {
	if !req.Archetype.Valid() {
		return domain.GeneratedQuestion{}, &Failure{Kind: KindSchemaInvalid, Last: KindSchemaInvalid, Cause: fmt.Errorf("unknown archetype %q", req.Archetype)}
	}
	p, err := g.prompts.forRegenerate(req)
	if err != nil {
		return domain.GeneratedQuestion{}, &Failure{Kind: KindSchemaInvalid, Last: KindSchemaInvalid, Cause: err}
	}
	return g.run(ctx, p, req.Archetype, req.Marks, req.Difficulty)
}

func (g *Generator) run(ctx context.Context, p prompt, want domain.Archetype, marks int, difficulty domain.Difficulty) (domain.GeneratedQuestion, error) {
	var last *attemptError
	for attempt := 1; attempt <= g.cfg.MaxRetries; attempt++ {
		q, aerr := g.attempt(ctx, p, want, marks, difficulty)
		if aerr == nil {
			g.metrics.IncGenerationAttempt(string(want), "ok")
			if attempt > 1 {
				g.log.Debug("Question generated after retry", "archetype", want, "attempt", attempt)
			}
			return q, nil
		}
		last = aerr
		g.metrics.IncGenerationAttempt(string(want), string(aerr.kind))
		g.log.Warn("Question generation attempt failed",
			"archetype", want,
			"attempt", attempt,
			"max_attempts", g.cfg.MaxRetries,
			"kind", aerr.kind,
			"error", aerr.err,
		)

		if ctx.Err() != nil {
			return domain.GeneratedQuestion{}, &Failure{Kind: KindProviderUnavailable, Last: aerr.kind, Attempts: attempt, Cause: aerr}
		}
		if attempt == g.cfg.MaxRetries {
			break
		}
		if err := g.sleep(ctx, httpx.LinearBackoff(attempt, g.cfg.RetryBase)); err != nil {
			return domain.GeneratedQuestion{}, &Failure{Kind: KindProviderUnavailable, Last: aerr.kind, Attempts: attempt, Cause: err}
		}
	}
	return domain.GeneratedQuestion{}, &Failure{Kind: KindExhausted, Last: last.kind, Attempts: g.cfg.MaxRetries, Cause: last}
}

func (g *Generator) attempt(ctx context.Context, p prompt, want domain.Archetype, marks int, difficulty domain.Difficulty) (domain.GeneratedQuestion, *attemptError) {
	if err := g.limiter.Wait(ctx); err != nil {
		return domain.GeneratedQuestion{}, &attemptError{kind: KindProviderUnavailable, err: err}
	}
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	raw, err := g.model.GenerateText(callCtx, p.System, p.User)
	if err != nil {
		return domain.GeneratedQuestion{}, &attemptError{kind: KindProviderUnavailable, err: err}
	}
	rq, err := decode(raw)
	if err != nil {
		return domain.GeneratedQuestion{}, &attemptError{kind: KindMalformedOutput, err: err}
	}
	q := normalize(rq, want, marks, difficulty)
	if err := validate(q, want); err != nil {
		return domain.GeneratedQuestion{}, &attemptError{kind: KindSchemaInvalid, err: err}
	}
	return q, nil
}

// KindOf reports the Failure kind carried by err, or "" when err is not one.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
