package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	jobrepo "github.com/yungbote/exampaper-backend/internal/data/repos/jobs"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/ctxutil"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
)

/*
Context is the execution handle for one claimed job run. Handlers never
write job_run directly; they report through Progress, Fail and Succeed.
*/
type Context struct {
	Ctx     context.Context
	Job     *types.JobRun
	Repo    jobrepo.JobRunRepo
	payload map[string]any
	done    bool
}

func NewContext(ctx context.Context, job *types.JobRun, repo jobrepo.JobRunRepo) *Context {
	c := &Context{
		Ctx:  ctx,
		Job:  job,
		Repo: repo,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

// decodePayload leaves an empty map behind on malformed JSON; handlers
// validate required fields themselves.
func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	if m == nil {
		m = map[string]any{}
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	if c == nil || c.Ctx == nil {
		return
	}
	traceID := c.PayloadString("trace_id")
	reqID := c.PayloadString("request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: reqID,
	})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s := c.PayloadString(key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Done reports whether Fail or Succeed already ran.
func (c *Context) Done() bool { return c != nil && c.done }

func (c *Context) dbc() dbctx.Context {
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return dbctx.Context{Ctx: ctx}
}

// Progress records a non-terminal stage and refreshes the heartbeat so the
// run is not reclaimed as stale.
func (c *Context) Progress(stage string, pct int) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now()
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		_ = c.Repo.UpdateFields(c.dbc(), c.Job.ID, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	}
	c.Job.Stage = stage
	c.Job.Progress = pct
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
}

// Fail marks the run failed. The worker may claim it again after the retry
// delay while attempts remain.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		_ = c.Repo.UpdateFields(c.dbc(), c.Job.ID, map[string]interface{}{
			"status":        types.JobStatusFailed,
			"stage":         stage,
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
	}
	c.Job.Status = types.JobStatusFailed
	c.Job.Stage = stage
	c.Job.Error = msg
	c.Job.LastErrorAt = &now
	c.Job.LockedAt = nil
	c.Job.UpdatedAt = now
	c.done = true
}

// Succeed marks the run succeeded and stores result as JSON.
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil || c.Job == nil {
		return
	}
	now := time.Now()
	res := datatypes.JSON([]byte(`{}`))
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		}
	}
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		_ = c.Repo.UpdateFields(c.dbc(), c.Job.ID, map[string]interface{}{
			"status":       types.JobStatusSucceeded,
			"stage":        finalStage,
			"progress":     100,
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	}
	c.Job.Status = types.JobStatusSucceeded
	c.Job.Stage = finalStage
	c.Job.Progress = 100
	c.Job.Error = ""
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
	c.done = true
}
