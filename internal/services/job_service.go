package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/exampaper-backend/internal/data/repos"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/ctxutil"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	GetLatestForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error)
}

type jobService struct {
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier
}

func NewJobService(baseLog *logger.Logger, repo repos.JobRunRepo, notify JobNotifier) JobService {
	return &jobService{
		log:    baseLog.With("service", "JobService"),
		repo:   repo,
		notify: notify,
	}
}

// Enqueue stores a queued job_run. Trace and request ids from the caller's
// context travel in the payload so the worker can log under the same ids.
func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	now := time.Now()
	job := &types.JobRun{
		ID:         uuid.New(),
		JobType:    jobType,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     types.JobStatusQueued,
		Stage:      "queued",
		Payload:    datatypes.JSON(b),
		Result:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.Info("Job enqueued", "job_id", job.ID, "job_type", jobType, "entity_type", entityType)

	// Inside a caller transaction the row is not visible to workers yet; the
	// next poll picks it up after commit.
	if dbc.Tx == nil && s.notify != nil {
		s.notify.JobCreated(job)
	}
	return job, nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id")
	}
	return s.repo.GetByID(dbc, jobID)
}

func (s *jobService) GetLatestForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error) {
	return s.repo.GetLatestByEntity(dbc, entityType, entityID, jobType)
}
