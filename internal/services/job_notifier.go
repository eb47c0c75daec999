package services

import (
	"context"
	"time"

	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

// JobNotifier is told about every queued job so a worker can claim it
// without waiting for its next poll.
type JobNotifier interface {
	JobCreated(job *types.JobRun)
}

// Publisher fans a wake-up out to other processes (redisbus.Bus).
type Publisher interface {
	Publish(ctx context.Context, msg string) error
}

type jobNotifier struct {
	log   *logger.Logger
	local func()
	bus   Publisher
}

// NewJobNotifier wakes the in-process worker through local and, when bus is
// set, every worker subscribed to the bus. Either may be nil.
func NewJobNotifier(baseLog *logger.Logger, local func(), bus Publisher) JobNotifier {
	return &jobNotifier{
		log:   baseLog.With("service", "JobNotifier"),
		local: local,
		bus:   bus,
	}
}

func (n *jobNotifier) JobCreated(job *types.JobRun) {
	if n == nil || job == nil {
		return
	}
	if n.local != nil {
		n.local()
	}
	if n.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.bus.Publish(ctx, job.JobType); err != nil {
		n.log.Warn("Job wake-up publish failed", "job_id", job.ID, "error", err)
	}
}
