package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/http/response"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetByID(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondErr(c, "get_job_failed", err)
		return
	}
	if job == nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", errors.New("job not found"))
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
