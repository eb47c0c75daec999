package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/http/response"
	"github.com/yungbote/exampaper-backend/internal/modules/paper"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/services"
)

type QuestionHandler struct {
	log       *logger.Logger
	questions services.QuestionService
}

func NewQuestionHandler(log *logger.Logger, questions services.QuestionService) *QuestionHandler {
	return &QuestionHandler{log: log.With("handler", "QuestionHandler"), questions: questions}
}

type generateRequest struct {
	paper.PaperSpec
	Difficulty string `json:"difficulty"`
	ClassID    string `json:"classId"`
	SubjectID  string `json:"subjectId"`
	Title      string `json:"title"`
	Duration   int    `json:"duration"`
	// VectorCollectionID wins over CollectionID when both are sent.
	VectorCollectionID string `json:"vectorCollectionID"`
	CollectionID       string `json:"collectionId"`
	MaterialID         string `json:"materialId"`
}

// POST /api/questions/generate/:examId
func (h *QuestionHandler) Generate(c *gin.Context) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	// An unparseable exam id means "create a new exam".
	examID, _ := uuid.Parse(c.Param("examId"))

	req := paper.GenerateRequest{
		ExamID:       examID,
		Spec:         body.PaperSpec,
		CollectionID: strings.TrimSpace(body.VectorCollectionID),
		ClassID:      strings.TrimSpace(body.ClassID),
		SubjectID:    strings.TrimSpace(body.SubjectID),
		Title:        strings.TrimSpace(body.Title),
		Duration:     body.Duration,
	}
	if req.CollectionID == "" {
		req.CollectionID = strings.TrimSpace(body.CollectionID)
	}
	if body.Difficulty != "" {
		req.Difficulty = domain.ParseDifficulty(body.Difficulty)
	}
	if body.MaterialID != "" {
		mid, err := uuid.Parse(body.MaterialID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_material_id", err)
			return
		}
		req.MaterialID = &mid
	}

	res, err := h.questions.Generate(c.Request.Context(), req)
	if err != nil {
		h.log.Warn("Paper generation failed", "exam_id", examID, "error", err)
		response.RespondErr(c, "generate_failed", err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/questions/by-exam/:examId
func (h *QuestionHandler) ListByExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_exam_id", err)
		return
	}
	out, err := h.questions.ListByExam(c.Request.Context(), examID)
	if err != nil {
		response.RespondErr(c, "list_questions_failed", err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/questions/update/:id
func (h *QuestionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}
	var body services.QuestionUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	q, err := h.questions.Update(c.Request.Context(), id, body)
	if err != nil {
		response.RespondErr(c, "update_question_failed", err)
		return
	}
	response.RespondOK(c, q)
}

// POST /api/questions/regenerate/:id
func (h *QuestionHandler) Regenerate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}
	res, err := h.questions.Regenerate(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, "regenerate_failed", err)
		return
	}
	response.RespondOK(c, res)
}
