package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/http/response"
	"github.com/yungbote/exampaper-backend/internal/modules/collections"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/ollama"
	"github.com/yungbote/exampaper-backend/internal/services"
)

// CollectionInspector is the read side of the collection gateway.
type CollectionInspector interface {
	Validate(ctx context.Context, collectionID string) collections.Validation
	Stats(ctx context.Context, collectionID string) collections.Stats
}

// ModelHealth reports on the local Ollama model; nil when another provider is
// configured.
type ModelHealth interface {
	Health(ctx context.Context) ollama.Health
}

type MaterialHandler struct {
	log            *logger.Logger
	materials      services.MaterialService
	collections    CollectionInspector
	modelHealth    ModelHealth
	maxUploadBytes int64
}

func NewMaterialHandler(log *logger.Logger, materials services.MaterialService, collections CollectionInspector, modelHealth ModelHealth, maxUploadBytes int64) *MaterialHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 * 1024 * 1024
	}
	return &MaterialHandler{
		log:            log.With("handler", "MaterialHandler"),
		materials:      materials,
		collections:    collections,
		modelHealth:    modelHealth,
		maxUploadBytes: maxUploadBytes,
	}
}

// POST /api/materials/study
func (h *MaterialHandler) UploadStudy(c *gin.Context) {
	// Multipart overhead on top of the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("file exceeds %d bytes", h.maxUploadBytes))
			return
		}
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fh.Size > h.maxUploadBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("file exceeds %d bytes", h.maxUploadBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()

	res, err := h.materials.UploadStudyMaterial(c.Request.Context(), services.UploadStudyMaterialInput{
		TeacherID:    c.PostForm("teacherId"),
		ClassName:    c.PostForm("class"),
		Subject:      c.PostForm("subject"),
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
		SizeBytes:    fh.Size,
		Reader:       f,
	})
	if err != nil {
		h.log.Warn("Upload failed", "file", fh.Filename, "error", err)
		response.RespondErr(c, "upload_failed", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /api/materials/study
func (h *MaterialHandler) ListStudy(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	out, err := h.materials.ListStudy(c.Request.Context(), services.ListStudyInput{
		ClassName: c.Query("class"),
		Subject:   c.Query("subject"),
		Query:     c.Query("q"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		response.RespondErr(c, "list_materials_failed", err)
		return
	}
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	response.RespondOK(c, out)
}

// GET /api/materials/:id
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_material_id", err)
		return
	}
	m, err := h.materials.GetByID(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, "get_material_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"material": m})
}

// GET /api/materials/collection/:id/validate
func (h *MaterialHandler) ValidateCollection(c *gin.Context) {
	id := c.Param("id")
	v := h.collections.Validate(c.Request.Context(), id)
	response.RespondOK(c, gin.H{
		"collectionId": id,
		"validation":   v,
		"timestamp":    time.Now().UTC(),
	})
}

// GET /api/materials/collection/:id/stats
func (h *MaterialHandler) CollectionStats(c *gin.Context) {
	id := c.Param("id")
	response.RespondOK(c, gin.H{
		"collectionId": id,
		"stats":        h.collections.Stats(c.Request.Context(), id),
	})
}

// GET /api/materials/ollama-health
func (h *MaterialHandler) OllamaHealth(c *gin.Context) {
	if h.modelHealth == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "ollama_not_configured", errors.New("ollama is not the configured model provider"))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	response.RespondOK(c, gin.H{
		"ollamaHealth": h.modelHealth.Health(ctx),
		"timestamp":    time.Now().UTC(),
	})
}
