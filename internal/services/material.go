package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/data/repos"
	"github.com/yungbote/exampaper-backend/internal/data/repos/materials"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/apierr"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
	"github.com/yungbote/exampaper-backend/internal/platform/memguard"
	"github.com/yungbote/exampaper-backend/internal/platform/objectstore"
)

const IngestMaterialJobType = "ingest_material"

type MaterialService interface {
	UploadStudyMaterial(ctx context.Context, in UploadStudyMaterialInput) (*UploadResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Material, error)
	ListStudy(ctx context.Context, in ListStudyInput) (*MaterialPage, error)
}

// CollectionCreator allocates the vector collection an upload is ingested
// into.
type CollectionCreator interface {
	CreateCollection(ctx context.Context, sourceLabel string) (string, error)
}

type UploadStudyMaterialInput struct {
	TeacherID    string
	ClassName    string
	Subject      string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	Reader       io.Reader
}

type UploadResult struct {
	Material *types.Material `json:"material"`
	JobID    *uuid.UUID      `json:"job_id,omitempty"`
}

type ListStudyInput struct {
	ClassName string
	Subject   string
	Query     string
	Page      int
	Limit     int
}

type MaterialPage struct {
	Items []*types.Material `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Pages int               `json:"pages"`
}

type MaterialServiceConfig struct {
	IngestEnabled bool
	// HeapGuard blocks enqueueing while the process heap is over its ceiling.
	HeapGuard memguard.Guard
}

type materialService struct {
	log         *logger.Logger
	materials   repos.MaterialRepo
	blobs       objectstore.Store
	collections CollectionCreator
	jobs        JobService
	cfg         MaterialServiceConfig
}

func NewMaterialService(
	baseLog *logger.Logger,
	materialRepo repos.MaterialRepo,
	blobs objectstore.Store,
	collections CollectionCreator,
	jobs JobService,
	cfg MaterialServiceConfig,
) MaterialService {
	return &materialService{
		log:         baseLog.With("service", "MaterialService"),
		materials:   materialRepo,
		blobs:       blobs,
		collections: collections,
		jobs:        jobs,
		cfg:         cfg,
	}
}

// UploadStudyMaterial stores the blob, allocates a collection, saves the
// material row and queues ingestion. Ingestion outcomes land on the material
// later; they never fail the upload.
func (s *materialService) UploadStudyMaterial(ctx context.Context, in UploadStudyMaterialInput) (*UploadResult, error) {
	in.TeacherID = strings.TrimSpace(in.TeacherID)
	in.ClassName = strings.TrimSpace(in.ClassName)
	in.Subject = strings.TrimSpace(in.Subject)
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(in.OriginalName), "\\", "/"))
	if in.Reader == nil || name == "" || name == "." || name == "/" {
		return nil, apierr.BadRequest("missing_file", "file is required")
	}
	if in.TeacherID == "" || in.ClassName == "" || in.Subject == "" {
		return nil, apierr.BadRequest("missing_fields", "teacherId, class and subject are required")
	}

	id := uuid.New()
	key, err := objectstore.CleanKey(fmt.Sprintf("materials/%s/%s", id, name))
	if err != nil {
		return nil, apierr.BadRequest("invalid_file_name", err.Error())
	}
	if in.MimeType == "" {
		in.MimeType = objectstore.ContentTypeForKey(key)
	}
	if err := s.blobs.Put(ctx, key, in.Reader, in.SizeBytes, in.MimeType); err != nil {
		return nil, fmt.Errorf("store material blob: %w", err)
	}

	collectionID, err := s.collections.CreateCollection(ctx, name)
	if err != nil {
		_ = s.blobs.Delete(ctx, key)
		return nil, fmt.Errorf("create collection: %w", err)
	}

	mat := &types.Material{
		ID:           id,
		Type:         types.MaterialTypeStudy,
		TeacherID:    in.TeacherID,
		ClassName:    in.ClassName,
		Subject:      in.Subject,
		OriginalName: name,
		MimeType:     in.MimeType,
		SizeBytes:    in.SizeBytes,
		StorageKey:   key,
		FileURL:      s.blobs.URL(key),
		CollectionID: collectionID,
		IngestStatus: types.IngestStatusPending,
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.materials.Create(dbc, mat); err != nil {
		return nil, fmt.Errorf("save material: %w", err)
	}
	log := s.log.With("material_id", mat.ID, "collection_id", collectionID)

	res := &UploadResult{Material: mat}
	status, reason := s.admitIngestion()
	if status == types.IngestStatusQueued {
		job, err := s.jobs.Enqueue(dbc, IngestMaterialJobType, "material", &mat.ID, map[string]any{
			"material_id": mat.ID.String(),
		})
		if err != nil {
			log.Warn("Enqueue ingestion failed", "error", err)
			status, reason = types.IngestStatusFailed, "could not queue ingestion"
		} else {
			res.JobID = &job.ID
		}
	}
	if err := s.materials.UpdateFields(dbc, mat.ID, map[string]interface{}{
		"ingest_status": status,
		"ingest_error":  reason,
	}); err != nil {
		log.Warn("Recording ingest status failed", "error", err)
	} else {
		mat.IngestStatus = status
		mat.IngestError = reason
	}

	log.Info("Study material uploaded", "name", name, "size_bytes", in.SizeBytes, "ingest_status", status)
	return res, nil
}

func (s *materialService) admitIngestion() (string, string) {
	if !s.cfg.IngestEnabled {
		return types.IngestStatusDisabled, ""
	}
	if s.cfg.HeapGuard != nil {
		if mb, over := s.cfg.HeapGuard.Check(); over {
			s.log.Warn("Skipping ingestion due to high memory usage", "heap_mb", int(mb))
			return types.IngestStatusSkipped, fmt.Sprintf("heap usage %dMB over ingestion guard", int(mb))
		}
	}
	return types.IngestStatusQueued, ""
}

func (s *materialService) GetByID(ctx context.Context, id uuid.UUID) (*types.Material, error) {
	if id == uuid.Nil {
		return nil, apierr.BadRequest("invalid_id", "invalid material id")
	}
	m, err := s.materials.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apierr.NotFound("material_not_found", "material not found")
	}
	return m, nil
}

func (s *materialService) ListStudy(ctx context.Context, in ListStudyInput) (*MaterialPage, error) {
	page := max(in.Page, 1)
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	limit = min(limit, 100)
	items, total, err := s.materials.List(dbctx.Context{Ctx: ctx}, materials.ListFilter{
		Type:      types.MaterialTypeStudy,
		ClassName: strings.TrimSpace(in.ClassName),
		Subject:   strings.TrimSpace(in.Subject),
		Query:     strings.TrimSpace(in.Query),
		Offset:    (page - 1) * limit,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*types.Material{}
	}
	return &MaterialPage{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}
