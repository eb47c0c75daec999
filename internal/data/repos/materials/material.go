package materials

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/platform/logger"
)

type MaterialRepo interface {
	Create(dbc dbctx.Context, material *types.Material) (*types.Material, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Material, error)
	GetByCollectionID(dbc dbctx.Context, collectionID string) (*types.Material, error)
	List(dbc dbctx.Context, f ListFilter) ([]*types.Material, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

// ListFilter narrows List. Empty fields do not filter; Query matches the
// original file name.
type ListFilter struct {
	Type      string
	ClassName string
	Subject   string
	Query     string
	Offset    int
	Limit     int
}

type materialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return &materialRepo{
		db:  db,
		log: baseLog.With("repo", "MaterialRepo"),
	}
}

func (r *materialRepo) Create(dbc dbctx.Context, material *types.Material) (*types.Material, error) {
	if material == nil {
		return nil, nil
	}
	if err := dbc.DB(r.db).Create(material).Error; err != nil {
		return nil, err
	}
	return material, nil
}

func (r *materialRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Material, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var m types.Material
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	return &m, nil
}

// GetByCollectionID returns the newest material bound to the collection.
func (r *materialRepo) GetByCollectionID(dbc dbctx.Context, collectionID string) (*types.Material, error) {
	if collectionID == "" {
		return nil, nil
	}
	var m types.Material
	if err := dbc.DB(r.db).
		Where("collection_id = ?", collectionID).
		Order("created_at DESC").
		Limit(1).
		Find(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	return &m, nil
}

func (r *materialRepo) List(dbc dbctx.Context, f ListFilter) ([]*types.Material, int64, error) {
	q := dbc.DB(r.db).Model(&types.Material{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.ClassName != "" {
		q = q.Where("class_name = ?", f.ClassName)
	}
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.Query != "" {
		q = q.Where("original_name LIKE ?", "%"+f.Query+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	var out []*types.Material
	if err := q.Order("created_at DESC").Offset(max(f.Offset, 0)).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *materialRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.DB(r.db).
		Model(&types.Material{}).
		Where("id = ?", id).
		Updates(updates).Error
}
