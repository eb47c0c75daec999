package materials

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/data/repos/testutil"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
)

func TestMaterialRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Of(ctx)
	repo := NewMaterialRepo(db, testutil.Logger(t))

	m, err := repo.Create(dbc, &types.Material{
		OriginalName: "biology.pdf",
		StorageKey:   "materials/biology.pdf",
		CollectionID: "col-1",
		IngestStatus: types.IngestStatusQueued,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	byCollection, err := repo.GetByCollectionID(dbc, "col-1")
	if err != nil || byCollection == nil || byCollection.ID != m.ID {
		t.Fatalf("GetByCollectionID: err=%v got=%v", err, byCollection)
	}

	now := time.Now().UTC()
	if err := repo.UpdateFields(dbc, m.ID, map[string]interface{}{
		"ingest_status": types.IngestStatusDone,
		"segments":      50,
		"ingested_at":   now,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, m.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if got.IngestStatus != types.IngestStatusDone || got.Segments != 50 || got.IngestedAt == nil {
		t.Fatalf("ingest fields: got status=%s segments=%d at=%v", got.IngestStatus, got.Segments, got.IngestedAt)
	}

	if none, err := repo.GetByID(dbc, uuid.New()); err != nil || none != nil {
		t.Fatalf("GetByID missing: want nil,nil got=%v,%v", none, err)
	}
	if none, err := repo.GetByCollectionID(dbc, ""); err != nil || none != nil {
		t.Fatalf("GetByCollectionID blank: want nil,nil got=%v,%v", none, err)
	}
}

func TestMaterialRepoList(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Of(context.Background())
	repo := NewMaterialRepo(db, testutil.Logger(t))

	seed := []types.Material{
		{OriginalName: "photosynthesis.pdf", ClassName: "10", Subject: "bio"},
		{OriginalName: "cells.pdf", ClassName: "10", Subject: "bio"},
		{OriginalName: "algebra.pdf", ClassName: "10", Subject: "math"},
		{OriginalName: "genetics.pdf", ClassName: "11", Subject: "bio"},
	}
	for i := range seed {
		m := seed[i]
		m.Type = types.MaterialTypeStudy
		m.StorageKey = "materials/" + m.OriginalName
		if _, err := repo.Create(dbc, &m); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	items, total, err := repo.List(dbc, ListFilter{Type: types.MaterialTypeStudy, ClassName: "10", Subject: "bio", Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(items) != 1 {
		t.Fatalf("class+subject: want total=2 len=1 got total=%d len=%d", total, len(items))
	}

	items, total, err = repo.List(dbc, ListFilter{Query: "gen"})
	if err != nil || total != 1 || len(items) != 1 || items[0].OriginalName != "genetics.pdf" {
		t.Fatalf("query: err=%v total=%d items=%v", err, total, items)
	}
}
