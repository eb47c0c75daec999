package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/exampaper-backend/internal/app"
	types "github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/dbctx"
	"github.com/yungbote/exampaper-backend/internal/services"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var ids idList
	var statuses string
	var dryRun bool
	var limit int
	flag.Var(&ids, "material", "material id to re-ingest (repeatable)")
	flag.StringVar(&statuses, "status", "failed,skipped,disabled", "ingest statuses to pick up when no -material is given")
	flag.BoolVar(&dryRun, "dry-run", false, "print planned jobs without enqueueing")
	flag.IntVar(&limit, "limit", 0, "limit number of materials processed")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		application.Close(ctx)
	}()

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	var rows []*types.Material
	if len(ids) > 0 {
		for _, s := range ids {
			id, err := uuid.Parse(s)
			if err != nil || id == uuid.Nil {
				fmt.Printf("skipping invalid material id %q\n", s)
				continue
			}
			m, err := application.Repos.Material.GetByID(dbc, id)
			if err != nil {
				fmt.Printf("load material %s: %v\n", id, err)
				continue
			}
			if m != nil {
				rows = append(rows, m)
			}
		}
	} else {
		var want []string
		for _, s := range strings.Split(statuses, ",") {
			if s = strings.TrimSpace(s); s != "" {
				want = append(want, s)
			}
		}
		q := application.DB.WithContext(ctx).Where("collection_id <> ''").Order("created_at ASC")
		if len(want) > 0 {
			q = q.Where("ingest_status IN ?", want)
		}
		if limit > 0 {
			q = q.Limit(limit)
		}
		if err := q.Find(&rows).Error; err != nil {
			fmt.Printf("load materials: %v\n", err)
			os.Exit(1)
		}
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	enqueued := 0
	for _, m := range rows {
		if dryRun {
			fmt.Printf("[dry-run] enqueue %s material_id=%s status=%s\n", services.IngestMaterialJobType, m.ID, m.IngestStatus)
			continue
		}
		job, err := application.Services.Jobs.Enqueue(dbc, services.IngestMaterialJobType, "material", &m.ID, map[string]any{
			"material_id": m.ID.String(),
		})
		if err != nil {
			fmt.Printf("enqueue failed for material %s: %v\n", m.ID, err)
			continue
		}
		if err := application.Repos.Material.UpdateFields(dbc, m.ID, map[string]interface{}{
			"ingest_status": types.IngestStatusQueued,
			"ingest_error":  "",
		}); err != nil {
			fmt.Printf("mark queued failed for material %s: %v\n", m.ID, err)
		}
		enqueued++
		fmt.Printf("enqueued %s job_id=%s material_id=%s\n", services.IngestMaterialJobType, job.ID, m.ID)
	}

	fmt.Printf("done; enqueued=%d\n", enqueued)
}
