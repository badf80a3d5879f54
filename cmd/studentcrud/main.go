package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/noah-isme/student-records/internal/models"
	"github.com/noah-isme/student-records/internal/repository"
	"github.com/noah-isme/student-records/internal/service"
	"github.com/noah-isme/student-records/pkg/config"
	"github.com/noah-isme/student-records/pkg/database"
	"github.com/noah-isme/student-records/pkg/export"
	"github.com/noah-isme/student-records/pkg/logger"
)

// Walks the canonical student CRUD sequence against the configured database:
// register two students, read one back, move it to another group, remove it,
// then print the remaining roster as CSV.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	factory, err := database.Open(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to open database", "error", err)
	}
	defer factory.Close() //nolint:errcheck

	ctx := context.Background()

	sess, err := factory.NewSession(ctx)
	if err != nil {
		logr.Sugar().Fatalw("failed to open session", "error", err)
	}
	defer sess.Close() //nolint:errcheck

	repo := repository.NewStudentRepository(sess)
	svc := service.NewStudentService(repo, nil, logr)

	created, err := svc.Register(ctx,
		service.RegisterStudentRequest{
			Name:  "Jack",
			DOB:   time.Date(2008, time.March, 14, 0, 0, 0, 0, time.UTC),
			Group: string(models.GroupLotus),
		},
		service.RegisterStudentRequest{
			Name:  "Leslie",
			DOB:   time.Date(2007, time.June, 2, 0, 0, 0, 0, time.UTC),
			Group: string(models.GroupRose),
		},
	)
	if err != nil {
		logr.Sugar().Fatalw("failed to register students", "error", err)
	}
	jackID := created[0].ID

	jack, err := svc.Get(ctx, jackID)
	if err != nil {
		logr.Sugar().Fatalw("failed to read student", "error", err)
	}
	logr.Sugar().Infow("student fetched", "id", jack.ID, "name", jack.Name, "group", jack.Group)

	if _, err := svc.ChangeGroup(ctx, jackID, models.GroupDaisy); err != nil {
		logr.Sugar().Fatalw("failed to change group", "error", err)
	}

	matching, err := svc.Search(ctx, service.SearchFilter{
		Groups: []models.Group{models.GroupRose, models.GroupDaisy},
	})
	if err != nil {
		logr.Sugar().Fatalw("failed to search students", "error", err)
	}
	logr.Sugar().Infow("students in ROSE or DAISY", "count", len(matching))

	if err := svc.Remove(ctx, jackID); err != nil {
		logr.Sugar().Fatalw("failed to remove student", "error", err)
	}

	if gone, err := svc.Get(ctx, jackID); err != nil {
		logr.Sugar().Fatalw("failed to re-read student", "error", err)
	} else if gone != nil {
		logr.Sugar().Fatalw("removed student still present", "id", jackID)
	}

	roster, err := svc.Roster(ctx)
	if err != nil {
		logr.Sugar().Fatalw("failed to load roster", "error", err)
	}

	csvBytes, err := export.NewCSVExporter().Render(roster)
	if err != nil {
		logr.Sugar().Fatalw("failed to render roster", "error", err)
	}
	fmt.Print(string(csvBytes))
}
