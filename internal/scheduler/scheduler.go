/**
 * @description
 * Periodic job scheduler for the ingestion pipeline.
 * Listing and detail scrapes run on independent ticks, each in its own
 * goroutine with panic recovery, so one failing worker never stops the
 * other. After every successful run the scheduler stamps a last_run_* key
 * in the system_status table for external monitoring.
 *
 * @dependencies
 * - backend/internal/scraper
 * - backend/internal/importer
 * - gorm.io/gorm
 */

package scheduler

import (
	"context"
	"time"

	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/importer"
	"github.com/licitabot/backend/internal/logger"
	"github.com/licitabot/backend/internal/models"
	"github.com/licitabot/backend/internal/scraper"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const monthlyCheckInterval = 12 * time.Hour

// Scheduler owns the periodic ingestion jobs.
type Scheduler struct {
	DB             *gorm.DB
	Listing        *scraper.ListingScraper
	Detail         *scraper.DetailScraper
	Importer       *importer.Importer
	ListingEvery   time.Duration
	DetailEvery    time.Duration
	MonthlyEnabled bool
}

// New wires the scheduler from config.
func New(conn *gorm.DB, listing *scraper.ListingScraper, detail *scraper.DetailScraper, imp *importer.Importer, cfg *config.Config) *Scheduler {
	return &Scheduler{
		DB:             conn,
		Listing:        listing,
		Detail:         detail,
		Importer:       imp,
		ListingEvery:   cfg.Scraper.ListingInterval,
		DetailEvery:    cfg.Scraper.DetailInterval,
		MonthlyEnabled: cfg.Importer.MonthlyEnabled,
	}
}

// Start launches every periodic task. It returns immediately; tasks stop
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, "listing", s.ListingEvery, s.runListing)
	go s.loop(ctx, "detail", s.DetailEvery, s.runDetail)
	if s.MonthlyEnabled && s.Importer != nil {
		go s.loop(ctx, "monthly-import", monthlyCheckInterval, s.runMonthly)
	}
}

// loop runs job immediately and then on every tick. Each invocation gets
// its own goroutine so a slow job never blocks the ticker, and a recover
// so a panicking job never takes the scheduler down.
func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration, job func(context.Context)) {
	run := func() {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("scheduler: %s job panicked: %v", name, r)
				}
			}()
			job(ctx)
		}()
	}

	run()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler: %s task stopped", name)
			return
		case <-ticker.C:
			run()
		}
	}
}

func (s *Scheduler) runListing(ctx context.Context) {
	result, err := s.Listing.Run(ctx)
	if err != nil {
		logger.Error("scheduler: listing run failed: %v", err)
		return
	}
	s.stamp(ctx, models.StatusKeyLastListingRun)
	logger.Info("scheduler: listing run ok (%d tenders)", result.Upserted)
}

func (s *Scheduler) runDetail(ctx context.Context) {
	result, err := s.Detail.Run(ctx)
	if err != nil {
		logger.Error("scheduler: detail run failed: %v", err)
		return
	}
	s.stamp(ctx, models.StatusKeyLastDetailRun)
	logger.Info("scheduler: detail run ok (processed=%d errors=%d)", result.Processed, result.Errors)
}

// runMonthly imports the previous calendar month; the importer's own guard
// makes the periodic retry a no-op once the month is in.
func (s *Scheduler) runMonthly(ctx context.Context) {
	month := time.Now().AddDate(0, -1, 0).Format("2006-01")
	result, err := s.Importer.Import(ctx, month, false)
	if err != nil {
		logger.Error("scheduler: monthly import of %s failed: %v", month, err)
		return
	}
	if !result.Cancelled {
		s.stamp(ctx, models.StatusKeyLastImportRun)
	}
}

// stamp upserts a last_run_* timestamp into system_status.
func (s *Scheduler) stamp(ctx context.Context, key string) {
	row := models.SystemStatus{
		Key:   key,
		Value: models.FormatTimestamp(time.Now()),
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		logger.Error("scheduler: failed to stamp %s: %v", key, err)
	}
}

// LastRuns reads every stamp back for the status surface.
func (s *Scheduler) LastRuns(ctx context.Context) (map[string]string, error) {
	var rows []models.SystemStatus
	if err := s.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}
