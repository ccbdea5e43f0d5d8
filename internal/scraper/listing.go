/**
 * @description
 * Listing scraper: polls the quick-buy listing endpoint over a sliding date
 * window and upserts tender summaries. Re-running over the same window is a
 * no-op apart from refreshing mutable columns.
 *
 * @dependencies
 * - backend/internal/mercadopublico
 * - backend/internal/models
 * - gorm.io/gorm
 *
 * @notes
 * - The upsert preserves detail_fetched so the detail scraper's progress
 *   survives listing refreshes.
 * - Failure mid-run is acceptable; the next tick restarts from page 1 and
 *   the already-seen rows upsert as no-ops.
 */

package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/licitabot/backend/internal/cache"
	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/db"
	"github.com/licitabot/backend/internal/logger"
	"github.com/licitabot/backend/internal/mercadopublico"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// summaryMutableColumns are refreshed on conflict; detail_fetched is not
// among them.
var summaryMutableColumns = []string{
	"name",
	"publish_ts",
	"close_ts",
	"state_id",
	"state_label",
	"budget_amount",
	"currency",
	"budget_clp",
	"fx_ts",
	"fx_rate",
	"competitors_count",
	"call_state",
}

// ListingResult summarizes one listing run.
type ListingResult struct {
	Pages    int `json:"pages"`
	Seen     int `json:"seen"`
	Upserted int `json:"upserted"`
}

// ListingScraper polls the listing endpoint.
type ListingScraper struct {
	DB         *gorm.DB
	Client     *mercadopublico.Client
	Cache      *cache.Cache
	WindowDays int
	Pacing     time.Duration
	now        func() time.Time
}

// NewListingScraper wires a listing scraper from config.
func NewListingScraper(conn *gorm.DB, client *mercadopublico.Client, c *cache.Cache, cfg *config.Config) *ListingScraper {
	return &ListingScraper{
		DB:         conn,
		Client:     client,
		Cache:      c,
		WindowDays: cfg.Scraper.WindowDays,
		Pacing:     cfg.Scraper.PagePacing,
		now:        time.Now,
	}
}

// Run polls every page of the window and upserts each summary.
func (s *ListingScraper) Run(ctx context.Context) (*ListingResult, error) {
	now := s.now()
	dateFrom := now.AddDate(0, 0, -s.WindowDays)

	result := &ListingResult{}
	page := 1
	for {
		payload, err := s.Client.ListTenders(ctx, dateFrom, now, page)
		if err != nil {
			return result, fmt.Errorf("listing page %d failed: %w", page, err)
		}
		if len(payload.Results) == 0 {
			break
		}

		summaries := make([]models.TenderSummary, 0, len(payload.Results))
		for _, item := range payload.Results {
			if item.Code == "" {
				continue
			}
			summaries = append(summaries, item.ToSummaryModel())
		}

		if err := s.upsertSummaries(ctx, summaries); err != nil {
			return result, err
		}

		result.Pages++
		result.Seen += len(payload.Results)
		result.Upserted += len(summaries)

		if payload.PageCount > 0 && page >= payload.PageCount {
			break
		}
		page++

		// Pace page requests to stay under any upstream rate ceiling.
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(s.Pacing):
		}
	}

	// Listing-family cache entries are stale after an ingest.
	s.Cache.DeletePattern(ctx, "listing:*")

	logger.Info("Listing run complete: %d pages, %d tenders", result.Pages, result.Upserted)
	return result, nil
}

func (s *ListingScraper) upsertSummaries(ctx context.Context, summaries []models.TenderSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	// The detail scraper writes the same rows; deadlocks between the two
	// are transient and worth retrying.
	err := db.WithRetry(func() error {
		return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns(summaryMutableColumns),
		}).CreateInBatches(summaries, 100).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert summaries: %w", err)
	}
	return nil
}
