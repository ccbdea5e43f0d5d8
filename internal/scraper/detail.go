/**
 * @description
 * Detail scraper: completes tender summaries that still lack their detail
 * record. For each code it fetches the full document plus best-effort
 * attachments, then replaces the detail and its child sets in a single
 * transaction and flips detail_fetched.
 *
 * @dependencies
 * - backend/internal/mercadopublico
 * - backend/internal/models
 * - gorm.io/gorm
 *
 * @notes
 * - Each code is an independent unit of work; one failure never aborts the
 *   batch.
 * - The child-set wipe-and-replace keeps re-runs idempotent and avoids
 *   accumulating stale rows.
 */

package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/licitabot/backend/internal/cache"
	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/logger"
	"github.com/licitabot/backend/internal/mercadopublico"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DetailResult summarizes one detail run.
type DetailResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// DetailScraper fills in missing tender details.
type DetailScraper struct {
	DB        *gorm.DB
	Client    *mercadopublico.Client
	Cache     *cache.Cache
	BatchSize int
	Pacing    time.Duration
}

// NewDetailScraper wires a detail scraper from config.
func NewDetailScraper(conn *gorm.DB, client *mercadopublico.Client, c *cache.Cache, cfg *config.Config) *DetailScraper {
	return &DetailScraper{
		DB:        conn,
		Client:    client,
		Cache:     c,
		BatchSize: cfg.Scraper.DetailBatchSize,
		Pacing:    cfg.Scraper.DetailPacing,
	}
}

// Run processes up to BatchSize tenders where detail_fetched is false.
func (s *DetailScraper) Run(ctx context.Context) (*DetailResult, error) {
	var pending []models.TenderSummary
	err := s.DB.WithContext(ctx).
		Where("detail_fetched = ?", false).
		Order("publish_ts DESC").
		Limit(s.BatchSize).
		Find(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select pending tenders: %w", err)
	}

	result := &DetailResult{}
	for i, summary := range pending {
		if err := s.processOne(ctx, summary.Code); err != nil {
			logger.Error("detail fetch failed for %s: %v", summary.Code, err)
			result.Errors++
		} else {
			result.Processed++
		}

		if i == len(pending)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(s.Pacing):
		}
	}

	if result.Processed > 0 {
		s.Cache.DeletePattern(ctx, "detail:*")
	}

	logger.Info("Detail run complete: processed=%d errors=%d", result.Processed, result.Errors)
	return result, nil
}

// processOne fetches and persists one tender's detail. The detail document
// is required; history and attachments are supplementary.
func (s *DetailScraper) processOne(ctx context.Context, code string) error {
	payload, rawBody, err := s.Client.GetDetail(ctx, code)
	if err != nil {
		return err
	}
	if payload == nil {
		return fmt.Errorf("detail missing upstream")
	}

	attachments := s.Client.GetAttachments(ctx, code)

	detail := payload.ToDetailModel(code, rawBody)

	products := make([]models.RequestedProduct, 0, len(payload.Items))
	for _, item := range payload.Items {
		products = append(products, models.RequestedProduct{
			TenderCode:    code,
			Name:          item.Name,
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitOfMeasure: item.UnitOfMeasure,
		})
	}

	history := make([]models.HistoryEntry, 0, len(payload.History))
	for _, h := range payload.History {
		history = append(history, models.HistoryEntry{
			TenderCode: code,
			TS:         h.Date,
			Action:     h.Action,
			Actor:      h.Actor,
		})
	}

	attachRows := make([]models.Attachment, 0, len(attachments))
	for _, a := range attachments {
		attachRows = append(attachRows, models.Attachment{
			TenderCode: code,
			Filename:   a.Filename,
			RemoteID:   a.ID,
		})
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			UpdateAll: true,
		}).Create(&detail).Error; err != nil {
			return fmt.Errorf("detail upsert failed: %w", err)
		}

		for _, model := range []interface{}{
			&models.RequestedProduct{},
			&models.HistoryEntry{},
			&models.Attachment{},
		} {
			if err := tx.Where("tender_code = ?", code).Delete(model).Error; err != nil {
				return fmt.Errorf("child wipe failed: %w", err)
			}
		}

		if len(products) > 0 {
			if err := tx.Create(&products).Error; err != nil {
				return fmt.Errorf("product insert failed: %w", err)
			}
		}
		if len(history) > 0 {
			if err := tx.Create(&history).Error; err != nil {
				return fmt.Errorf("history insert failed: %w", err)
			}
		}
		if len(attachRows) > 0 {
			if err := tx.Create(&attachRows).Error; err != nil {
				return fmt.Errorf("attachment insert failed: %w", err)
			}
		}

		return tx.Model(&models.TenderSummary{}).
			Where("code = ?", code).
			Update("detail_fetched", true).Error
	})
}
