/**
 * @description
 * Tender search surface over the summaries table: keyword search, urgent
 * tenders closing within a day window, and budget-range filtering. Results
 * ride the listing cache family.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/cache
 * - backend/internal/models
 */

package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/licitabot/backend/internal/cache"
	"github.com/licitabot/backend/internal/matching"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/gorm"
)

const searchDefaultLimit = 50

// SearchService serves the tender search operations.
type SearchService struct {
	DB    *gorm.DB
	Cache *cache.Cache
	now   func() time.Time
}

// NewSearchService builds the search surface.
func NewSearchService(conn *gorm.DB, c *cache.Cache) *SearchService {
	return &SearchService{DB: conn, Cache: c, now: time.Now}
}

// SearchByKeywords returns summaries whose name matches any keyword,
// case- and accent-insensitively on the normalized keyword.
func (s *SearchService) SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]models.TenderSummary, error) {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if n := matching.Normalize(kw); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	if len(cleaned) == 0 {
		return nil, invalidInput("keywords", "must contain at least one term")
	}
	if limit <= 0 {
		limit = searchDefaultLimit
	}

	key := cache.Key("listing", "kw", strings.Join(cleaned, "+"), "limit", strconv.Itoa(limit))
	var cached []models.TenderSummary
	if s.Cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	q := s.DB.WithContext(ctx).Model(&models.TenderSummary{})
	var conds []string
	var args []interface{}
	for _, kw := range cleaned {
		conds = append(conds, "lower(name) LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	q = q.Where(strings.Join(conds, " OR "), args...)

	var out []models.TenderSummary
	if err := q.Order("publish_ts DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	s.Cache.SetJSON(ctx, key, out, cache.FamilyListing)
	return out, nil
}

// SearchUrgent returns summaries closing within [now, now+days].
func (s *SearchService) SearchUrgent(ctx context.Context, days, limit int) ([]models.TenderSummary, error) {
	if days <= 0 {
		return nil, invalidInput("days", "must be positive")
	}
	if limit <= 0 {
		limit = searchDefaultLimit
	}

	now := s.now()
	from := models.FormatTimestamp(now)
	to := models.FormatTimestamp(now.AddDate(0, 0, days))

	key := cache.Key("listing", "urgent", strconv.Itoa(days), "limit", strconv.Itoa(limit))
	var cached []models.TenderSummary
	if s.Cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	var out []models.TenderSummary
	err := s.DB.WithContext(ctx).
		Where("close_ts >= ? AND close_ts <= ?", from, to).
		Order("close_ts ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("urgent search failed: %w", err)
	}

	s.Cache.SetJSON(ctx, key, out, cache.FamilyListing)
	return out, nil
}

// SearchByAmount returns summaries whose budget falls in [min, max]. Either
// bound may be zero to leave that side open.
func (s *SearchService) SearchByAmount(ctx context.Context, min, max float64, limit int) ([]models.TenderSummary, error) {
	if min < 0 || max < 0 {
		return nil, invalidInput("amount", "bounds must not be negative")
	}
	if max > 0 && min > max {
		return nil, invalidInput("amount", "min must not exceed max")
	}
	if limit <= 0 {
		limit = searchDefaultLimit
	}

	key := cache.Key("listing", "amount",
		strconv.FormatFloat(min, 'f', 0, 64),
		strconv.FormatFloat(max, 'f', 0, 64),
		"limit", strconv.Itoa(limit))
	var cached []models.TenderSummary
	if s.Cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	q := s.DB.WithContext(ctx).Model(&models.TenderSummary{}).Where("budget_amount > 0")
	if min > 0 {
		q = q.Where("budget_amount >= ?", min)
	}
	if max > 0 {
		q = q.Where("budget_amount <= ?", max)
	}

	var out []models.TenderSummary
	if err := q.Order("budget_amount DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("amount search failed: %w", err)
	}

	s.Cache.SetJSON(ctx, key, out, cache.FamilyListing)
	return out, nil
}
