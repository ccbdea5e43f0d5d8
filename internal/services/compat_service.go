/**
 * @description
 * Compatibility scorer: deterministic weighted score of an active tender
 * against a company profile, in [0, 100]. Pure computation; the only I/O
 * is the optional profile lookup.
 *
 * @dependencies
 * - backend/internal/matching
 * - backend/internal/models
 * - gorm.io/gorm
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/licitabot/backend/internal/matching"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/gorm"
)

// ErrProfileNotFound is returned when the owner has no stored profile.
var ErrProfileNotFound = errors.New("company profile not found")

// CompatibilityService scores tenders against company profiles.
type CompatibilityService struct {
	DB *gorm.DB
}

// NewCompatibilityService builds the scorer.
func NewCompatibilityService(conn *gorm.DB) *CompatibilityService {
	return &CompatibilityService{DB: conn}
}

// ScoreForOwner loads the owner's profile and scores the tender against it.
func (s *CompatibilityService) ScoreForOwner(ctx context.Context, ownerID string, tender models.TenderSummary) (int, error) {
	if ownerID == "" {
		return 0, invalidInput("owner_id", "must not be empty")
	}
	var profile models.CompanyProfile
	err := s.DB.WithContext(ctx).Where("owner_id = ?", ownerID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrProfileNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("profile lookup failed: %w", err)
	}
	return Score(tender, profile), nil
}

// Score computes the compatibility of a tender with a profile.
// Three sub-scores (keywords, competition, budget band) are combined as a
// weighted mean with per-profile weight levels.
func Score(tender models.TenderSummary, profile models.CompanyProfile) int {
	kw := keywordScore(tender, profile)
	comp := competitionScore(tender.CompetitorsCount)
	amt := amountScore(tender.BudgetAmount, profile.BudgetMin, profile.BudgetMax)

	wKw := weightFactor(profile.KeywordWeight)
	wComp := weightFactor(profile.CompetitionWeight)
	wAmt := weightFactor(profile.AmountWeight)

	total := wKw + wComp + wAmt
	if total == 0 {
		return 0
	}
	score := (kw*wKw + comp*wComp + amt*wAmt) / total
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return int(math.Floor(score))
}

// keywordScore matches profile keywords against the normalized tender name
// plus buyer. An exact substring hit counts 1.0, a partial intra-token hit
// 0.8; the first hit is worth three units so a single solid match already
// lands a useful score, capped at four hit units (40 + 15·min(4, hits+2)).
func keywordScore(tender models.TenderSummary, profile models.CompanyProfile) float64 {
	keywords := profile.KeywordList()
	if len(keywords) == 0 {
		return 0
	}

	text := matching.Normalize(tender.Name + " " + tender.Buyer)
	if text == "" {
		return 0
	}
	tokens := strings.Fields(text)

	var hits float64
	for _, kw := range keywords {
		nkw := matching.Normalize(kw)
		if nkw == "" {
			continue
		}
		switch {
		case strings.Contains(text, nkw):
			hits += 1.0
		case partialTokenMatch(tokens, nkw):
			hits += 0.8
		}
	}
	if hits == 0 {
		return 0
	}
	return 40 + 15*math.Min(4, hits+2)
}

// partialTokenMatch reports whether any single token is a close fuzzy match
// of the keyword (plural/singular drift, minor typos).
func partialTokenMatch(tokens []string, keyword string) bool {
	for _, t := range tokens {
		if matching.Ratio(t, keyword) >= 80 {
			return true
		}
	}
	return false
}

// competitionScore favors tenders with few competitors.
func competitionScore(competitors int) float64 {
	switch {
	case competitors <= 0:
		return 100
	case competitors <= 2:
		return 80
	case competitors <= 5:
		return 50
	case competitors <= 10:
		return 20
	default:
		return 0
	}
}

// amountScore is 100 inside the profile's budget band, 50 within ±20% of
// the band, 0 outside. An unset band scores 0.
func amountScore(budget, min, max float64) float64 {
	if min <= 0 && max <= 0 {
		return 0
	}
	if max <= 0 {
		max = math.MaxFloat64
	}
	if budget >= min && budget <= max {
		return 100
	}
	if budget >= min*0.8 && budget <= max*1.2 {
		return 50
	}
	return 0
}

// weightFactor maps a profile weight level to its multiplier.
func weightFactor(level string) float64 {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case models.WeightLow:
		return 0.5
	case models.WeightHigh:
		return 1.5
	default:
		return 1.0
	}
}
