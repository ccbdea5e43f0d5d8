/**
 * @description
 * Price recommendation engine.
 * Aggregates fuzzy-matched historical bids into a recommended unit price
 * with quartiles and a sample-size confidence. The recommended point sits
 * at a configurable percentile, historically the 42nd: the sweet spot
 * between win probability and margin.
 *
 * @dependencies
 * - backend/internal/matching
 * - backend/internal/cache
 *
 * @notes
 * - Deterministic for a fixed snapshot of historical_bids.
 * - "No similar rows" is not an error: the result comes back well-formed
 *   with Success=false and the insufficient-history reason.
 */

package services

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/licitabot/backend/internal/cache"
	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/matching"
)

const (
	priceRetrievalLimit    = 500
	priceMatchThreshold    = 60
	DefaultRecommendedPctl = 42
)

// PriceRequest asks for a recommendation on one product.
type PriceRequest struct {
	Term        string  `json:"term"`
	Quantity    float64 `json:"quantity"`
	Region      string  `json:"region,omitempty"`
	WinnersOnly bool    `json:"winners_only"`
}

// UnitPrices are the per-unit aggregation points.
type UnitPrices struct {
	P25         float64 `json:"p25"`
	P50         float64 `json:"p50"`
	P75         float64 `json:"p75"`
	P90         float64 `json:"p90"`
	Mean        float64 `json:"mean"`
	Recommended float64 `json:"recommended"`
}

// TotalPrices scale the unit points by the requested quantity.
type TotalPrices struct {
	Recommended float64 `json:"recommended"`
	Floor       float64 `json:"floor"`   // Q25 · qty, the competitive floor
	Ceiling     float64 `json:"ceiling"` // Q75 · qty, the acceptable ceiling
}

// SampleStats describe the evidence behind a recommendation.
type SampleStats struct {
	N        int     `json:"n"`
	WinnersN int     `json:"winners_n"`
	WinRate  float64 `json:"win_rate"`
	Region   string  `json:"region,omitempty"`
}

// PriceRecommendation is the full engine output.
type PriceRecommendation struct {
	Success    bool        `json:"success"`
	Reason     string      `json:"reason,omitempty"`
	Unit       UnitPrices  `json:"unit"`
	Total      TotalPrices `json:"total"`
	Stats      SampleStats `json:"stats"`
	Confidence float64     `json:"confidence"`
	Rationale  string      `json:"rationale"`
}

// PriceService computes price recommendations.
type PriceService struct {
	Matcher    *matching.Matcher
	Cache      *cache.Cache
	Percentile float64
}

// NewPriceService wires the engine from config.
func NewPriceService(matcher *matching.Matcher, c *cache.Cache, cfg *config.Config) *PriceService {
	pctl := cfg.Analytics.RecommendedPercentile
	if pctl <= 0 || pctl >= 100 {
		pctl = DefaultRecommendedPctl
	}
	return &PriceService{Matcher: matcher, Cache: c, Percentile: pctl}
}

// RecommendPrice runs the full aggregation for one request.
func (s *PriceService) RecommendPrice(ctx context.Context, req PriceRequest) (*PriceRecommendation, error) {
	if req.Term == "" {
		return nil, invalidInput("term", "must not be empty")
	}
	if req.Quantity <= 0 {
		return nil, invalidInput("quantity", "must be positive")
	}

	key := cache.Key("ml", "price", matching.Normalize(req.Term),
		"qty", strconv.FormatFloat(req.Quantity, 'f', -1, 64),
		"region", req.Region,
		"winners", strconv.FormatBool(req.WinnersOnly))
	var cached PriceRecommendation
	if s.Cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	matches, err := s.Matcher.Match(ctx, matching.Params{
		Term:      req.Term,
		Region:    req.Region,
		Limit:     priceRetrievalLimit,
		Threshold: priceMatchThreshold,
	})
	if err != nil {
		return nil, err
	}

	winnersN := 0
	for _, m := range matches {
		if m.Won {
			winnersN++
		}
	}

	pool := matches
	if req.WinnersOnly && winnersN > 0 {
		pool = pool[:0:0]
		for _, m := range matches {
			if m.Won {
				pool = append(pool, m)
			}
		}
	}

	unitPrices := make([]float64, 0, len(pool))
	for _, m := range pool {
		if up := m.UnitPrice(); up > 0 {
			unitPrices = append(unitPrices, up)
		}
	}
	unitPrices = trimOutliers(unitPrices)

	rec := &PriceRecommendation{
		Stats: SampleStats{
			N:        len(unitPrices),
			WinnersN: winnersN,
			Region:   req.Region,
		},
	}
	if len(matches) > 0 {
		rec.Stats.WinRate = float64(winnersN) / float64(len(matches))
	}

	if len(unitPrices) == 0 {
		rec.Success = false
		rec.Reason = ReasonInsufficientHistory
		rec.Confidence = 0
		rec.Rationale = fmt.Sprintf("No comparable historical bids found for %q.", req.Term)
		return rec, nil
	}

	rec.Success = true
	rec.Unit = UnitPrices{
		P25:         percentile(unitPrices, 25),
		P50:         percentile(unitPrices, 50),
		P75:         percentile(unitPrices, 75),
		P90:         percentile(unitPrices, 90),
		Mean:        mean(unitPrices),
		Recommended: percentile(unitPrices, s.Percentile),
	}
	rec.Total = TotalPrices{
		Recommended: rec.Unit.Recommended * req.Quantity,
		Floor:       rec.Unit.P25 * req.Quantity,
		Ceiling:     rec.Unit.P75 * req.Quantity,
	}
	rec.Confidence = confidenceFor(len(unitPrices))
	rec.Rationale = rationaleText(rec.Confidence, len(unitPrices), rec.Unit.Recommended, rec.Unit.P50)

	s.Cache.SetJSON(ctx, key, rec, cache.FamilyMLPrice)
	return rec, nil
}

// confidenceFor is the documented staircase over sample size.
func confidenceFor(n int) float64 {
	switch {
	case n >= 100:
		return 0.95
	case n >= 50:
		return 0.85
	case n >= 20:
		return 0.70
	case n >= 10:
		return 0.60
	default:
		return 0.40
	}
}

func rationaleText(confidence float64, n int, recommended, median float64) string {
	level := "low"
	switch {
	case confidence >= 0.85:
		level = "high"
	case confidence >= 0.60:
		level = "moderate"
	}

	relation := "at the median"
	if median > 0 && recommended != median {
		pct := math.Abs(recommended-median) / median * 100
		if recommended < median {
			relation = fmt.Sprintf("%.1f%% below median", pct)
		} else {
			relation = fmt.Sprintf("%.1f%% above median", pct)
		}
	}
	return fmt.Sprintf("%s confidence based on %d records; price is %s.",
		level, n, relation)
}
