/**
 * @description
 * Retrieval-augmented context builder.
 * Extends fuzzy retrieval with a recency bonus and an optional
 * budget-proximity reweight, segregates winners from losers, and emits a
 * ranked case list plus a compact aggregate bundle for downstream prompt
 * assembly.
 *
 * @dependencies
 * - backend/internal/matching
 * - backend/internal/cache
 */

package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/licitabot/backend/internal/cache"
	"github.com/licitabot/backend/internal/matching"
	"github.com/licitabot/backend/internal/models"
)

const (
	ragRetrievalLimit  = 100
	ragMatchThreshold  = 45
	ragDefaultTopK     = 10
	recencyBonusRecent = 10 // score bonus when age <= 180 days
	recencyBonusYear   = 5  // score bonus when age <= 365 days
)

// RAGRequest asks for similar past cases.
type RAGRequest struct {
	TenderName      string  `json:"tender_name"`
	EstimatedAmount float64 `json:"estimated_amount,omitempty"`
	Description     string  `json:"description,omitempty"`
	TopK            int     `json:"top_k,omitempty"`
}

// RAGCase is one ranked historical case.
type RAGCase struct {
	QuoteCode   string  `json:"quote_code"`
	QuoteName   string  `json:"quote_name"`
	ProductName string  `json:"product_name"`
	VendorName  string  `json:"vendor_name"`
	Region      string  `json:"region"`
	Similarity  float64 `json:"similarity"`
	Won         bool    `json:"won"`
	UnitPrice   float64 `json:"unit_price"`
	TotalAmount int64   `json:"total_amount"`
	AgeDays     int     `json:"age_days"`
}

// WinnerStats is the aggregate bundle over the winning cases.
type WinnerStats struct {
	PriceMin    float64        `json:"price_min"`
	PriceMedian float64        `json:"price_median"`
	PriceMean   float64        `json:"price_mean"`
	PriceMax    float64        `json:"price_max"`
	TopVendor   string         `json:"top_vendor,omitempty"`
	Regions     map[string]int `json:"regions,omitempty"`
}

// RAGResult is the full retrieval output.
type RAGResult struct {
	Success      bool         `json:"success"`
	Reason       string       `json:"reason,omitempty"`
	Cases        []RAGCase    `json:"cases"`
	NCases       int          `json:"n_cases"`
	WinRate      float64      `json:"win_rate"`
	WinnerStats  *WinnerStats `json:"winner_stats,omitempty"`
	ContextText  string       `json:"context_text"`
	InsightsText string       `json:"insights_text"`
}

// RAGService ranks similar historical cases.
type RAGService struct {
	Matcher *matching.Matcher
	Cache   *cache.Cache
	now     func() time.Time
}

// NewRAGService builds the retriever.
func NewRAGService(matcher *matching.Matcher, c *cache.Cache) *RAGService {
	return &RAGService{Matcher: matcher, Cache: c, now: time.Now}
}

// RetrieveSimilar returns the top-K historical cases for a tender name.
func (s *RAGService) RetrieveSimilar(ctx context.Context, req RAGRequest) (*RAGResult, error) {
	if req.TenderName == "" {
		return nil, invalidInput("tender_name", "must not be empty")
	}
	if req.EstimatedAmount < 0 {
		return nil, invalidInput("estimated_amount", "must not be negative")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = ragDefaultTopK
	}

	key := cache.Key("rag", "similar", matching.Normalize(req.TenderName),
		"amount", strconv.FormatFloat(req.EstimatedAmount, 'f', 0, 64),
		"k", strconv.Itoa(topK))
	var cached RAGResult
	if s.Cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	term := req.TenderName
	if req.Description != "" {
		term = term + " " + req.Description
	}

	matches, err := s.Matcher.Match(ctx, matching.Params{
		Term:      term,
		Limit:     ragRetrievalLimit,
		Threshold: ragMatchThreshold,
	})
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return &RAGResult{
			Success:     false,
			Reason:      ReasonInsufficientHistory,
			Cases:       []RAGCase{},
			ContextText: fmt.Sprintf("No similar historical tenders found for %q.", req.TenderName),
		}, nil
	}

	type scored struct {
		bid      matching.MatchedBid
		adjusted float64
		ageDays  int
	}

	today := s.now()
	ranked := make([]scored, 0, len(matches))
	for _, m := range matches {
		age := ageInDays(today, m.CloseDate)
		score := m.Similarity
		if age >= 0 && age <= 180 {
			score += recencyBonusRecent
		} else if age >= 0 && age <= 365 {
			score += recencyBonusYear
		}

		if req.EstimatedAmount > 0 {
			drift := clamp01(abs(float64(m.TotalAmount)-req.EstimatedAmount) / req.EstimatedAmount)
			score = 0.7*score + 30*(1-drift)
		}

		ranked = append(ranked, scored{bid: m, adjusted: score, ageDays: age})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].adjusted > ranked[j].adjusted
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	result := &RAGResult{Success: true, NCases: len(ranked)}

	var winnerPrices []float64
	vendorWins := map[string]int{}
	regions := map[string]int{}
	winners := 0

	for _, r := range ranked {
		c := RAGCase{
			QuoteCode:   r.bid.QuoteCode,
			QuoteName:   r.bid.QuoteName,
			ProductName: r.bid.ProductName,
			VendorName:  r.bid.VendorName,
			Region:      r.bid.Region,
			Similarity:  r.adjusted,
			Won:         r.bid.Won,
			UnitPrice:   r.bid.UnitPrice(),
			TotalAmount: r.bid.TotalAmount,
			AgeDays:     r.ageDays,
		}
		result.Cases = append(result.Cases, c)
		regions[r.bid.Region]++

		if r.bid.Won {
			winners++
			vendorWins[r.bid.VendorName]++
			if c.UnitPrice > 0 {
				winnerPrices = append(winnerPrices, c.UnitPrice)
			}
		}
	}

	result.WinRate = float64(winners) / float64(len(ranked))

	if len(winnerPrices) > 0 {
		stats := &WinnerStats{
			PriceMin:    percentile(winnerPrices, 0),
			PriceMedian: percentile(winnerPrices, 50),
			PriceMean:   mean(winnerPrices),
			PriceMax:    percentile(winnerPrices, 100),
			Regions:     regions,
		}
		best := 0
		for vendor, wins := range vendorWins {
			// Lexicographic tie-break keeps the result stable across runs.
			if wins > best || (wins == best && (stats.TopVendor == "" || vendor < stats.TopVendor)) {
				best = wins
				stats.TopVendor = vendor
			}
		}
		result.WinnerStats = stats
	}

	result.ContextText = s.contextText(req.TenderName, result)
	result.InsightsText = s.insightsText(result)

	s.Cache.SetJSON(ctx, key, result, cache.FamilyRAG)
	return result, nil
}

// contextText renders the case list as compact prompt-ready lines.
func (s *RAGService) contextText(tenderName string, r *RAGResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Historical cases similar to %q (%d found):\n", tenderName, r.NCases)
	for i, c := range r.Cases {
		outcome := "lost"
		if c.Won {
			outcome = "won"
		}
		fmt.Fprintf(&b, "%d. [%s] %s: vendor %s %s at unit price %.0f CLP (%.0f%% similar, %d days ago, %s)\n",
			i+1, c.QuoteCode, c.QuoteName, c.VendorName, outcome, c.UnitPrice, c.Similarity, c.AgeDays, c.Region)
	}
	return b.String()
}

// insightsText summarizes the aggregate bundle in one paragraph.
func (s *RAGService) insightsText(r *RAGResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Across %d similar cases the historical win rate is %.0f%%.", r.NCases, r.WinRate*100)
	if ws := r.WinnerStats; ws != nil {
		fmt.Fprintf(&b, " Winning unit prices ranged %.0f to %.0f CLP (median %.0f, mean %.0f).",
			ws.PriceMin, ws.PriceMax, ws.PriceMedian, ws.PriceMean)
		if ws.TopVendor != "" {
			fmt.Fprintf(&b, " Most frequent winning vendor: %s.", ws.TopVendor)
		}
	}
	return b.String()
}

// ageInDays returns how many days ago closeDate was, or -1 when unknown.
func ageInDays(today time.Time, closeDate string) int {
	t, err := time.Parse(models.DateLayout, closeDate)
	if err != nil {
		return -1
	}
	return int(today.Sub(t).Hours() / 24)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
