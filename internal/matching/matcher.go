/**
 * @description
 * Fuzzy retrieval over historical bids.
 * Two modes behind one contract: a trigram-accelerated SQL path on backends
 * that offer pg_trgm, and an in-process token-set fallback everywhere else.
 * Both return rows ranked by a similarity score in [0, 100].
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/db
 * - backend/internal/models
 */

package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/licitabot/backend/internal/db"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/gorm"
)

const (
	// DefaultRecencyYears bounds retrieval to recent history.
	DefaultRecencyYears = 3

	// fallbackOverfetch controls how many recent rows the in-process
	// scorer pulls per requested result.
	fallbackOverfetch = 3
)

// Params selects and bounds a retrieval.
type Params struct {
	Term      string
	Region    string  // optional
	Limit     int
	Threshold float64 // minimum similarity, [0, 100]
}

// MatchedBid is a historical bid plus its similarity to the query term.
type MatchedBid struct {
	models.HistoricalBid
	Similarity float64 `gorm:"column:similarity" json:"similarity"`
}

// Matcher retrieves similar historical bids.
type Matcher struct {
	DB           *gorm.DB
	Dialect      db.Dialect
	RecencyYears int
	now          func() time.Time
}

// NewMatcher builds a Matcher over the active backend.
func NewMatcher(conn *gorm.DB, dialect db.Dialect, recencyYears int) *Matcher {
	if recencyYears <= 0 {
		recencyYears = DefaultRecencyYears
	}
	return &Matcher{DB: conn, Dialect: dialect, RecencyYears: recencyYears, now: time.Now}
}

// Match returns up to Limit bids similar to the term, best first.
func (m *Matcher) Match(ctx context.Context, p Params) ([]MatchedBid, error) {
	if p.Term == "" {
		return nil, fmt.Errorf("term is required")
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Threshold < 0 || p.Threshold > 100 {
		return nil, fmt.Errorf("threshold must be in [0, 100], got %v", p.Threshold)
	}

	if m.Dialect.SupportsTrigram {
		return m.matchTrigram(ctx, p)
	}
	return m.matchFallback(ctx, p)
}

// matchTrigram runs the pg_trgm accelerated query.
func (m *Matcher) matchTrigram(ctx context.Context, p Params) ([]MatchedBid, error) {
	cutoff := m.recencyCutoff()
	term := SQLTerm(p.Term)

	query := `
		SELECT *, GREATEST(similarity(lower(quote_name), ?), similarity(lower(product_name), ?)) * 100 AS similarity
		FROM historical_bids
		WHERE (lower(quote_name) % ? OR lower(product_name) % ?)
		  AND close_date >= ?
		  AND total_amount > 0`
	args := []interface{}{term, term, term, term, cutoff}

	if p.Region != "" {
		query += " AND region = ?"
		args = append(args, p.Region)
	}
	query += " ORDER BY similarity DESC LIMIT ?"
	args = append(args, p.Limit)

	var rows []MatchedBid
	if err := m.DB.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("trigram retrieval failed: %w", err)
	}

	out := rows[:0]
	for _, r := range rows {
		if r.Similarity >= p.Threshold {
			out = append(out, r)
		}
	}
	return out, nil
}

// matchFallback pulls recent rows and scores them in process.
func (m *Matcher) matchFallback(ctx context.Context, p Params) ([]MatchedBid, error) {
	cutoff := m.recencyCutoff()

	q := m.DB.WithContext(ctx).
		Where("close_date >= ?", cutoff).
		Where("total_amount > 0")
	if p.Region != "" {
		q = q.Where("region = ?", p.Region)
	}

	var bids []models.HistoricalBid
	err := q.Order("close_date DESC").
		Limit(p.Limit * fallbackOverfetch).
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("fallback retrieval failed: %w", err)
	}

	matches := make([]MatchedBid, 0, len(bids))
	for _, b := range bids {
		score := TokenSetRatio(p.Term, b.QuoteName)
		if s := TokenSetRatio(p.Term, b.ProductName); s > score {
			score = s
		}
		if float64(score) >= p.Threshold {
			matches = append(matches, MatchedBid{HistoricalBid: b, Similarity: float64(score)})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > p.Limit {
		matches = matches[:p.Limit]
	}
	return matches, nil
}

func (m *Matcher) recencyCutoff() string {
	return m.now().AddDate(-m.RecencyYears, 0, 0).Format(models.DateLayout)
}
