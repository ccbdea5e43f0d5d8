/**
 * @description
 * Idempotent schema migration.
 * Creates every table and index with existence checks on startup; trigram
 * acceleration and partitioning are applied only when the Dialect offers
 * them. Safe to run on every boot.
 *
 * @dependencies
 * - gorm.io/gorm
 * - backend/internal/models
 */

package db

import (
	"fmt"

	"github.com/licitabot/backend/internal/logger"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/gorm"
)

// trigramIndexes index the lower() expression the matcher filters on; a
// plain-column gin index cannot serve the lower(...) % ? predicate.
var trigramIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_historical_bids_product_trgm ON historical_bids USING gin (lower(product_name) gin_trgm_ops)",
	"CREATE INDEX IF NOT EXISTS idx_historical_bids_quote_trgm ON historical_bids USING gin (lower(quote_name) gin_trgm_ops)",
}

// Migrate brings the schema up to date on the active backend.
func Migrate(conn *gorm.DB, dialect Dialect) error {
	if dialect.SupportsTrigram {
		if err := conn.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
			return fmt.Errorf("failed to enable pg_trgm: %w", err)
		}
	}

	err := conn.AutoMigrate(
		&models.TenderSummary{},
		&models.TenderDetail{},
		&models.RequestedProduct{},
		&models.HistoryEntry{},
		&models.Attachment{},
		&models.HistoricalBid{},
		&models.CompanyProfile{},
		&models.SavedTender{},
		&models.UserInteraction{},
		&models.SystemStatus{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	if err := createIndexes(conn, dialect); err != nil {
		return err
	}

	logger.Info("✅ Schema migration complete (%s)", dialect.Name)
	return nil
}

func createIndexes(conn *gorm.DB, dialect Dialect) error {
	stmts := []string{
		// Case-insensitive lookups on tender names.
		"CREATE INDEX IF NOT EXISTS idx_tender_summaries_lower_name ON tender_summaries (lower(name))",
		// RAG queries scan winners newest-first and read the amount.
		"CREATE INDEX IF NOT EXISTS idx_historical_bids_won_close_amount ON historical_bids (won, close_date DESC, total_amount)",
		// Rows with a zero amount never feed the price engine.
		"CREATE INDEX IF NOT EXISTS idx_historical_bids_amount_nonzero ON historical_bids (total_amount) WHERE total_amount > 0",
		"CREATE INDEX IF NOT EXISTS idx_tender_summaries_budget_nonzero ON tender_summaries (budget_amount) WHERE budget_amount > 0",
	}

	if dialect.SupportsTrigram {
		stmts = append(stmts, trigramIndexes...)
	} else {
		stmts = append(stmts,
			"CREATE INDEX IF NOT EXISTS idx_historical_bids_lower_product ON historical_bids (lower(product_name))",
			"CREATE INDEX IF NOT EXISTS idx_historical_bids_lower_quote ON historical_bids (lower(quote_name))",
		)
	}

	for _, stmt := range stmts {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index creation failed (%s): %w", stmt, err)
		}
	}
	return nil
}
