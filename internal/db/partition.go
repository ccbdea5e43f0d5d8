/**
 * @description
 * One-shot range partitioning of historical_bids by calendar month.
 * Detects whether the table is already partitioned and, only if not, moves
 * the flat table aside, creates a partitioned replacement spanning
 * [min(close_date), max(close_date)] with one child per month, copies the
 * rows and rebuilds the indexes. The flat table is dropped only on explicit
 * operator confirmation.
 *
 * @dependencies
 * - gorm.io/gorm
 *
 * @notes
 * - Postgres only; on backends without native partitioning this is a no-op.
 * - Partition boundaries are [first-of-month, first-of-next-month) and the
 *   partition key is part of the primary key, so pruning works.
 */

package db

import (
	"fmt"
	"time"

	"github.com/licitabot/backend/internal/logger"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/gorm"
)

var renamedIndexes = []string{
	"idx_historical_bids_won_close_amount",
	"idx_historical_bids_amount_nonzero",
	"idx_historical_bids_product_trgm",
	"idx_historical_bids_quote_trgm",
	"idx_historical_bids_lower_product",
	"idx_historical_bids_lower_quote",
	"idx_historical_bids_quote_code",
	"idx_historical_bids_won",
	"idx_historical_bids_close_date",
}

// PartitionHistoricalBids converts the flat historical_bids table to a
// monthly partitioned one. confirmDrop controls whether the flat copy is
// dropped at the end; without it the copy stays behind for manual checks.
func PartitionHistoricalBids(conn *gorm.DB, dialect Dialect, confirmDrop bool) error {
	if !dialect.SupportsPartitioning {
		return nil
	}

	partitioned, err := IsPartitioned(conn, "historical_bids")
	if err != nil {
		return err
	}
	if partitioned {
		return nil
	}

	var bounds struct {
		Min string
		Max string
	}
	err = conn.Model(&models.HistoricalBid{}).
		Select("min(close_date) AS min, max(close_date) AS max").
		Where("close_date <> ''").
		Scan(&bounds).Error
	if err != nil {
		return fmt.Errorf("failed to read close_date span: %w", err)
	}
	if bounds.Min == "" || bounds.Max == "" {
		logger.Info("historical_bids is empty; partitioning deferred until first import")
		return nil
	}

	logger.Info("Partitioning historical_bids over [%s, %s]...", bounds.Min, bounds.Max)

	if err := conn.Exec("ALTER TABLE historical_bids RENAME TO historical_bids_flat").Error; err != nil {
		return fmt.Errorf("failed to move flat table aside: %w", err)
	}
	for _, idx := range renamedIndexes {
		// Old index names stay attached to the renamed table and would
		// collide with the rebuilt ones.
		conn.Exec(fmt.Sprintf("ALTER INDEX IF EXISTS %s RENAME TO %s_flat", idx, idx))
	}

	createSQL := `CREATE TABLE historical_bids (
		id BIGSERIAL,
		quote_code TEXT,
		quote_name TEXT,
		region TEXT,
		vendor_tax_id TEXT,
		vendor_name TEXT,
		product_name TEXT,
		quantity BIGINT,
		total_amount BIGINT,
		detail_text TEXT,
		won BOOLEAN,
		close_date TEXT,
		PRIMARY KEY (id, close_date)
	) PARTITION BY RANGE (close_date)`
	if err := conn.Exec(createSQL).Error; err != nil {
		return fmt.Errorf("failed to create partitioned table: %w", err)
	}

	for _, month := range monthsBetween(bounds.Min, bounds.Max) {
		if err := CreateMonthPartition(conn, dialect, month); err != nil {
			return err
		}
	}

	copySQL := `INSERT INTO historical_bids
		(quote_code, quote_name, region, vendor_tax_id, vendor_name,
		 product_name, quantity, total_amount, detail_text, won, close_date)
		SELECT quote_code, quote_name, region, vendor_tax_id, vendor_name,
		 product_name, quantity, total_amount, detail_text, won, close_date
		FROM historical_bids_flat WHERE close_date <> ''`
	if err := conn.Exec(copySQL).Error; err != nil {
		return fmt.Errorf("failed to copy rows into partitioned table: %w", err)
	}

	if err := createIndexes(conn, dialect); err != nil {
		return err
	}
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_historical_bids_quote_code ON historical_bids (quote_code)")

	if confirmDrop {
		if err := conn.Exec("DROP TABLE historical_bids_flat").Error; err != nil {
			return fmt.Errorf("failed to drop flat table: %w", err)
		}
		logger.Info("✅ historical_bids partitioned; flat table dropped")
	} else {
		logger.Info("✅ historical_bids partitioned; flat copy kept as historical_bids_flat (drop requires confirmation)")
	}
	return nil
}

// CreateMonthPartition ensures the child table for month ("YYYY-MM") exists.
func CreateMonthPartition(conn *gorm.DB, dialect Dialect, month string) error {
	if !dialect.SupportsPartitioning {
		return nil
	}
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return fmt.Errorf("invalid month %q: %w", month, err)
	}
	end := start.AddDate(0, 1, 0)

	stmt := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS historical_bids_%s PARTITION OF historical_bids FOR VALUES FROM ('%s') TO ('%s')",
		start.Format("2006_01"),
		start.Format(models.DateLayout),
		end.Format(models.DateLayout),
	)
	if err := conn.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to create partition for %s: %w", month, err)
	}
	return nil
}

// IsPartitioned reports whether the table is a partitioned parent.
// Postgres only; callers on other backends must not reach this query.
func IsPartitioned(conn *gorm.DB, table string) (bool, error) {
	var count int64
	err := conn.Raw(
		"SELECT count(*) FROM pg_partitioned_table pt JOIN pg_class c ON c.oid = pt.partrelid WHERE c.relname = ?",
		table,
	).Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to inspect partitioning: %w", err)
	}
	return count > 0, nil
}

// monthsBetween returns every "YYYY-MM" from the month of min to the month
// of max inclusive. Inputs are "YYYY-MM-DD" canonical dates.
func monthsBetween(min, max string) []string {
	start, err := time.Parse(models.DateLayout, min)
	if err != nil {
		return nil
	}
	end, err := time.Parse(models.DateLayout, max)
	if err != nil {
		return nil
	}
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)

	var months []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		months = append(months, cur.Format("2006-01"))
	}
	return months
}
