/**
 * @description
 * HistoricalBid database model: one vendor offer on a past quick-buy tender,
 * imported monthly from the public CSV archive.
 * Maps to the 'historical_bids' table (range-partitioned by close_date on
 * backends that support it).
 *
 * @dependencies
 * - gorm.io/gorm
 *
 * @notes
 * - Amounts are integral CLP; the archive carries no cents.
 * - close_date is a canonical "YYYY-MM-DD" string so monthly partition
 *   boundaries and lexicographic comparisons agree on every backend.
 */

package models

// HistoricalBid is one row from the monthly archive.
type HistoricalBid struct {
	ID          int64  `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	QuoteCode   string `gorm:"column:quote_code;index" json:"quote_code"`
	QuoteName   string `gorm:"column:quote_name" json:"quote_name"`
	Region      string `gorm:"column:region" json:"region"`
	VendorTaxID string `gorm:"column:vendor_tax_id" json:"vendor_tax_id"`
	VendorName  string `gorm:"column:vendor_name" json:"vendor_name"`
	ProductName string `gorm:"column:product_name" json:"product_name"`
	Quantity    int64  `gorm:"column:quantity" json:"quantity"`
	TotalAmount int64  `gorm:"column:total_amount" json:"total_amount"`
	DetailText  string `gorm:"column:detail_text" json:"detail_text"`
	Won         bool   `gorm:"column:won;index" json:"won"`
	CloseDate   string `gorm:"column:close_date;index" json:"close_date"`
}

// TableName overrides the table name used by HistoricalBid
func (HistoricalBid) TableName() string {
	return "historical_bids"
}

// UnitPrice returns total_amount / quantity, or 0 when the row is unusable.
func (b HistoricalBid) UnitPrice() float64 {
	if b.Quantity <= 0 || b.TotalAmount <= 0 {
		return 0
	}
	return float64(b.TotalAmount) / float64(b.Quantity)
}
