/**
 * @description
 * Tender database models: summary, detail, and the per-tender child sets
 * (requested products, action history, attachments).
 * Maps to the 'tender_summaries', 'tender_details', 'requested_products',
 * 'tender_history' and 'attachments' tables.
 *
 * @dependencies
 * - gorm.io/gorm
 *
 * @notes
 * - All timestamps are stored as canonical strings ("2006-01-02T15:04:05",
 *   no timezone offset) so they compare lexicographically across backends.
 * - A summary may exist without a detail; the reverse never happens. The
 *   detail and the child sets reference code with ON DELETE CASCADE.
 */

package models

import "time"

// TimestampLayout is the canonical storage form for every tender timestamp.
const TimestampLayout = "2006-01-02T15:04:05"

// DateLayout is the canonical storage form for date-only columns.
const DateLayout = "2006-01-02"

// FormatTimestamp renders t in the canonical storage form.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// TenderSummary is the compact record from the listing endpoint.
// Maps to the 'tender_summaries' table.
type TenderSummary struct {
	Code             string  `gorm:"primaryKey;column:code" json:"code"`
	UpstreamID       string  `gorm:"column:upstream_id" json:"upstream_id"`
	Name             string  `gorm:"column:name" json:"name"`
	PublishTS        string  `gorm:"column:publish_ts" json:"publish_ts"`
	CloseTS          string  `gorm:"column:close_ts;index" json:"close_ts"`
	Buyer            string  `gorm:"column:buyer" json:"buyer"`
	Unit             string  `gorm:"column:unit" json:"unit"`
	StateID          int     `gorm:"column:state_id" json:"state_id"`
	StateLabel       string  `gorm:"column:state_label" json:"state_label"`
	BudgetAmount     float64 `gorm:"column:budget_amount" json:"budget_amount"`
	Currency         string  `gorm:"column:currency" json:"currency"`
	BudgetCLP        float64 `gorm:"column:budget_clp" json:"budget_clp"`
	FxTS             string  `gorm:"column:fx_ts" json:"fx_ts"`
	FxRate           float64 `gorm:"column:fx_rate" json:"fx_rate"`
	CompetitorsCount int     `gorm:"column:competitors_count" json:"competitors_count"`
	CallState        string  `gorm:"column:call_state" json:"call_state"`
	DetailFetched    bool    `gorm:"column:detail_fetched;default:false;index" json:"detail_fetched"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Dependent rows reference code and are removed with the summary.
	Detail      *TenderDetail      `gorm:"foreignKey:Code;references:Code;constraint:OnDelete:CASCADE" json:"-"`
	Products    []RequestedProduct `gorm:"foreignKey:TenderCode;references:Code;constraint:OnDelete:CASCADE" json:"-"`
	History     []HistoryEntry     `gorm:"foreignKey:TenderCode;references:Code;constraint:OnDelete:CASCADE" json:"-"`
	Attachments []Attachment       `gorm:"foreignKey:TenderCode;references:Code;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name used by TenderSummary
func (TenderSummary) TableName() string {
	return "tender_summaries"
}

// TenderDetail is the full record from the detail endpoint, 1:1 with a summary.
// Maps to the 'tender_details' table.
type TenderDetail struct {
	Code              string  `gorm:"primaryKey;column:code" json:"code"`
	Description       string  `gorm:"column:description" json:"description"`
	DeliveryAddress   string  `gorm:"column:delivery_address" json:"delivery_address"`
	DeliveryDays      int     `gorm:"column:delivery_days" json:"delivery_days"`
	EstimatedBudget   float64 `gorm:"column:estimated_budget" json:"estimated_budget"`
	Penalty           string  `gorm:"column:penalty" json:"penalty"`
	InvitedCount      int     `gorm:"column:invited_count" json:"invited_count"`
	BuyerOrg          string  `gorm:"column:buyer_org" json:"buyer_org"`
	BuyerTaxID        string  `gorm:"column:buyer_tax_id" json:"buyer_tax_id"`
	Division          string  `gorm:"column:division" json:"division"`
	FirstCallCloseTS  string  `gorm:"column:first_call_close_ts" json:"first_call_close_ts"`
	SecondCallCloseTS string  `gorm:"column:second_call_close_ts" json:"second_call_close_ts"`
	Environmental     bool    `gorm:"column:environmental" json:"environmental"`
	Social            bool    `gorm:"column:social" json:"social"`
	// RawDocument keeps the upstream detail payload verbatim; genuinely
	// polymorphic extras live here instead of forcing a schema.
	RawDocument string `gorm:"column:raw_document" json:"raw_document"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by TenderDetail
func (TenderDetail) TableName() string {
	return "tender_details"
}

// RequestedProduct is one line item requested by a tender.
// The set is wiped and re-inserted on every detail fetch.
type RequestedProduct struct {
	ID            uint    `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	TenderCode    string  `gorm:"column:tender_code;index" json:"tender_code"`
	Name          string  `gorm:"column:name" json:"name"`
	Description   string  `gorm:"column:description" json:"description"`
	Quantity      float64 `gorm:"column:quantity" json:"quantity"`
	UnitOfMeasure string  `gorm:"column:unit_of_measure" json:"unit_of_measure"`
}

// TableName overrides the table name used by RequestedProduct
func (RequestedProduct) TableName() string {
	return "requested_products"
}

// HistoryEntry is one action from a tender's action log.
type HistoryEntry struct {
	ID         uint   `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	TenderCode string `gorm:"column:tender_code;index" json:"tender_code"`
	TS         string `gorm:"column:ts" json:"ts"`
	Action     string `gorm:"column:action" json:"action"`
	Actor      string `gorm:"column:actor" json:"actor"`
}

// TableName overrides the table name used by HistoryEntry
func (HistoryEntry) TableName() string {
	return "tender_history"
}

// Attachment is one uploaded document attached to a tender.
type Attachment struct {
	ID         uint   `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	TenderCode string `gorm:"column:tender_code;index" json:"tender_code"`
	Filename   string `gorm:"column:filename" json:"filename"`
	RemoteID   string `gorm:"column:remote_id" json:"remote_id"`
}

// TableName overrides the table name used by Attachment
func (Attachment) TableName() string {
	return "attachments"
}
