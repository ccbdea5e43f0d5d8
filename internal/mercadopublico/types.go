/**
 * @description
 * Wire types for the Mercado Público quick-buy ("compra ágil") catalog API
 * and their conversion to database models.
 *
 * @dependencies
 * - backend/internal/models
 */

package mercadopublico

import (
	"time"

	"github.com/licitabot/backend/internal/models"
)

// Envelope is the upstream response wrapper. Success is the literal "OK"
// on happy paths; anything else is a sentinel "not ok".
type Envelope struct {
	Success string `json:"success"`
}

// ListingResponse wraps a page of tender summaries.
type ListingResponse struct {
	Success string         `json:"success"`
	Payload ListingPayload `json:"payload"`
}

// ListingPayload carries one page of results plus pagination totals.
type ListingPayload struct {
	Results    []ListingItem `json:"results"`
	TotalCount int           `json:"total_count"`
	PageCount  int           `json:"page_count"`
}

// ListingItem is one tender summary as served by the listing endpoint.
type ListingItem struct {
	ID               string  `json:"id"`
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	PublishDate      string  `json:"publish_date"`
	CloseDate        string  `json:"close_date"`
	Buyer            string  `json:"buyer"`
	Unit             string  `json:"unit"`
	StateID          int     `json:"state_id"`
	StateLabel       string  `json:"state_label"`
	BudgetAmount     float64 `json:"budget_amount"`
	Currency         string  `json:"currency"`
	BudgetCLP        float64 `json:"budget_clp"`
	FxDate           string  `json:"fx_date"`
	FxRate           float64 `json:"fx_rate"`
	CompetitorsCount int     `json:"competitors_count"`
	CallState        string  `json:"call_state"`
}

// ToSummaryModel converts a listing item to the database model.
func (i ListingItem) ToSummaryModel() models.TenderSummary {
	return models.TenderSummary{
		Code:             i.Code,
		UpstreamID:       i.ID,
		Name:             i.Name,
		PublishTS:        canonicalTimestamp(i.PublishDate),
		CloseTS:          canonicalTimestamp(i.CloseDate),
		Buyer:            i.Buyer,
		Unit:             i.Unit,
		StateID:          i.StateID,
		StateLabel:       i.StateLabel,
		BudgetAmount:     i.BudgetAmount,
		Currency:         i.Currency,
		BudgetCLP:        i.BudgetCLP,
		FxTS:             canonicalTimestamp(i.FxDate),
		FxRate:           i.FxRate,
		CompetitorsCount: i.CompetitorsCount,
		CallState:        i.CallState,
	}
}

// DetailResponse wraps the full tender document.
type DetailResponse struct {
	Success string        `json:"success"`
	Payload DetailPayload `json:"payload"`
}

// DetailPayload is the nested tender document from the detail endpoint.
// Upstream occasionally adds fields; the scraper keeps the raw body too.
type DetailPayload struct {
	Code              string        `json:"code"`
	Description       string        `json:"description"`
	DeliveryAddress   string        `json:"delivery_address"`
	DeliveryDays      int           `json:"delivery_days"`
	EstimatedBudget   float64       `json:"estimated_budget"`
	Penalty           string        `json:"penalty"`
	InvitedCount      int           `json:"invited_count"`
	BuyerOrg          string        `json:"buyer_org"`
	BuyerTaxID        string        `json:"buyer_tax_id"`
	Division          string        `json:"division"`
	FirstCallCloseTS  string        `json:"first_call_close_date"`
	SecondCallCloseTS string        `json:"second_call_close_date"`
	Environmental     bool          `json:"environmental"`
	Social            bool          `json:"social"`
	Items             []DetailItem  `json:"items"`
	History           []HistoryItem `json:"history"`
}

// DetailItem is one requested product line inside a detail document.
type DetailItem struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	UnitOfMeasure string  `json:"unit_of_measure"`
}

// HistoryItem is one action-log row inside a detail document.
type HistoryItem struct {
	Date   string `json:"date"`
	Action string `json:"action"`
	Actor  string `json:"actor"`
}

// ToDetailModel converts the payload to the database model. rawBody is the
// verbatim upstream document, preserved as an opaque blob.
func (p DetailPayload) ToDetailModel(code string, rawBody []byte) models.TenderDetail {
	return models.TenderDetail{
		Code:              code,
		Description:       p.Description,
		DeliveryAddress:   p.DeliveryAddress,
		DeliveryDays:      p.DeliveryDays,
		EstimatedBudget:   p.EstimatedBudget,
		Penalty:           p.Penalty,
		InvitedCount:      p.InvitedCount,
		BuyerOrg:          p.BuyerOrg,
		BuyerTaxID:        p.BuyerTaxID,
		Division:          p.Division,
		FirstCallCloseTS:  canonicalTimestamp(p.FirstCallCloseTS),
		SecondCallCloseTS: canonicalTimestamp(p.SecondCallCloseTS),
		Environmental:     p.Environmental,
		Social:            p.Social,
		RawDocument:       string(rawBody),
	}
}

// AttachmentsResponse wraps the attachment listing.
type AttachmentsResponse struct {
	Success string           `json:"success"`
	Payload []AttachmentItem `json:"payload"`
}

// AttachmentItem is one attachment reference.
type AttachmentItem struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// upstreamLayouts are the timestamp shapes the catalog is known to emit.
var upstreamLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006 15:04",
}

// canonicalTimestamp normalizes an upstream timestamp to the storage form.
// Unparseable values are stored as-is so nothing is silently lost.
func canonicalTimestamp(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range upstreamLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.TimestampLayout)
		}
	}
	return s
}
