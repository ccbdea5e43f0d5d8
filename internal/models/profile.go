/**
 * @description
 * CompanyProfile database model.
 * Owned and written by the subscription surface; the core reads it to score
 * active tenders for compatibility.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import "time"

// Weight levels accepted by the compatibility scorer.
const (
	WeightLow    = "low"
	WeightMedium = "medium"
	WeightHigh   = "high"
)

// CompanyProfile describes what a company sells and which tenders it wants.
type CompanyProfile struct {
	OwnerID              string  `gorm:"primaryKey;column:owner_id" json:"owner_id"`
	CompanyName          string  `gorm:"column:company_name" json:"company_name"`
	Trade                string  `gorm:"column:trade" json:"trade"`
	ProductsServices     string  `gorm:"column:products_services" json:"products_services"`
	Keywords             string  `gorm:"column:keywords" json:"keywords"` // comma-separated
	DeliveryCapacityDays int     `gorm:"column:delivery_capacity_days" json:"delivery_capacity_days"`
	Location             string  `gorm:"column:location" json:"location"`
	YearsExperience      int     `gorm:"column:years_experience" json:"years_experience"`
	Certifications       string  `gorm:"column:certifications" json:"certifications"`
	AlertsOn             bool    `gorm:"column:alerts_on;default:false" json:"alerts_on"`
	KeywordWeight        string  `gorm:"column:keyword_weight;default:medium" json:"keyword_weight"`
	CompetitionWeight    string  `gorm:"column:competition_weight;default:medium" json:"competition_weight"`
	AmountWeight         string  `gorm:"column:amount_weight;default:medium" json:"amount_weight"`
	BudgetMin            float64 `gorm:"column:budget_min" json:"budget_min"`
	BudgetMax            float64 `gorm:"column:budget_max" json:"budget_max"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by CompanyProfile
func (CompanyProfile) TableName() string {
	return "company_profiles"
}

// KeywordList splits the comma-separated keywords column.
func (p CompanyProfile) KeywordList() []string {
	return splitCommaList(p.Keywords)
}
