/**
 * @description
 * SystemStatus key/value model.
 * The scheduler stamps last_run_* keys here after every successful job so
 * external monitoring can tell whether ingestion is alive.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"strings"
	"time"
)

// Well-known system_status keys.
const (
	StatusKeyLastListingRun = "last_run_listing"
	StatusKeyLastDetailRun  = "last_run_detail"
	StatusKeyLastImportRun  = "last_run_import"
)

// SystemStatus is one monitoring key/value pair.
type SystemStatus struct {
	Key       string    `gorm:"primaryKey;column:key" json:"key"`
	Value     string    `gorm:"column:value" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by SystemStatus
func (SystemStatus) TableName() string {
	return "system_status"
}

// splitCommaList splits a comma-separated column into trimmed non-empty parts.
func splitCommaList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
