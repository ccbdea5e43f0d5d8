/**
 * @description
 * Per-user activity models: saved tenders and interaction log.
 * Written by the presentation surface; the core only migrates them and keeps
 * their per-user indexes in shape.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/google/uuid
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SavedTender is a bookmark of a tender by a user.
type SavedTender struct {
	ID         uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	OwnerID    string    `gorm:"column:owner_id;index" json:"owner_id"`
	TenderCode string    `gorm:"column:tender_code" json:"tender_code"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by SavedTender
func (SavedTender) TableName() string {
	return "saved_tenders"
}

// UserInteraction is one logged interaction (search, price query, score).
// IDs are UUID strings so interaction logs merge cleanly across backends.
type UserInteraction struct {
	ID        string    `gorm:"primaryKey;column:id" json:"id"`
	OwnerID   string    `gorm:"column:owner_id;index" json:"owner_id"`
	Kind      string    `gorm:"column:kind" json:"kind"`
	Payload   string    `gorm:"column:payload" json:"payload"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by UserInteraction
func (UserInteraction) TableName() string {
	return "user_interactions"
}

// BeforeCreate assigns an ID when the caller did not.
func (u *UserInteraction) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
