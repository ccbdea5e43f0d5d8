package services

import (
	"testing"
	"time"

	"github.com/licitabot/backend/internal/db"
	"github.com/licitabot/backend/internal/matching"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory store with the analytics tables migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = conn.AutoMigrate(
		&models.HistoricalBid{},
		&models.TenderSummary{},
		&models.CompanyProfile{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func newTestMatcher(conn *gorm.DB) *matching.Matcher {
	return matching.NewMatcher(conn, db.Dialect{}, 3)
}

func recentDate(daysAgo int) string {
	return time.Now().AddDate(0, 0, -daysAgo).Format(models.DateLayout)
}

func seedHistoricalBids(t *testing.T, conn *gorm.DB, bids []models.HistoricalBid) {
	t.Helper()
	if err := conn.CreateInBatches(bids, 500).Error; err != nil {
		t.Fatalf("failed to seed historical bids: %v", err)
	}
}

func mustParseDate(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(models.DateLayout, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return parsed
}
