package scraper

import (
	"testing"
	"time"

	"github.com/licitabot/backend/internal/breaker"
	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/mercadopublico"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
		&models.TenderSummary{},
		&models.TenderDetail{},
		&models.RequestedProduct{},
		&models.HistoryEntry{},
		&models.Attachment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func testScraperConfig(baseURL, attachmentsURL string) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:        baseURL,
			AttachmentsURL: attachmentsURL,
			APIKey:         "test-key",
			Timeout:        5 * time.Second,
		},
		Scraper: config.ScraperConfig{
			WindowDays:      7,
			DetailBatchSize: 10,
			PagePacing:      time.Millisecond,
			DetailPacing:    time.Millisecond,
		},
	}
}

func newTestClient(baseURL, attachmentsURL string) *mercadopublico.Client {
	cfg := testScraperConfig(baseURL, attachmentsURL)
	return mercadopublico.NewClient(cfg, breaker.NewRegistry())
}
