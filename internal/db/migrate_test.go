package db

import (
	"strings"
	"testing"

	"github.com/licitabot/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMigratedDB(t *testing.T) *gorm.DB {
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

	if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := Migrate(conn, Dialect{Name: "sqlite"}); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	return conn
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn := newMigratedDB(t)
	if err := Migrate(conn, Dialect{Name: "sqlite"}); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestTrigramIndexesCoverTheMatchedExpression(t *testing.T) {
	// The matcher filters on lower(quote_name) / lower(product_name); a
	// plain-column gin index cannot serve that predicate.
	for _, stmt := range trigramIndexes {
		if !strings.Contains(stmt, "gin (lower(") {
			t.Errorf("trigram index does not cover the lowered expression: %s", stmt)
		}
		if !strings.Contains(stmt, "gin_trgm_ops") {
			t.Errorf("trigram index missing the trigram opclass: %s", stmt)
		}
	}
}

func TestDeletingSummaryCascadesToChildren(t *testing.T) {
	conn := newMigratedDB(t)

	summary := models.TenderSummary{Code: "T-1", Name: "Compra de sillas"}
	if err := conn.Create(&summary).Error; err != nil {
		t.Fatalf("failed to create summary: %v", err)
	}
	if err := conn.Create(&models.TenderDetail{Code: "T-1", Description: "d"}).Error; err != nil {
		t.Fatalf("failed to create detail: %v", err)
	}
	if err := conn.Create(&models.RequestedProduct{TenderCode: "T-1", Name: "Silla"}).Error; err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	if err := conn.Create(&models.HistoryEntry{TenderCode: "T-1", Action: "published"}).Error; err != nil {
		t.Fatalf("failed to create history entry: %v", err)
	}
	if err := conn.Create(&models.Attachment{TenderCode: "T-1", Filename: "bases.pdf"}).Error; err != nil {
		t.Fatalf("failed to create attachment: %v", err)
	}

	if err := conn.Delete(&models.TenderSummary{}, "code = ?", "T-1").Error; err != nil {
		t.Fatalf("failed to delete summary: %v", err)
	}

	for table, model := range map[string]interface{}{
		"tender_details":     &models.TenderDetail{},
		"requested_products": &models.RequestedProduct{},
		"tender_history":     &models.HistoryEntry{},
		"attachments":        &models.Attachment{},
	} {
		var count int64
		conn.Model(model).Count(&count)
		if count != 0 {
			t.Errorf("expected %s to cascade, %d rows left", table, count)
		}
	}
}

func TestOrphanChildRowsAreRejected(t *testing.T) {
	conn := newMigratedDB(t)

	if err := conn.Create(&models.RequestedProduct{TenderCode: "NOPE", Name: "Silla"}).Error; err == nil {
		t.Fatal("expected a foreign key violation for an orphan product")
	}
	if err := conn.Create(&models.TenderDetail{Code: "NOPE"}).Error; err == nil {
		t.Fatal("expected a foreign key violation for an orphan detail")
	}
}
