package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/licitabot/backend/internal/cache"
	"github.com/licitabot/backend/internal/models"
	"gorm.io/gorm"
)

// fakeDetail serves detail documents, failing the codes in broken with 500.
// Attachment requests under /attachments/ are answered per attachmentsMode:
// "ok", "forbidden" or "notok".
func fakeDetail(broken map[string]bool, attachmentsMode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/attachments/") {
			switch attachmentsMode {
			case "ok":
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success": "OK",
					"payload": []map[string]string{
						{"id": "a-1", "filename": "bases.pdf"},
					},
				})
			case "forbidden":
				w.WriteHeader(http.StatusForbidden)
			default:
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": "NO"})
			}
			return
		}

		code := r.URL.Query().Get("code")
		if broken[code] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": "OK",
			"payload": map[string]interface{}{
				"code":          code,
				"description":   "Detalle de " + code,
				"delivery_days": 5,
				"buyer_org":     "Servicio de Salud",
				"items": []map[string]interface{}{
					{"name": "Item A", "quantity": 2.0, "unit_of_measure": "unidad"},
					{"name": "Item B", "quantity": 1.0, "unit_of_measure": "caja"},
				},
				"history": []map[string]string{
					{"date": "2025-06-01T10:00:00", "action": "published", "actor": "buyer"},
				},
			},
		})
	}
}

func seedPending(t *testing.T, conn *gorm.DB, codes ...string) {
	t.Helper()
	for i, code := range codes {
		row := models.TenderSummary{
			Code:      code,
			Name:      "Tender " + code,
			PublishTS: "2025-06-0" + string(rune('1'+i)) + "T10:00:00",
		}
		if err := conn.Create(&row).Error; err != nil {
			t.Fatalf("failed to seed summary %s: %v", code, err)
		}
	}
}

func TestDetailRunToleratesPerCodeFailure(t *testing.T) {
	srv := httptest.NewServer(fakeDetail(map[string]bool{"X2": true}, "forbidden"))
	defer srv.Close()

	conn := newTestDB(t)
	seedPending(t, conn, "X1", "X2", "X3")

	cfg := testScraperConfig(srv.URL, srv.URL+"/attachments")
	s := NewDetailScraper(conn, newTestClient(srv.URL, srv.URL+"/attachments"), cache.New(nil), cfg)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("detail run failed: %v", err)
	}

	if result.Processed != 2 || result.Errors != 1 {
		t.Fatalf("expected processed=2 errors=1, got %+v", result)
	}

	var fetched []string
	conn.Model(&models.TenderSummary{}).Where("detail_fetched = ?", true).Order("code").Pluck("code", &fetched)
	if len(fetched) != 2 || fetched[0] != "X1" || fetched[1] != "X3" {
		t.Fatalf("unexpected fetched set: %v", fetched)
	}

	var x2 models.TenderSummary
	conn.First(&x2, "code = ?", "X2")
	if x2.DetailFetched {
		t.Fatal("failed code must stay pending for the next run")
	}

	// Attachment 403s are swallowed; the details still landed.
	var details int64
	conn.Model(&models.TenderDetail{}).Count(&details)
	if details != 2 {
		t.Fatalf("expected 2 detail rows, got %d", details)
	}
	var attachments int64
	conn.Model(&models.Attachment{}).Count(&attachments)
	if attachments != 0 {
		t.Fatalf("expected no attachment rows, got %d", attachments)
	}
}

func TestDetailRunPersistsChildSets(t *testing.T) {
	srv := httptest.NewServer(fakeDetail(nil, "ok"))
	defer srv.Close()

	conn := newTestDB(t)
	seedPending(t, conn, "X1")

	cfg := testScraperConfig(srv.URL, srv.URL+"/attachments")
	s := NewDetailScraper(conn, newTestClient(srv.URL, srv.URL+"/attachments"), cache.New(nil), cfg)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("detail run failed: %v", err)
	}

	var detail models.TenderDetail
	if err := conn.First(&detail, "code = ?", "X1").Error; err != nil {
		t.Fatalf("detail row missing: %v", err)
	}
	if detail.Description != "Detalle de X1" || detail.BuyerOrg != "Servicio de Salud" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if !strings.Contains(detail.RawDocument, `"success"`) {
		t.Fatal("raw upstream document should be preserved")
	}

	var products int64
	conn.Model(&models.RequestedProduct{}).Where("tender_code = ?", "X1").Count(&products)
	if products != 2 {
		t.Fatalf("expected 2 requested products, got %d", products)
	}
	var history int64
	conn.Model(&models.HistoryEntry{}).Where("tender_code = ?", "X1").Count(&history)
	if history != 1 {
		t.Fatalf("expected 1 history row, got %d", history)
	}
	var attachments int64
	conn.Model(&models.Attachment{}).Where("tender_code = ?", "X1").Count(&attachments)
	if attachments != 1 {
		t.Fatalf("expected 1 attachment row, got %d", attachments)
	}
}

func TestDetailReRunReplacesChildSets(t *testing.T) {
	srv := httptest.NewServer(fakeDetail(nil, "ok"))
	defer srv.Close()

	conn := newTestDB(t)
	seedPending(t, conn, "X1")

	cfg := testScraperConfig(srv.URL, srv.URL+"/attachments")
	s := NewDetailScraper(conn, newTestClient(srv.URL, srv.URL+"/attachments"), cache.New(nil), cfg)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Force a refetch of the same code.
	if err := conn.Model(&models.TenderSummary{}).Where("code = ?", "X1").Update("detail_fetched", false).Error; err != nil {
		t.Fatalf("failed to reset flag: %v", err)
	}
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	// Wipe-and-replace: counts stay flat instead of doubling.
	var products int64
	conn.Model(&models.RequestedProduct{}).Where("tender_code = ?", "X1").Count(&products)
	if products != 2 {
		t.Fatalf("expected 2 requested products after re-run, got %d", products)
	}
	var details int64
	conn.Model(&models.TenderDetail{}).Count(&details)
	if details != 1 {
		t.Fatalf("expected 1 detail row after re-run, got %d", details)
	}
}

func TestDetailRunSkipsMissingUpstreamDoc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/attachments/") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		// Not-ok envelope: the document does not exist upstream.
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": "NO"})
	}))
	defer srv.Close()

	conn := newTestDB(t)
	seedPending(t, conn, "GHOST")

	cfg := testScraperConfig(srv.URL, srv.URL+"/attachments")
	s := NewDetailScraper(conn, newTestClient(srv.URL, srv.URL+"/attachments"), cache.New(nil), cfg)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Processed != 0 || result.Errors != 1 {
		t.Fatalf("expected processed=0 errors=1, got %+v", result)
	}
}
