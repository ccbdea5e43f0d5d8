package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/db"
	"github.com/licitabot/backend/internal/models"
	"golang.org/x/text/encoding/charmap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const archiveHeader = "CodigoCotizacion;NombreCotizacion;Region;RUTProveedor;RazonSocialProveedor;ProductoCotizado;CantidadSolicitada;MontoTotal;DetalleCotizacion;ProveedorSeleccionado;FechaCierreParaCotizar"

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

	if err := conn.AutoMigrate(&models.HistoricalBid{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

// buildArchive zips csvBody as COT.csv, BOM-marked so it reads back as UTF-8.
func buildArchive(t *testing.T, csvBody string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("COT.csv")
	if err != nil {
		t.Fatalf("failed to create zip entry: %v", err)
	}
	if _, err := f.Write([]byte("\xEF\xBB\xBF" + csvBody)); err != nil {
		t.Fatalf("failed to write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func serveArchive(t *testing.T, blob []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".zip") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(blob)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestImporter(conn *gorm.DB, srv *httptest.Server) *Importer {
	cfg := &config.Config{
		Importer: config.ImporterConfig{
			ArchiveURLTemplate: srv.URL + "/COT_%s.zip",
		},
	}
	return New(conn, db.Dialect{}, cfg)
}

func TestImportLoadsArchiveRows(t *testing.T) {
	csvBody := archiveHeader + "\n" +
		"C-1;Compra de notebooks;RM;76.111.222-3;Tecno SpA;Notebook HP;10;1.500.000,00;Entrega en 5 dias;Si;2025-05-12\n" +
		"C-1;Compra de notebooks;RM;76.333.444-5;Compu Ltda;Notebook Lenovo;10;1600000;;No;2025-05-12\n" +
		"BAD;fila corta;RM\n" +
		"C-2;Resmas de papel;V;77.555.666-7;Papeles SpA;Resma carta;100;450,50;;si;2025-05-20\n"

	srv := serveArchive(t, buildArchive(t, csvBody))
	conn := newTestDB(t)
	im := newTestImporter(conn, srv)

	result, err := im.Import(context.Background(), "2025-05", false)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if result.Cancelled {
		t.Fatal("fresh import must not be cancelled")
	}
	if result.Inserted != 3 {
		t.Fatalf("expected 3 inserted rows, got %d", result.Inserted)
	}
	if result.Skipped != 1 {
		t.Fatalf("expected 1 skipped row, got %d", result.Skipped)
	}

	var winner models.HistoricalBid
	if err := conn.First(&winner, "quote_code = ? AND won = ?", "C-1", true).Error; err != nil {
		t.Fatalf("winner row missing: %v", err)
	}
	if winner.TotalAmount != 1500000 {
		t.Fatalf("localized amount mis-parsed: %d", winner.TotalAmount)
	}
	if winner.VendorName != "Tecno SpA" {
		t.Fatalf("unexpected vendor: %q", winner.VendorName)
	}
	if winner.CloseDate != "2025-05-12" {
		t.Fatalf("unexpected close date: %q", winner.CloseDate)
	}

	var loser models.HistoricalBid
	if err := conn.First(&loser, "quote_code = ? AND won = ?", "C-1", false).Error; err != nil {
		t.Fatalf("loser row missing: %v", err)
	}
	if loser.TotalAmount != 1600000 {
		t.Fatalf("plain amount mis-parsed: %d", loser.TotalAmount)
	}
}

func TestImportMonthGuard(t *testing.T) {
	csvBody := archiveHeader + "\n" +
		"C-1;Compra de sillas;RM;76.111.222-3;Muebles SpA;Silla;5;250000;;Si;2025-05-12\n"

	srv := serveArchive(t, buildArchive(t, csvBody))
	conn := newTestDB(t)
	im := newTestImporter(conn, srv)

	first, err := im.Import(context.Background(), "2025-05", false)
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	if first.Inserted != 1 {
		t.Fatalf("expected 1 row, got %d", first.Inserted)
	}

	// Same month again: the guard cancels before downloading anything.
	second, err := im.Import(context.Background(), "2025-05", false)
	if err != nil {
		t.Fatalf("guarded import errored: %v", err)
	}
	if !second.Cancelled {
		t.Fatal("expected the re-import to be cancelled")
	}

	var count int64
	conn.Model(&models.HistoricalBid{}).Count(&count)
	if count != 1 {
		t.Fatalf("guard must keep the table unchanged, got %d rows", count)
	}

	// Force pushes through the guard.
	third, err := im.Import(context.Background(), "2025-05", true)
	if err != nil {
		t.Fatalf("forced import failed: %v", err)
	}
	if third.Cancelled {
		t.Fatal("forced import must not be cancelled")
	}

	// A different month is unaffected by the guard.
	fourth, err := im.Import(context.Background(), "2025-04", false)
	if err != nil {
		t.Fatalf("other-month import errored: %v", err)
	}
	if fourth.Cancelled {
		t.Fatal("the guard must be scoped to the requested month")
	}
}

func TestImportInsertsIntoFlatTableOnPartitioningBackend(t *testing.T) {
	csvBody := archiveHeader + "\n" +
		"C-1;Compra de escritorios;RM;76.111.222-3;Muebles SpA;Escritorio;5;250000;;Si;2025-05-12\n"

	srv := serveArchive(t, buildArchive(t, csvBody))
	conn := newTestDB(t)

	// The backend offers partitioning but historical_bids is still the flat
	// table AutoMigrate created. The import must insert directly instead of
	// issuing PARTITION OF statements against a flat parent.
	cfg := &config.Config{
		Importer: config.ImporterConfig{
			ArchiveURLTemplate: srv.URL + "/COT_%s.zip",
		},
	}
	im := New(conn, db.Dialect{Name: "postgres", SupportsPartitioning: true}, cfg)

	result, err := im.Import(context.Background(), "2025-05", false)
	if err != nil {
		t.Fatalf("flat-table import failed: %v", err)
	}
	if result.Inserted != 1 {
		t.Fatalf("expected 1 inserted row, got %d", result.Inserted)
	}
}

func TestImportRejectsBadMonth(t *testing.T) {
	conn := newTestDB(t)
	srv := serveArchive(t, nil)
	im := newTestImporter(conn, srv)

	for _, month := range []string{"2025", "05-2025", "2025-13", "garbage"} {
		if _, err := im.Import(context.Background(), month, false); err == nil {
			t.Errorf("expected error for month %q", month)
		}
	}
}

func TestImportSurfacesMissingArchive(t *testing.T) {
	conn := newTestDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	im := newTestImporter(conn, srv)

	if _, err := im.Import(context.Background(), "2025-05", false); err == nil {
		t.Fatal("expected error when the archive is missing")
	}
}

func TestProjectRow(t *testing.T) {
	record := strings.Split("C-1;Compra;RM;76.1-2;Tecno;Notebook;10;1.500.000,00;detalle;Si;2025-05-12", ";")
	bid, ok := projectRow(record)
	if !ok {
		t.Fatal("expected a valid row")
	}
	if bid.Quantity != 10 || bid.TotalAmount != 1500000 || !bid.Won {
		t.Fatalf("unexpected projection: %+v", bid)
	}

	// Short rows, bad dates and junk numbers are all rejected.
	if _, ok := projectRow(strings.Split("a;b;c", ";")); ok {
		t.Fatal("short row must be rejected")
	}
	if _, ok := projectRow(strings.Split("C;N;R;T;V;P;10;100;;Si;12/05/2025", ";")); ok {
		t.Fatal("non-canonical date must be rejected")
	}
	if _, ok := projectRow(strings.Split("C;N;R;T;V;P;muchos;100;;Si;2025-05-12", ";")); ok {
		t.Fatal("junk quantity must be rejected")
	}
}

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1234", 1234, true},
		{"1234,5", 1234, true},
		{"1.234,50", 1234, true},
		{"1.500.000,00", 1500000, true},
		{" 42 ", 42, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, c := range cases {
		got, ok := coerceInt(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("coerceInt(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestIsWinnerToken(t *testing.T) {
	for _, s := range []string{"Si", "si", "SI", "Sí", " sí "} {
		if !isWinnerToken(s) {
			t.Errorf("expected %q to read as winner", s)
		}
	}
	for _, s := range []string{"No", "", "nope", "0"} {
		if isWinnerToken(s) {
			t.Errorf("expected %q to read as non-winner", s)
		}
	}
}

func TestDecodeReader(t *testing.T) {
	// BOM-marked UTF-8 passes through without the marker.
	utf8In := "\xEF\xBB\xBFadquisición\n"
	got, err := io.ReadAll(decodeReader(strings.NewReader(utf8In)))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "adquisición\n" {
		t.Fatalf("unexpected UTF-8 decode: %q", got)
	}

	// Unmarked input is treated as Latin-1.
	latin1, err := charmap.ISO8859_1.NewEncoder().String("adquisición")
	if err != nil {
		t.Fatalf("failed to build latin-1 input: %v", err)
	}
	got, err = io.ReadAll(decodeReader(strings.NewReader(latin1)))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "adquisición" {
		t.Fatalf("unexpected Latin-1 decode: %q", got)
	}
}
