/**
 * @description
 * Monthly archive importer.
 * Downloads the month's ZIP from the public archive, streams its CSV and
 * bulk-inserts historical bids in 5,000-row batches. A guard query makes
 * the operation at-most-once per month unless forced.
 *
 * @dependencies
 * - standard "archive/zip", "encoding/csv", "net/http"
 * - golang.org/x/text: Latin-1 decoding of the archive CSV
 * - gorm.io/gorm
 *
 * @notes
 * - Malformed rows are skipped and counted, never fatal.
 * - The archive has no unique natural key, so a forced re-import can
 *   duplicate rows. That is the operator's call.
 * - The temp file is deleted on every exit path.
 */

package importer

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/db"
	"github.com/licitabot/backend/internal/logger"
	"github.com/licitabot/backend/internal/matching"
	"github.com/licitabot/backend/internal/models"
	"golang.org/x/text/encoding/charmap"
	"gorm.io/gorm"
)

const (
	batchSize       = 5000
	downloadTimeout = 30 * time.Minute
	progressEvery   = 10 << 20 // bytes between download progress logs
)

// Result summarizes one import.
type Result struct {
	Month     string        `json:"month"`
	Cancelled bool          `json:"cancelled"`
	Inserted  int           `json:"inserted"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Importer loads one archive month into historical_bids.
type Importer struct {
	DB          *gorm.DB
	Dialect     db.Dialect
	URLTemplate string
	HTTPClient  *http.Client
}

// New builds an Importer from config.
func New(conn *gorm.DB, dialect db.Dialect, cfg *config.Config) *Importer {
	return &Importer{
		DB:          conn,
		Dialect:     dialect,
		URLTemplate: cfg.Importer.ArchiveURLTemplate,
		HTTPClient:  &http.Client{Timeout: downloadTimeout},
	}
}

// Import loads the archive for month ("YYYY-MM"). With force=false the
// guard aborts when any row for that month already exists.
func (im *Importer) Import(ctx context.Context, month string, force bool) (*Result, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, fmt.Errorf("invalid month %q, want YYYY-MM: %w", month, err)
	}

	start := time.Now()
	result := &Result{Month: month}

	existing, err := im.countMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	if existing > 0 && !force {
		logger.Info("Import of %s cancelled: %d rows already present (use force to override)", month, existing)
		result.Cancelled = true
		return result, nil
	}

	tmpPath, err := im.download(ctx, month)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	archive, err := zip.OpenReader(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	// Partitioning is opt-in; on a flat table the rows insert directly and
	// PARTITION OF would be rejected by the backend.
	ensurePartitions := false
	if im.Dialect.SupportsPartitioning {
		ready, perr := db.IsPartitioned(im.DB, "historical_bids")
		if perr != nil {
			logger.Error("partition inspection failed, treating historical_bids as flat: %v", perr)
		}
		ensurePartitions = ready
	}

	for _, entry := range archive.File {
		if !strings.HasSuffix(strings.ToLower(entry.Name), ".csv") {
			continue
		}
		inserted, skipped, err := im.importFile(ctx, entry, ensurePartitions)
		if err != nil {
			return nil, err
		}
		result.Inserted += inserted
		result.Skipped += skipped
	}

	result.Duration = time.Since(start)
	rate := float64(result.Inserted) / result.Duration.Seconds()
	logger.Info("Import of %s done: inserted=%d skipped=%d in %s (%.0f rows/s)",
		month, result.Inserted, result.Skipped, result.Duration.Round(time.Second), rate)
	return result, nil
}

func (im *Importer) countMonth(ctx context.Context, month string) (int64, error) {
	var count int64
	err := im.DB.WithContext(ctx).
		Model(&models.HistoricalBid{}).
		Where(im.Dialect.MonthExpr("close_date")+" = ?", month).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("month guard query failed: %w", err)
	}
	return count, nil
}

// download streams the month's ZIP to a temp file, logging progress.
func (im *Importer) download(ctx context.Context, month string) (string, error) {
	url := fmt.Sprintf(im.URLTemplate, month)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := im.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("archive download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("archive download failed: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "cot_"+month+"_*.zip")
	if err != nil {
		return "", err
	}

	total := resp.ContentLength
	var written int64
	var lastLogged int64
	buf := make([]byte, 256<<10)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				tmp.Close()
				os.Remove(tmp.Name())
				return "", werr
			}
			written += int64(n)
			if written-lastLogged >= progressEvery {
				lastLogged = written
				if total > 0 {
					logger.Info("Downloading %s: %d%% (%d MB)", month, written*100/total, written>>20)
				} else {
					logger.Info("Downloading %s: %d MB", month, written>>20)
				}
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", fmt.Errorf("archive download interrupted: %w", rerr)
		}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	logger.Info("Downloaded %s (%d MB)", month, written>>20)
	return tmp.Name(), nil
}

// importFile streams one CSV entry in 5,000-row batches, committing the
// whole file in one transaction.
func (im *Importer) importFile(ctx context.Context, entry *zip.File, ensurePartitions bool) (inserted, skipped int, err error) {
	rc, err := entry.Open()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open %s: %w", entry.Name, err)
	}
	defer rc.Close()

	reader := csv.NewReader(decodeReader(rc))
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	seenMonths := map[string]bool{}

	err = im.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch := make([]models.HistoricalBid, 0, batchSize)
		first := true
		for {
			record, rerr := reader.Read()
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				skipped++
				continue
			}
			if first {
				first = false
				// Header row.
				continue
			}

			bid, ok := projectRow(record)
			if !ok {
				skipped++
				continue
			}

			if ensurePartitions {
				month := bid.CloseDate[:7]
				if !seenMonths[month] {
					seenMonths[month] = true
					if perr := db.CreateMonthPartition(tx, im.Dialect, month); perr != nil {
						return perr
					}
				}
			}

			batch = append(batch, bid)
			if len(batch) >= batchSize {
				if cerr := tx.CreateInBatches(batch, batchSize).Error; cerr != nil {
					return fmt.Errorf("batch insert failed: %w", cerr)
				}
				inserted += len(batch)
				batch = batch[:0]
			}
		}

		if len(batch) > 0 {
			if cerr := tx.CreateInBatches(batch, batchSize).Error; cerr != nil {
				return fmt.Errorf("batch insert failed: %w", cerr)
			}
			inserted += len(batch)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, skipped, nil
}

// projectRow maps one archive record to a HistoricalBid. Columns:
// CodigoCotizacion;NombreCotizacion;Region;RUTProveedor;RazonSocialProveedor;
// ProductoCotizado;CantidadSolicitada;MontoTotal;DetalleCotizacion;
// ProveedorSeleccionado;FechaCierreParaCotizar
func projectRow(record []string) (models.HistoricalBid, bool) {
	if len(record) < 11 {
		return models.HistoricalBid{}, false
	}

	closeDate := strings.TrimSpace(record[10])
	if _, err := time.Parse(models.DateLayout, closeDate); err != nil {
		return models.HistoricalBid{}, false
	}

	quantity, ok := coerceInt(record[6])
	if !ok {
		return models.HistoricalBid{}, false
	}
	amount, ok := coerceInt(record[7])
	if !ok {
		return models.HistoricalBid{}, false
	}

	return models.HistoricalBid{
		QuoteCode:   strings.TrimSpace(record[0]),
		QuoteName:   strings.TrimSpace(record[1]),
		Region:      strings.TrimSpace(record[2]),
		VendorTaxID: strings.TrimSpace(record[3]),
		VendorName:  strings.TrimSpace(record[4]),
		ProductName: strings.TrimSpace(record[5]),
		Quantity:    quantity,
		TotalAmount: amount,
		DetailText:  strings.TrimSpace(record[8]),
		Won:         isWinnerToken(record[9]),
		CloseDate:   closeDate,
	}, true
}

// coerceInt parses a localized numeric field to an integer. The archive
// mixes "1234", "1234,5" and "1.234,50" shapes.
func coerceInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// isWinnerToken maps the localized "si"/"no" flag.
func isWinnerToken(s string) bool {
	return matching.Normalize(s) == "si"
}

// decodeReader returns a UTF-8 reader over the archive CSV: BOM-marked
// files are already UTF-8, everything else is treated as Latin-1 (a lossy
// but total decoding; no byte can fail).
func decodeReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, _ := br.Peek(3)
	if bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
		return br
	}
	return charmap.ISO8859_1.NewDecoder().Reader(br)
}
