/**
 * @description
 * HTTP Client for the Mercado Público quick-buy catalog API.
 * Three idempotent GETs: a paginated listing over a date range, the full
 * tender detail by code, and the attachment list by code.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/breaker
 * - backend/internal/config
 *
 * @notes
 * - The upstream rejects unknown clients: every request carries the static
 *   x-api-key and a full browser user agent.
 * - Calls are gated by a circuit breaker keyed on the remote host. Network
 *   errors, 5xx and 429 count as failures; other 4xx do not.
 * - Attachment failures are non-fatal and collapse to an empty list.
 */

package mercadopublico

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/licitabot/backend/internal/breaker"
	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/logger"
	"github.com/licitabot/backend/internal/models"
)

const (
	DefaultTimeout = 20 * time.Second

	// The listing endpoint only serves published quick-buys in this state.
	listingStatus = "2"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client talks to the quick-buy catalog.
type Client struct {
	BaseURL        string
	AttachmentsURL string
	APIKey         string
	HTTPClient     *http.Client
	Breakers       *breaker.Registry
}

// NewClient creates a catalog client. The breaker registry is shared with
// every other consumer of the same remote hosts.
func NewClient(cfg *config.Config, breakers *breaker.Registry) *Client {
	timeout := cfg.Upstream.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:        cfg.Upstream.BaseURL,
		AttachmentsURL: cfg.Upstream.AttachmentsURL,
		APIKey:         cfg.Upstream.APIKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Breakers: breakers,
	}
}

// statusError marks a non-2xx upstream response.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream error: status %d", e.Code)
}

// countable reports whether an error should trip the breaker. Permanent
// remote errors (4xx except 429) are the caller's problem, not the host's.
func countable(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*statusError); ok {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true // network/timeout
}

// ListTenders fetches one listing page for the date window. Callers iterate
// pages until PageCount is reached or a page comes back empty.
func (c *Client) ListTenders(ctx context.Context, dateFrom, dateTo time.Time, page int) (*ListingPayload, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("date_from", dateFrom.Format(models.DateLayout))
	q.Set("date_to", dateTo.Format(models.DateLayout))
	q.Set("order_by", "recent")
	q.Set("page_number", strconv.Itoa(page))
	q.Set("status", listingStatus)
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var resp ListingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed listing response: %w", err)
	}
	if resp.Success != "OK" {
		return nil, fmt.Errorf("listing rejected: success=%q", resp.Success)
	}
	return &resp.Payload, nil
}

// GetDetail fetches the full tender document by code. A "not ok" envelope
// or a 404 returns (nil, nil): absence is a result, not an error.
func (c *Client) GetDetail(ctx context.Context, code string) (*DetailPayload, []byte, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, nil, err
	}

	q := u.Query()
	q.Set("action", "ficha")
	q.Set("code", code)
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		if se, ok := err.(*statusError); ok && se.Code == http.StatusNotFound {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var resp DetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("malformed detail response for %s: %w", code, err)
	}
	if resp.Success != "OK" {
		return nil, nil, nil
	}
	return &resp.Payload, body, nil
}

// GetAttachments fetches the attachment list by code. Attachments are
// supplementary: any failure (403, 5xx, network) returns the empty list.
func (c *Client) GetAttachments(ctx context.Context, code string) []AttachmentItem {
	body, err := c.get(ctx, c.AttachmentsURL+"/"+url.PathEscape(code))
	if err != nil {
		// Upstream intermittently 403s this endpoint; logged for
		// visibility, swallowed by contract.
		logger.Error("attachments fetch failed for %s: %v", code, err)
		return nil
	}

	var resp AttachmentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.Error("malformed attachments response for %s: %v", code, err)
		return nil
	}
	if resp.Success != "OK" {
		return nil
	}
	return resp.Payload
}

// get performs a breaker-gated GET and returns the raw body.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	host := hostOf(rawURL)
	br := c.Breakers.Get(host)
	if err := br.Allow(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		br.RecordFailure()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &statusError{Code: resp.StatusCode}
		if countable(serr) {
			br.RecordFailure()
		} else {
			// The host answered; a non-counted 4xx must still resolve a
			// half-open probe or the breaker never leaves HALF_OPEN.
			br.RecordSuccess()
		}
		return nil, serr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		br.RecordFailure()
		return nil, err
	}

	br.RecordSuccess()
	return body, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "upstream"
	}
	return u.Host
}
