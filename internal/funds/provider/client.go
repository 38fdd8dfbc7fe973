// Package provider fetches fund data from the upstream fund API and falls back
// to a bundled static dataset whenever the API cannot be used.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/pkg/logger"
)

// maxBodyBytes bounds how much of an upstream response is read
const maxBodyBytes = 8 << 20

// Config for the upstream API client
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Snapshot is one fund list fetch
type Snapshot struct {
	Funds     []domain.FundRecord
	Fallback  bool
	FetchedAt time.Time
}

// Client talks to the fund API
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	now     func() time.Time
}

// New creates a client. Requests are retried on transport errors and 5xx
// responses, and every attempt is traced.
func New(cfg Config) *Client {
	base := cleanhttp.DefaultPooledClient()
	base.Timeout = cfg.Timeout
	base.Transport = otelhttp.NewTransport(base.Transport)

	rc := retryablehttp.NewClient()
	rc.HTTPClient = base
	rc.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.Logger = logger.Retryable("funds-provider")
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn(req.Context()).
				Str("url", req.URL.String()).
				Int("attempt", attempt).
				Msg("Retrying fund API request")
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    rc,
		now:     time.Now,
	}
}

// ListFunds returns the current fund list. It never fails: any upstream
// problem yields the static dataset with Fallback set.
func (c *Client) ListFunds(ctx context.Context) Snapshot {
	snap := Snapshot{FetchedAt: c.now()}

	body, err := c.get(ctx, c.baseURL)
	if err == nil {
		var funds []domain.FundRecord
		funds, err = decodeFundList(body)
		if err == nil {
			snap.Funds = funds
			return snap
		}
	}

	logger.Warn(ctx).Err(err).Str("url", c.baseURL).Msg("Fund API unavailable, using static data")
	snap.Funds = StaticFunds()
	snap.Fallback = true
	return snap
}

// GetFund returns one fund's detail, falling back to the static details.
// Codes unknown to both return domain.ErrFundNotFound.
func (c *Client) GetFund(ctx context.Context, code string) (*domain.FundDetail, error) {
	if code == "" {
		return nil, domain.ErrInvalidFundCode
	}

	target := c.baseURL + "/" + url.PathEscape(code)
	body, err := c.get(ctx, target)
	if err == nil {
		var detail *domain.FundDetail
		detail, err = decodeFundDetail(body)
		if err == nil {
			return detail, nil
		}
	}

	logger.Warn(ctx).Err(err).Str("fund_code", code).Msg("Fund detail API unavailable, using static data")

	detail, ok := StaticDetail(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFundNotFound, code)
	}
	return detail, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
