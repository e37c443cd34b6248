// Package ledgerapi is the HTTP client of the external bookkeeping service.
package ledgerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/usecase"
)

// Endpoint names reported to metrics.
const (
	EndpointListDeals = "list_deals"
	EndpointGetDeal   = "get_deal"
	EndpointReference = "reference"
)

// Retry backoff bounds of one call.
const (
	retryInitialInterval = 500 * time.Millisecond
	retryMaxInterval     = 5 * time.Second
	retryMaxElapsed      = 30 * time.Second
)

// Observer receives upstream request telemetry.
type Observer interface {
	ObserveUpstream(endpoint, status string, duration time.Duration)
}

// Config configures a Client.
type Config struct {
	BaseURL        string
	Credentials    usecase.CredentialSource
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second
	RateBurst      int
	MaxRetries     uint64
	Logger         zerolog.Logger
	Observer       Observer
	Clock          usecase.Clock
}

// Client implements usecase.LedgerClient.
type Client struct {
	baseURL     string
	credentials usecase.CredentialSource
	httpClient  *http.Client
	timeout     time.Duration
	limiter     *rate.Limiter
	maxRetries  uint64
	logger      zerolog.Logger
	observer    Observer
	clock       usecase.Clock

	// newBackOff is replaced in tests.
	newBackOff func() backoff.BackOff
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledger api: status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed when repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// NewClient creates a new ledger API client.
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = usecase.DefaultRequestTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 3
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Clock == nil {
		cfg.Clock = usecase.SystemClock()
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		credentials: cfg.Credentials,
		httpClient:  cfg.HTTPClient,
		timeout:     cfg.RequestTimeout,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		maxRetries:  cfg.MaxRetries,
		logger:      cfg.Logger,
		observer:    cfg.Observer,
		clock:       cfg.Clock,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = retryInitialInterval
			b.MaxInterval = retryMaxInterval
			b.MaxElapsedTime = retryMaxElapsed
			return b
		},
	}
}

// CallBudget is the longest one call can take with every retry, so callers
// that bound a whole call do not cut the retries short.
func (c *Client) CallBudget() time.Duration {
	attempts := time.Duration(c.maxRetries + 1)
	return min(retryMaxElapsed+c.timeout, attempts*(c.timeout+retryMaxInterval))
}

type dealsResponse struct {
	Deals []*domain.DealHeader `json:"deals"`
}

type dealResponse struct {
	Deal *domain.DealHeader `json:"deal"`
}

// ListDeals returns one page of deal headers issued within the query range.
func (c *Client) ListDeals(ctx context.Context, companyID int64, q domain.DealQuery) ([]*domain.DealHeader, error) {
	params := url.Values{}
	params.Set("company_id", strconv.FormatInt(companyID, 10))
	params.Set("start_issue_date", q.DateFrom)
	params.Set("end_issue_date", q.DateTo)
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))

	var resp dealsResponse
	if err := c.get(ctx, EndpointListDeals, "/api/1/deals", params, &resp); err != nil {
		return nil, err
	}

	return resp.Deals, nil
}

// GetDeal returns one deal with its detail lines and receipts.
func (c *Client) GetDeal(ctx context.Context, companyID, dealID int64) (*domain.DealHeader, error) {
	params := url.Values{}
	params.Set("company_id", strconv.FormatInt(companyID, 10))

	var resp dealResponse
	if err := c.get(ctx, EndpointGetDeal, "/api/1/deals/"+strconv.FormatInt(dealID, 10), params, &resp); err != nil {
		return nil, err
	}
	if resp.Deal == nil {
		return nil, fmt.Errorf("ledger api: deal %d missing from response", dealID)
	}

	return resp.Deal, nil
}

var referencePaths = map[domain.ReferenceType]string{
	domain.ReferencePartner:     "partners",
	domain.ReferenceAccountItem: "account_items",
	domain.ReferenceTag:         "tags",
}

// ListReferenceData returns every id/name pair of one reference type.
func (c *Client) ListReferenceData(ctx context.Context, companyID int64, refType domain.ReferenceType) ([]domain.ReferenceItem, error) {
	key, ok := referencePaths[refType]
	if !ok {
		return nil, fmt.Errorf("ledger api: unknown reference type %q", refType)
	}

	params := url.Values{}
	params.Set("company_id", strconv.FormatInt(companyID, 10))

	var resp map[string][]domain.ReferenceItem
	if err := c.get(ctx, EndpointReference, "/api/1/"+key, params, &resp); err != nil {
		return nil, err
	}

	return resp[key], nil
}

// get performs a throttled GET with retries on 429, 5xx and transport errors.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	target := c.baseURL + path + "?" + params.Encode()
	attempt := 0

	operation := func() error {
		attempt++

		err := c.do(ctx, endpoint, target, token, out)
		if err == nil {
			return nil
		}

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return err
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		c.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Msg("ledger api request failed, retrying")

		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)

	return backoff.Retry(operation, b)
}

func (c *Client) do(ctx context.Context, endpoint, target, token string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observer.ObserveUpstream(endpoint, "error", time.Since(start))
		return fmt.Errorf("ledger api: %w", err)
	}
	defer resp.Body.Close()

	c.observer.ObserveUpstream(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("ledger api: decoding %s response: %w", endpoint, err))
	}

	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.credentials == nil {
		return "", domain.ErrCredentialMissing
	}

	cred, err := c.credentials.Credential(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCredentialMissing, err)
	}
	if err := cred.Check(c.clock.Now()); err != nil {
		return "", err
	}

	return cred.AccessToken, nil
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(string, string, time.Duration) {}
