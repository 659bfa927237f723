// Package metalprice implements quote.Provider against the MetalpriceAPI
// latest and timeframe endpoints.
package metalprice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ahmethakanbesel/metal-tracker/internal/quote"
)

const (
	defaultBaseURL = "https://api.metalpriceapi.com/v1/"
	dateFormat     = "2006-01-02"
	// maxTimeframeDays is the longest range the timeframe endpoint accepts.
	maxTimeframeDays = 365
	// maxTimeframeChunks bounds the upstream calls a single Timeframe may make.
	maxTimeframeChunks = 10
)

// Client fetches metal prices quoted in a base currency. Rates are read from
// the "<BASE><SYMBOL>" key, the price of one troy ounce in the base currency.
type Client struct {
	apiKey  string
	baseURL string
	base    string
	symbol  string
	workers int
	client  *http.Client
}

// New creates a Client with the given options applied. An empty apiKey
// yields a client that reports itself as not configured.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		base:    "INR",
		symbol:  "XAU",
		workers: 2,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithCurrencies sets the quote currency and the metal symbol.
func WithCurrencies(base, symbol string) Option {
	return func(c *Client) {
		c.base = strings.ToUpper(base)
		c.symbol = strings.ToUpper(symbol)
	}
}

// WithWorkers bounds concurrent chunk requests for long timeframes.
func WithWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

func (c *Client) Configured() bool { return c.apiKey != "" }

func (c *Client) rateKey() string { return c.base + c.symbol }

type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

type envelope struct {
	Success *bool     `json:"success"`
	Error   *apiError `json:"error"`
}

func (e envelope) err() error {
	if e.Success != nil && !*e.Success {
		if e.Error != nil {
			return fmt.Errorf("metalpriceapi error %d: %s", e.Error.StatusCode, e.Error.Message)
		}
		return fmt.Errorf("metalpriceapi reported failure")
	}
	return nil
}

type latestResponse struct {
	envelope
	Rates map[string]decimal.Decimal `json:"rates"`
}

type timeframeResponse struct {
	envelope
	Rates map[string]map[string]decimal.Decimal `json:"rates"`
}

// Latest returns the current price of one troy ounce in the base currency.
func (c *Client) Latest(ctx context.Context) (decimal.Decimal, error) {
	if !c.Configured() {
		return decimal.Zero, fmt.Errorf("metalpriceapi: api key not configured")
	}

	var resp latestResponse
	if err := c.get(ctx, "latest", url.Values{}, &resp); err != nil {
		return decimal.Zero, err
	}
	if err := resp.err(); err != nil {
		return decimal.Zero, err
	}

	rate, ok := resp.Rates[c.rateKey()]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("rate %q missing from latest response", c.rateKey())
	}
	return rate, nil
}

// Timeframe returns daily quotes for [from, to] sorted by date. Ranges longer
// than the upstream limit are fetched as concurrent chunks; any failing
// chunk fails the whole call.
func (c *Client) Timeframe(ctx context.Context, from, to time.Time) ([]quote.Quote, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("metalpriceapi: api key not configured")
	}
	if from.After(to) {
		return nil, fmt.Errorf("start date cannot be after end date")
	}

	chunks := quote.SplitDateRange(from, to, maxTimeframeDays)
	if len(chunks) > maxTimeframeChunks {
		return nil, fmt.Errorf("timeframe of %d chunks exceeds the limit of %d", len(chunks), maxTimeframeChunks)
	}
	results := make([][]quote.Quote, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, ch := range chunks {
		g.Go(func() error {
			quotes, err := c.fetchTimeframe(ctx, ch.From, ch.To)
			if err != nil {
				return fmt.Errorf("timeframe %s..%s: %w", ch.From.Format(dateFormat), ch.To.Format(dateFormat), err)
			}
			results[i] = quotes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []quote.Quote
	for _, r := range results {
		all = append(all, r...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	return all, nil
}

func (c *Client) fetchTimeframe(ctx context.Context, from, to time.Time) ([]quote.Quote, error) {
	params := url.Values{}
	params.Set("start_date", from.Format(dateFormat))
	params.Set("end_date", to.Format(dateFormat))

	var resp timeframeResponse
	if err := c.get(ctx, "timeframe", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if resp.Rates == nil {
		return nil, fmt.Errorf("timeframe response has no rates")
	}

	key := c.rateKey()
	quotes := make([]quote.Quote, 0, len(resp.Rates))
	for day, rates := range resp.Rates {
		d, err := time.Parse(dateFormat, day)
		if err != nil {
			slog.Warn("metalpriceapi: skipping unparsable date", "date", day)
			continue
		}
		rate, ok := rates[key]
		if !ok || !rate.IsPositive() {
			continue
		}
		quotes = append(quotes, quote.Quote{Date: d, Rate: rate})
	}

	slog.Info("retrieved metalpriceapi timeframe", "key", key,
		"from", from.Format(dateFormat), "to", to.Format(dateFormat), "count", len(quotes))
	return quotes, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	params.Set("base", c.base)
	params.Set("currencies", c.symbol)

	reqURL := strings.TrimRight(c.baseURL, "/") + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("metalpriceapi %s returned HTTP %d", endpoint, res.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", endpoint, err)
	}
	return nil
}
