// Package alpaca implements provider.BarProvider against the Alpaca-style
// stock bars REST API (GET {base}/bars with header-key auth and
// page_token continuation).
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zenigh/internal/model"
	"zenigh/internal/provider"
)

const (
	// DefaultBaseURL is the production market-data endpoint.
	DefaultBaseURL = "https://data.alpaca.markets/v2/stocks"

	// Max bars per page request.
	defaultLimit = 10000
)

// apiTimeframes maps internal timeframe codes to the provider's notation.
var apiTimeframes = map[model.Timeframe]string{
	model.Timeframe5Min:  "5Min",
	model.Timeframe15Min: "15Min",
}

// Config configures the Alpaca client.
type Config struct {
	BaseURL   string // defaults to DefaultBaseURL
	APIKey    string
	APISecret string
	Symbols   []string
	Limit     int           // bars per page, defaults to defaultLimit
	Timeout   time.Duration // per-request timeout, defaults to 30s
}

// Client fetches bar pages over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	symbols    []string
	limit      int
	httpClient *http.Client
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		symbols:    cfg.Symbols,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetBars fetches a single page of bars for the client's symbol universe.
func (c *Client) GetBars(ctx context.Context, req provider.PageRequest) (*provider.Page, error) {
	tf, ok := apiTimeframes[req.Timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownTimeframe, string(req.Timeframe))
	}

	u, err := url.Parse(c.baseURL + "/bars")
	if err != nil {
		return nil, &provider.Error{Msg: "parse URL", Err: err}
	}
	q := u.Query()
	q.Set("symbols", strings.Join(c.symbols, ","))
	q.Set("start", req.Start.UTC().Format(time.RFC3339))
	q.Set("end", req.End.UTC().Format(time.RFC3339))
	q.Set("timeframe", tf)
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("adjustment", "raw")
	q.Set("feed", "iex")
	q.Set("sort", "asc")
	if req.PageToken != "" {
		q.Set("page_token", req.PageToken)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &provider.Error{Msg: "create request", Err: err}
	}
	httpReq.Header.Set("APCA-API-KEY-ID", c.apiKey)
	httpReq.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &provider.Error{Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &provider.Error{Status: resp.StatusCode, Msg: strings.TrimSpace(string(body))}
	}

	var page provider.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &provider.Error{Msg: "decode response", Err: err}
	}
	if page.Bars == nil {
		page.Bars = map[string][]provider.RawBar{}
	}
	return &page, nil
}
