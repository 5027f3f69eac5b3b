package marketdata

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

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultYahooBaseURL = "https://query2.finance.yahoo.com"
	DefaultRateLimit    = 5 // requests per second
	userAgent           = "stock-portfolio-tracker/1.0"
)

var ErrNoResult = errors.New("yahoo: no result")

// APIError is a non-200 answer from the upstream.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Client talks to the Yahoo Finance chart and quoteSummary endpoints.
// Timeouts come from the caller's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log.With().Str("client", "yahoo").Logger()
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultYahooBaseURL,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency            string  `json:"currency"`
				Symbol              string  `json:"symbol"`
				ShortName           string  `json:"shortName"`
				LongName            string  `json:"longName"`
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				RegularMarketTime   int64   `json:"regularMarketTime"`
				RegularMarketVolume int64   `json:"regularMarketVolume"`
				ChartPreviousClose  float64 `json:"chartPreviousClose"`
				PreviousClose       float64 `json:"previousClose"`
				FiftyTwoWeekHigh    float64 `json:"fiftyTwoWeekHigh"`
				FiftyTwoWeekLow     float64 `json:"fiftyTwoWeekLow"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchLivePrice returns the latest regular-market price.
func (c *Client) FetchLivePrice(ctx context.Context, symbol string) (LivePrice, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", "5d")

	var raw chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, &raw); err != nil {
		return LivePrice{}, err
	}
	if raw.Chart.Error != nil {
		return LivePrice{}, fmt.Errorf("yahoo chart %s: %s", symbol, raw.Chart.Error.Description)
	}
	if len(raw.Chart.Result) == 0 {
		return LivePrice{}, ErrNoResult
	}

	r := raw.Chart.Result[0]
	price := r.Meta.RegularMarketPrice
	asOf := time.Unix(r.Meta.RegularMarketTime, 0)

	// Fallback: last non-null close if meta is missing
	if price <= 0 && len(r.Indicators.Quote) > 0 {
		closes := r.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil && *closes[i] > 0 {
				price = *closes[i]
				if i < len(r.Timestamp) {
					asOf = time.Unix(r.Timestamp[i], 0)
				}
				break
			}
		}
	}
	if price <= 0 {
		return LivePrice{}, fmt.Errorf("yahoo chart %s: no price", symbol)
	}
	if r.Meta.RegularMarketTime == 0 && asOf.Unix() == 0 {
		asOf = c.now()
	}

	prev := r.Meta.PreviousClose
	if prev <= 0 {
		prev = r.Meta.ChartPreviousClose
	}
	name := r.Meta.LongName
	if name == "" {
		name = r.Meta.ShortName
	}

	return LivePrice{
		Symbol:           strings.ToUpper(symbol),
		Name:             name,
		Currency:         r.Meta.Currency,
		Price:            price,
		PreviousClose:    prev,
		Volume:           r.Meta.RegularMarketVolume,
		FiftyTwoWeekHigh: r.Meta.FiftyTwoWeekHigh,
		FiftyTwoWeekLow:  r.Meta.FiftyTwoWeekLow,
		AsOf:             asOf,
	}, nil
}

// FetchHistoricalCloses returns closes over the last rangeDays, oldest
// first. Ranges beyond two years use monthly bars.
func (c *Client) FetchHistoricalCloses(ctx context.Context, symbol string, rangeDays int) ([]float64, error) {
	if rangeDays <= 0 {
		return nil, fmt.Errorf("invalid history range %d", rangeDays)
	}
	end := c.now()
	start := end.AddDate(0, 0, -rangeDays)

	interval := "1d"
	if rangeDays > 730 {
		interval = "1mo"
	}

	q := url.Values{}
	q.Set("interval", interval)
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))

	var raw chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, &raw); err != nil {
		return nil, err
	}
	if len(raw.Chart.Result) == 0 || len(raw.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoResult
	}

	closes := raw.Chart.Result[0].Indicators.Quote[0].Close
	out := make([]float64, 0, len(closes))
	for _, v := range closes {
		if v != nil {
			out = append(out, *v)
		}
	}
	return cleanCloses(out), nil
}

type rawValue struct {
	Raw float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				MarketCap     rawValue `json:"marketCap"`
				TrailingPE    rawValue `json:"trailingPE"`
				ForwardPE     rawValue `json:"forwardPE"`
				DividendYield rawValue `json:"dividendYield"`
				Beta          rawValue `json:"beta"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEps rawValue `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// FetchFundamentals returns valuation ratios and the company profile.
// Dividend yield is converted to a whole-number percent.
func (c *Client) FetchFundamentals(ctx context.Context, symbol string) (Fundamentals, error) {
	q := url.Values{}
	q.Set("modules", "summaryDetail,defaultKeyStatistics,assetProfile")

	var raw quoteSummaryResponse
	if err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), q, &raw); err != nil {
		return Fundamentals{}, err
	}
	if len(raw.QuoteSummary.Result) == 0 {
		return Fundamentals{}, ErrNoResult
	}

	r := raw.QuoteSummary.Result[0]
	return Fundamentals{
		MarketCap:     r.SummaryDetail.MarketCap.Raw,
		PERatio:       r.SummaryDetail.TrailingPE.Raw,
		ForwardPE:     r.SummaryDetail.ForwardPE.Raw,
		EPS:           r.DefaultKeyStatistics.TrailingEps.Raw,
		DividendYield: r.SummaryDetail.DividendYield.Raw * 100,
		Beta:          r.SummaryDetail.Beta.Raw,
		Sector:        r.AssetProfile.Sector,
		Industry:      r.AssetProfile.Industry,
	}, nil
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("path", path).Msg("Yahoo request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
