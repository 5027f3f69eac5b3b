package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"AAPL","longName":"Apple Inc.",
"regularMarketPrice":189.5,"regularMarketTime":1709300000,"regularMarketVolume":1200,
"previousClose":187.0,"fiftyTwoWeekHigh":199.6,"fiftyTwoWeekLow":143.9},
"timestamp":[1,2,3,4],"indicators":{"quote":[{"close":[180.0,null,0,189.5]}]}}],"error":null}}`

const summaryBody = `{"quoteSummary":{"result":[{
"summaryDetail":{"marketCap":{"raw":2.9e12},"trailingPE":{"raw":29.4},"forwardPE":{"raw":27.1},
"dividendYield":{"raw":0.0051},"beta":{"raw":1.28}},
"defaultKeyStatistics":{"trailingEps":{"raw":6.43}},
"assetProfile":{"sector":"Technology","industry":"Consumer Electronics"}}]}}`

func newYahooTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v8/finance/chart/AAPL"):
			_, _ = w.Write([]byte(chartBody))
		case strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/AAPL"):
			_, _ = w.Write([]byte(summaryBody))
		default:
			http.Error(w, "Not Found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FetchLivePrice(t *testing.T) {
	srv := newYahooTestServer(t)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))

	p, err := c.FetchLivePrice(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 189.5, p.Price)
	assert.Equal(t, 187.0, p.PreviousClose)
	assert.Equal(t, "Apple Inc.", p.Name)
	assert.Equal(t, int64(1200), p.Volume)
	assert.Equal(t, int64(1709300000), p.AsOf.Unix())
}

func TestClient_FetchHistoricalCloses_SkipsGaps(t *testing.T) {
	srv := newYahooTestServer(t)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))

	closes, err := c.FetchHistoricalCloses(context.Background(), "AAPL", Range1Year)
	require.NoError(t, err)
	assert.Equal(t, []float64{180.0, 189.5}, closes)

	_, err = c.FetchHistoricalCloses(context.Background(), "AAPL", 0)
	assert.Error(t, err)
}

func TestClient_FetchFundamentals(t *testing.T) {
	srv := newYahooTestServer(t)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))

	f, err := c.FetchFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 29.4, f.PERatio)
	assert.InDelta(t, 0.51, f.DividendYield, 1e-9)
	assert.Equal(t, "Technology", f.Sector)
	assert.Equal(t, 6.43, f.EPS)
}

func TestClient_APIError(t *testing.T) {
	srv := newYahooTestServer(t)
	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))

	_, err := c.FetchLivePrice(context.Background(), "NOPE")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := newYahooTestServer(t)
	c := NewClient(WithBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchLivePrice(ctx, "AAPL")
	assert.Error(t, err)
}
