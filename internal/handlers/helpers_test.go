package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/logger"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/portfolio"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubQuotes serves fixed quotes; unknown symbols are unavailable.
type stubQuotes struct {
	mu     sync.Mutex
	quotes map[string]marketdata.Quote
}

func newStubQuotes() *stubQuotes {
	return &stubQuotes{quotes: map[string]marketdata.Quote{}}
}

func (s *stubQuotes) set(q marketdata.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.FetchedAt.IsZero() {
		q.FetchedAt = time.Now().UTC()
	}
	s.quotes[q.Symbol] = q
}

func (s *stubQuotes) GetQuote(_ context.Context, symbol string) (marketdata.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[marketdata.NormalizeSymbol(symbol)]
	if !ok {
		return marketdata.Quote{}, fmt.Errorf("%w: %s", marketdata.ErrQuoteUnavailable, symbol)
	}
	return q, nil
}

func (s *stubQuotes) GetQuotes(ctx context.Context, symbols []string) (map[string]marketdata.Quote, map[string]error) {
	out := map[string]marketdata.Quote{}
	errs := map[string]error{}
	for _, sym := range symbols {
		q, err := s.GetQuote(ctx, sym)
		if err != nil {
			errs[sym] = err
			continue
		}
		out[sym] = q
	}
	return out, errs
}

type testServer struct {
	router *gin.Engine
	svc    *portfolio.Service
	trades *TradeProcessor
	quotes *stubQuotes
	user   models.User
	list   models.List
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	quotes := newStubQuotes()
	svc := portfolio.NewService(store.NewMemory(), quotes, logger.Nop(), portfolio.WithBcryptCost(4))

	user, list, err := svc.Register(context.Background(), portfolio.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	tp := NewTradeProcessor(2, svc, logger.Nop())
	tp.Start()
	t.Cleanup(tp.Stop)

	stream := NewQuoteStream(quotes, 20*time.Millisecond, nil, logger.Nop())
	h := NewHandler(svc, tp, stream, logger.Nop())

	return &testServer{
		router: NewRouter(h),
		svc:    svc,
		trades: tp,
		quotes: quotes,
		user:   user,
		list:   list,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func userPath(userID int64, suffix string) string {
	return fmt.Sprintf("/api/users/%d%s", userID, suffix)
}
