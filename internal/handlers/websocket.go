package handlers

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
)

// MaxStreamSymbols caps the symbols one client may subscribe to.
const MaxStreamSymbols = 20

const writeWait = 10 * time.Second

// PriceUpdate represents a stock price update
type PriceUpdate struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price,omitempty"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Synthetic     bool      `json:"synthetic"`
	Timestamp     time.Time `json:"timestamp"`
	Error         string    `json:"error,omitempty"`
}

// QuoteLoader fetches quotes for several symbols at once.
type QuoteLoader interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]marketdata.Quote, map[string]error)
}

// QuoteStream pushes periodic quote updates over WebSocket connections
type QuoteStream struct {
	quotes   QuoteLoader
	interval time.Duration
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewQuoteStream creates a stream polling quotes every interval. An empty
// allowedOrigins accepts any origin.
func NewQuoteStream(quotes QuoteLoader, interval time.Duration, allowedOrigins []string, log zerolog.Logger) *QuoteStream {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	qs := &QuoteStream{
		quotes:   quotes,
		interval: interval,
		log:      log.With().Str("component", "quote_stream").Logger(),
	}
	qs.upgrader = websocket.Upgrader{
		CheckOrigin: originChecker(allowedOrigins),
	}
	return qs
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[u.Scheme+"://"+u.Host]
		return ok
	}
}

// parseSymbols normalizes and dedupes a comma separated symbol list.
func parseSymbols(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		s := marketdata.NormalizeSymbol(part)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Handle serves GET /ws/quotes?symbols=AAPL,MSFT
func (qs *QuoteStream) Handle(c *gin.Context) {
	symbols := parseSymbols(c.Query("symbols"))
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required", "field": "symbols"})
		return
	}
	if len(symbols) > MaxStreamSymbols {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many symbols", "field": "symbols"})
		return
	}

	// Upgrade HTTP connection to WebSocket
	conn, err := qs.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		qs.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	qs.log.Info().Strs("symbols", symbols).Msg("Client connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// reads only detect the close frame
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(qs.interval)
	defer ticker.Stop()

	for {
		if err := qs.push(ctx, conn, symbols); err != nil {
			qs.log.Debug().Err(err).Msg("WebSocket write failed")
			return
		}

		select {
		case <-ctx.Done():
			qs.log.Info().Msg("Client disconnected")
			return
		case <-ticker.C:
		}
	}
}

func (qs *QuoteStream) push(ctx context.Context, conn *websocket.Conn, symbols []string) error {
	fetchCtx, cancel := context.WithTimeout(ctx, qs.interval)
	quotes, errs := qs.quotes.GetQuotes(fetchCtx, symbols)
	cancel()

	if ctx.Err() != nil {
		return nil
	}

	now := time.Now().UTC()
	for _, symbol := range symbols {
		update := PriceUpdate{Symbol: symbol, Timestamp: now}
		if q, ok := quotes[symbol]; ok {
			update.Price = q.CurrentPrice
			update.Change = q.Change
			update.ChangePercent = q.ChangePercent
			update.Synthetic = q.Synthetic
		} else {
			update.Error = "quote unavailable"
			if err := errs[symbol]; err != nil {
				qs.log.Debug().Err(err).Str("symbol", symbol).Msg("Quote unavailable for stream")
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(update); err != nil {
			return err
		}
	}
	return nil
}
