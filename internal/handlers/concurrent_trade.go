package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/portfolio"
)

// ErrProcessorStopped is returned for trades submitted after Stop.
var ErrProcessorStopped = errors.New("trade processor stopped")

// TradeService applies buys and sells; *portfolio.Service satisfies it.
type TradeService interface {
	ApplyBuy(ctx context.Context, in portfolio.BuyInput) (models.Position, models.Transaction, error)
	ApplySell(ctx context.Context, in portfolio.SellInput) (models.Transaction, error)
}

// TradeResult represents result of a trade operation
type TradeResult struct {
	Position    *models.Position // nil for sells
	Transaction models.Transaction
	Err         error
}

// Success reports whether the trade was applied.
func (r TradeResult) Success() bool { return r.Err == nil }

// TradeRequest represents a trade to be processed. Exactly one of Buy and
// Sell is set.
type TradeRequest struct {
	ctx      context.Context
	Buy      *portfolio.BuyInput
	Sell     *portfolio.SellInput
	resultCh chan TradeResult // Channel to send result back
}

func (r TradeRequest) userID() int64 {
	if r.Buy != nil {
		return r.Buy.UserID
	}
	return r.Sell.UserID
}

// TradeProcessor applies trades on a fixed pool of workers, one trade per
// user at a time.
type TradeProcessor struct {
	workers    int
	svc        TradeService
	tradeQueue chan TradeRequest
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	userLocks  *models.UserLocks
	log        zerolog.Logger
}

// NewTradeProcessor creates a new trade processor with worker pool
func NewTradeProcessor(workers int, svc TradeService, log zerolog.Logger) *TradeProcessor {
	if workers < 1 {
		workers = 1
	}
	return &TradeProcessor{
		workers:    workers,
		svc:        svc,
		tradeQueue: make(chan TradeRequest, 100), // Buffer of 100 trades
		stopCh:     make(chan struct{}),
		userLocks:  models.NewUserLocks(),
		log:        log.With().Str("component", "trade_processor").Logger(),
	}
}

// Start starts the worker pool
func (tp *TradeProcessor) Start() {
	for i := 0; i < tp.workers; i++ {
		tp.wg.Add(1)
		go tp.worker(i)
	}
	tp.log.Info().Int("workers", tp.workers).Msg("Started trade workers")
}

// Stop gracefully stops all workers. Trades already picked up finish first.
func (tp *TradeProcessor) Stop() {
	tp.stopOnce.Do(func() { close(tp.stopCh) })
	tp.wg.Wait()
	tp.log.Info().Msg("Trade processor stopped")
}

// worker processes trades from the queue
func (tp *TradeProcessor) worker(id int) {
	defer tp.wg.Done()

	for {
		select {
		case <-tp.stopCh:
			tp.log.Debug().Int("worker", id).Msg("Worker stopping")
			return

		case req := <-tp.tradeQueue:
			tp.log.Debug().Int("worker", id).Int64("user_id", req.userID()).Msg("Processing trade")
			req.resultCh <- tp.processTrade(req)
		}
	}
}

// processTrade executes a single trade with per-user locking
func (tp *TradeProcessor) processTrade(req TradeRequest) TradeResult {
	// Lock portfolio for THIS USER ONLY (not global!)
	uid := req.userID()
	tp.userLocks.Lock(uid)
	defer tp.userLocks.Unlock(uid)

	if err := req.ctx.Err(); err != nil {
		return TradeResult{Err: err}
	}

	if req.Buy != nil {
		pos, txn, err := tp.svc.ApplyBuy(req.ctx, *req.Buy)
		if err != nil {
			return TradeResult{Err: err}
		}
		return TradeResult{Position: &pos, Transaction: txn}
	}

	txn, err := tp.svc.ApplySell(req.ctx, *req.Sell)
	return TradeResult{Transaction: txn, Err: err}
}

// SubmitBuy queues a buy and waits for its result
func (tp *TradeProcessor) SubmitBuy(ctx context.Context, in portfolio.BuyInput) TradeResult {
	return tp.submit(TradeRequest{ctx: ctx, Buy: &in})
}

// SubmitSell queues a sell and waits for its result
func (tp *TradeProcessor) SubmitSell(ctx context.Context, in portfolio.SellInput) TradeResult {
	return tp.submit(TradeRequest{ctx: ctx, Sell: &in})
}

func (tp *TradeProcessor) submit(req TradeRequest) TradeResult {
	// buffered so a worker never blocks on a caller that gave up
	req.resultCh = make(chan TradeResult, 1)

	select {
	case tp.tradeQueue <- req:
	case <-tp.stopCh:
		return TradeResult{Err: ErrProcessorStopped}
	case <-req.ctx.Done():
		return TradeResult{Err: req.ctx.Err()}
	}

	select {
	case result := <-req.resultCh:
		return result
	case <-req.ctx.Done():
		return TradeResult{Err: req.ctx.Err()}
	case <-tp.stopCh:
		// the trade may still be in flight
		tp.wg.Wait()
		select {
		case result := <-req.resultCh:
			return result
		default:
			return TradeResult{Err: ErrProcessorStopped}
		}
	}
}
