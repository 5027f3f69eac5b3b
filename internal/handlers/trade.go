package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/portfolio"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// BuyStock handles POST /api/trades/buy
func (h *Handler) BuyStock(c *gin.Context) {
	var req models.BuyRequest

	// Parse JSON request body
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := portfolio.BuyInput{
		UserID:   req.UserID,
		ListID:   req.ListID,
		Symbol:   req.Symbol,
		Quantity: decimal.NewFromFloat(req.Quantity),
		Price:    decimal.NewFromFloat(req.Price),
		Fees:     decimal.NewFromFloat(req.Fees),
		Notes:    req.Notes,
	}
	if req.Date != nil {
		in.Date = req.Date.UTC()
	}

	result := h.trades.SubmitBuy(c.Request.Context(), in)
	if !result.Success() {
		respondError(c, h.log, result.Err)
		return
	}

	pos := *result.Position
	pos.PurchasePrice = portfolio.RoundPrice(pos.PurchasePrice)

	c.JSON(http.StatusOK, gin.H{
		"message":     "Trade executed successfully",
		"position":    pos,
		"transaction": result.Transaction,
		"totalCost":   result.Transaction.Total(),
	})
}

// SellStock handles POST /api/trades/sell
func (h *Handler) SellStock(c *gin.Context) {
	var req models.SellRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := portfolio.SellInput{
		UserID:     req.UserID,
		PositionID: req.PositionID,
		Quantity:   decimal.NewFromFloat(req.Quantity),
		Price:      decimal.NewFromFloat(req.Price),
		Fees:       decimal.NewFromFloat(req.Fees),
		Notes:      req.Notes,
	}
	if req.Date != nil {
		in.Date = req.Date.UTC()
	}

	result := h.trades.SubmitSell(c.Request.Context(), in)
	if !result.Success() {
		respondError(c, h.log, result.Err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Stock sold successfully",
		"transaction":   result.Transaction,
		"totalProceeds": result.Transaction.Total(),
	})
}

// GetTradeHistory handles GET /api/users/:userId/transactions
func (h *Handler) GetTradeHistory(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	listID, ok := queryListID(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit", "field": "limit"})
			return
		}
		limit = n
	}

	trades, err := h.svc.Transactions(c.Request.Context(), userID, store.TransactionFilter{
		Symbol: c.Query("symbol"),
		ListID: listID,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": trades,
		"count":        len(trades),
	})
}
