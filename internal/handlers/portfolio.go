package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/portfolio"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/recommend"
)

// GetPositions handles GET /api/users/:userId/positions
func (h *Handler) GetPositions(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	listID, ok := queryListID(c)
	if !ok {
		return
	}

	positions, err := h.svc.Positions(c.Request.Context(), userID, listID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions, "count": len(positions)})
}

// AddWatch handles POST /api/users/:userId/watch
func (h *Handler) AddWatch(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req models.WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pos, created, err := h.svc.AddWatch(c.Request.Context(), userID, req.ListID, req.Symbol)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, pos)
}

// RemoveWatch handles DELETE /api/users/:userId/positions/:positionId
func (h *Handler) RemoveWatch(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	positionID, ok := pathID(c, "positionId")
	if !ok {
		return
	}
	if err := h.svc.RemoveWatch(c.Request.Context(), userID, positionID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetHoldings handles GET /api/users/:userId/holdings
func (h *Handler) GetHoldings(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	listID, ok := queryListID(c)
	if !ok {
		return
	}

	holdings, err := h.svc.Holdings(c.Request.Context(), userID, listID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdings": holdings})
}

// GetCashFlows handles GET /api/users/:userId/cashflows
func (h *Handler) GetCashFlows(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	listID, ok := queryListID(c)
	if !ok {
		return
	}

	flows, summary, err := h.svc.CashFlows(c.Request.Context(), userID, listID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cashFlows": flows, "summary": summary})
}

// RecordCashFlow handles POST /api/users/:userId/cashflows
func (h *Handler) RecordCashFlow(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req models.CashFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := portfolio.CashFlowInput{
		UserID: userID,
		ListID: req.ListID,
		Type:   req.Type,
		Amount: decimal.NewFromFloat(req.Amount),
		Notes:  req.Notes,
	}
	if req.Date != nil {
		in.Date = req.Date.UTC()
	}

	flow, err := h.svc.RecordCashFlow(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, flow)
}

// GetSummary handles GET /api/users/:userId/summary
func (h *Handler) GetSummary(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	listID, ok := queryListID(c)
	if !ok {
		return
	}

	summary, _, err := h.svc.Summary(c.Request.Context(), userID, listID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetRecommendations handles GET /api/users/:userId/recommendations
func (h *Handler) GetRecommendations(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	listID, ok := queryListID(c)
	if !ok {
		return
	}

	summary, items, err := h.svc.Summary(c.Request.Context(), userID, listID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	recs := recommend.Analyze(summary, items)
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
}

// GetQuote handles GET /api/quotes/:symbol
func (h *Handler) GetQuote(c *gin.Context) {
	quote, err := h.svc.Quote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
