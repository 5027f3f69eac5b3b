// Package handlers exposes the portfolio service over HTTP.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/portfolio"
)

// Handler holds the dependencies of the HTTP handlers
type Handler struct {
	svc    *portfolio.Service
	trades *TradeProcessor
	stream *QuoteStream
	log    zerolog.Logger
}

// NewHandler creates the handler set
func NewHandler(svc *portfolio.Service, trades *TradeProcessor, stream *QuoteStream, log zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		trades: trades,
		stream: stream,
		log:    log.With().Str("component", "http").Logger(),
	}
}

// NewRouter builds the gin engine with middleware and all routes
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(h.log))

	// API routes
	api := router.Group("/api")
	{
		api.POST("/users", h.Register)
		api.DELETE("/users/:userId", h.DeleteUser)

		api.GET("/users/:userId/lists", h.GetLists)
		api.POST("/users/:userId/lists", h.CreateList)
		api.PATCH("/users/:userId/lists/:listId", h.RenameList)
		api.DELETE("/users/:userId/lists/:listId", h.DeleteList)
		api.POST("/users/:userId/lists/:listId/default", h.SetDefaultList)

		api.GET("/users/:userId/positions", h.GetPositions)
		api.DELETE("/users/:userId/positions/:positionId", h.RemoveWatch)
		api.POST("/users/:userId/watch", h.AddWatch)
		api.GET("/users/:userId/holdings", h.GetHoldings)

		// Trading endpoints
		api.POST("/trades/buy", h.BuyStock)
		api.POST("/trades/sell", h.SellStock)
		api.GET("/users/:userId/transactions", h.GetTradeHistory)

		api.GET("/users/:userId/cashflows", h.GetCashFlows)
		api.POST("/users/:userId/cashflows", h.RecordCashFlow)

		api.GET("/users/:userId/summary", h.GetSummary)
		api.GET("/users/:userId/recommendations", h.GetRecommendations)

		api.GET("/quotes/:symbol", h.GetQuote)
	}

	// WebSocket endpoint
	router.GET("/ws/quotes", h.stream.Handle)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	return router
}
