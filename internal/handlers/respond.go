package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/portfolio"
)

// respondError maps domain errors onto status codes.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var (
		verr         *portfolio.ValidationError
		insufficient *portfolio.InsufficientSharesError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      insufficient.Error(),
			"positionId": insufficient.PositionID,
			"symbol":     insufficient.Symbol,
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		})
	case errors.Is(err, portfolio.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, portfolio.ErrDefaultListDelete),
		errors.Is(err, portfolio.ErrDuplicateListName),
		errors.Is(err, portfolio.ErrDuplicateUser),
		errors.Is(err, portfolio.ErrPositionHasShares):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, marketdata.ErrQuoteUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, ErrProcessorStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server is shutting down"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", c.GetString(requestIDKey)).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// pathID parses a positive integer route parameter, answering 400 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "field": name})
		return 0, false
	}
	return id, true
}

// queryListID reads the optional ?list= filter.
func queryListID(c *gin.Context) (*int64, bool) {
	raw := c.Query("list")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid list", "field": "list"})
		return nil, false
	}
	return &id, true
}
