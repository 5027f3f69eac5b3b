package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/portfolio"
)

// Register handles POST /api/users
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, list, err := h.svc.Register(c.Request.Context(), portfolio.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "defaultList": list})
}

// DeleteUser handles DELETE /api/users/:userId
func (h *Handler) DeleteUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(c.Request.Context(), userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetLists handles GET /api/users/:userId/lists
func (h *Handler) GetLists(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	lists, err := h.svc.Lists(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lists": lists})
}

// CreateList handles POST /api/users/:userId/lists
func (h *Handler) CreateList(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req models.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.svc.CreateList(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// RenameList handles PATCH /api/users/:userId/lists/:listId
func (h *Handler) RenameList(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	listID, ok := pathID(c, "listId")
	if !ok {
		return
	}
	var req models.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.svc.RenameList(c.Request.Context(), userID, listID, req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteList handles DELETE /api/users/:userId/lists/:listId
func (h *Handler) DeleteList(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	listID, ok := pathID(c, "listId")
	if !ok {
		return
	}
	if err := h.svc.DeleteList(c.Request.Context(), userID, listID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetDefaultList handles POST /api/users/:userId/lists/:listId/default
func (h *Handler) SetDefaultList(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	listID, ok := pathID(c, "listId")
	if !ok {
		return
	}
	if err := h.svc.SetDefaultList(c.Request.Context(), userID, listID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Default list updated", "listId": listID})
}
