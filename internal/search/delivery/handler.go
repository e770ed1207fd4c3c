package delivery

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"broadrange-backend/internal/search/usecase"

	"github.com/gin-gonic/gin"
)

// SearchHandler serves task search
type SearchHandler struct {
	searchUsecase usecase.SearchUsecase
}

func NewSearchHandler(searchUsecase usecase.SearchUsecase) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase}
}

type semanticSearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// FuzzySearch
// GET /api/search?q=...&limit=20
func (h *SearchHandler) FuzzySearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	hits, err := h.searchUsecase.FuzzySearch(c.GetString("userID"), query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits, "total": len(hits)})
}

// SemanticSearch
// POST /api/search/semantic
func (h *SearchHandler) SemanticSearch(c *gin.Context) {
	var req semanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hits, err := h.searchUsecase.SemanticSearch(c.Request.Context(), c.GetString("userID"), req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, usecase.ErrSemanticUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[Search] Semantic search failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "semantic search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hits, "total": len(hits)})
}

// Reindex
// POST /api/search/reindex
func (h *SearchHandler) Reindex(c *gin.Context) {
	n, err := h.searchUsecase.Reindex(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, usecase.ErrSemanticUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": n})
}

func (h *SearchHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/search", h.FuzzySearch)
	api.POST("/search/semantic", h.SemanticSearch)
	api.POST("/search/reindex", h.Reindex)
}
