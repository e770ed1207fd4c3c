package delivery

import (
	"log"
	"net/http"

	"broadrange-backend/internal/analytics/usecase"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves study statistics
type AnalyticsHandler struct {
	analyticsUsecase usecase.AnalyticsUsecase
}

func NewAnalyticsHandler(analyticsUsecase usecase.AnalyticsUsecase) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsUsecase: analyticsUsecase}
}

// GetOverview
// GET /api/analytics/overview
func (h *AnalyticsHandler) GetOverview(c *gin.Context) {
	userID := c.GetString("userID")
	overview, err := h.analyticsUsecase.GetOverview(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[Analytics] Overview for user %s failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *AnalyticsHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/analytics/overview", h.GetOverview)
}
