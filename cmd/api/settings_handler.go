package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RuntimeSettings holds the AI settings that can change without a restart.
// The plan generator reads the Ollama values through the getters on every call.
type RuntimeSettings struct {
	mu            sync.RWMutex
	provider      string
	ollamaBaseURL string
	ollamaModel   string
	httpClient    *http.Client
}

func NewRuntimeSettings(provider, ollamaBaseURL, ollamaModel string) *RuntimeSettings {
	return &RuntimeSettings{
		provider:      provider,
		ollamaBaseURL: strings.TrimRight(ollamaBaseURL, "/"),
		ollamaModel:   ollamaModel,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *RuntimeSettings) OllamaBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaBaseURL
}

func (s *RuntimeSettings) OllamaModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaModel
}

type aiSettingsResponse struct {
	Provider      string `json:"provider"`
	OllamaBaseURL string `json:"ollama_base_url"`
	OllamaModel   string `json:"ollama_model"`
}

func (s *RuntimeSettings) snapshot() aiSettingsResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return aiSettingsResponse{
		Provider:      s.provider,
		OllamaBaseURL: s.ollamaBaseURL,
		OllamaModel:   s.ollamaModel,
	}
}

type updateOllamaSettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url" binding:"required"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

func validBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// GetAISettings
// GET /api/settings/ai
func (s *RuntimeSettings) GetAISettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot())
}

// UpdateOllamaSettings switches the Ollama server or model used for plan generation
// PUT /api/settings/ollama
func (s *RuntimeSettings) UpdateOllamaSettings(c *gin.Context) {
	var req updateOllamaSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validBaseURL(req.OllamaBaseURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ollama_base_url must be an http(s) URL"})
		return
	}

	s.mu.Lock()
	s.ollamaBaseURL = strings.TrimRight(req.OllamaBaseURL, "/")
	if req.OllamaModel != "" {
		s.ollamaModel = req.OllamaModel
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, s.snapshot())
}

// TestOllamaConnection checks that an Ollama server answers /api/tags
// POST /api/settings/ollama/test
func (s *RuntimeSettings) TestOllamaConnection(c *gin.Context) {
	var req struct {
		OllamaBaseURL string `json:"ollama_base_url"`
	}
	_ = c.ShouldBindJSON(&req)
	baseURL := strings.TrimRight(req.OllamaBaseURL, "/")
	if baseURL == "" {
		baseURL = s.OllamaBaseURL()
	}
	if !validBaseURL(baseURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ollama_base_url must be an http(s) URL"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected":   false,
			"status_code": resp.StatusCode,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":       true,
		"ollama_base_url": baseURL,
	})
}
