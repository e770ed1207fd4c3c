package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"broadrange-backend/internal/analytics/usecase"

	"github.com/gin-gonic/gin"
)

type stubAnalytics struct {
	gotUser string
	err     error
}

func (s *stubAnalytics) GetOverview(ctx context.Context, userID string) (*usecase.Overview, error) {
	s.gotUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return &usecase.Overview{TasksTotal: 4, CurrentStreak: 2}, nil
}

func newRouter(uc usecase.AnalyticsUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	NewAnalyticsHandler(uc).RegisterRoutes(api)
	return r
}

func TestGetOverview(t *testing.T) {
	stub := &stubAnalytics{}
	w := httptest.NewRecorder()
	newRouter(stub).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analytics/overview", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if stub.gotUser != "u1" {
		t.Errorf("user = %q", stub.gotUser)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["tasksTotal"] != float64(4) || body["currentStreak"] != float64(2) {
		t.Errorf("body = %v", body)
	}
}

func TestGetOverviewFailure(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(&stubAnalytics{err: errors.New("boom")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/analytics/overview", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}
