package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/internal/plan/usecase"

	"github.com/gin-gonic/gin"
)

// stubUsecase overrides the methods the tests call; anything else panics
// through the nil embedded interface.
type stubUsecase struct {
	usecase.PlanUsecase
	err        error
	lastUserID string
	completed  *bool
}

func (s *stubUsecase) GetPlan(userID, planID string) (*domain.Plan, error) {
	s.lastUserID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Plan{ID: planID, UserID: userID, Status: domain.PlanStatusActive}, nil
}

func (s *stubUsecase) CreatePlan(ctx context.Context, userID string, req usecase.CreatePlanRequest) (*domain.Plan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Plan{ID: "p1", UserID: userID, Parameters: domain.PlanParameters{Subjects: req.Subjects}}, nil
}

func (s *stubUsecase) CompletePlan(ctx context.Context, userID, planID string) (*domain.Plan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Plan{ID: planID, Status: domain.PlanStatusCompleted}, nil
}

func (s *stubUsecase) SetTaskCompleted(userID, taskID string, completed bool) (*domain.Task, error) {
	s.completed = &completed
	return &domain.Task{ID: taskID, Completed: completed}, nil
}

func (s *stubUsecase) GetReflection(userID, planID string) (*usecase.ReflectionStatus, error) {
	return &usecase.ReflectionStatus{Pending: true}, nil
}

func newTestRouter(uc usecase.PlanUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Next()
	})
	NewPlanHandler(uc).RegisterRoutes(api)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrPlanNotFound, http.StatusNotFound},
		{"unauthorized", domain.ErrUnauthorized, http.StatusForbidden},
		{"threshold", domain.ErrCompletionThreshold, http.StatusConflict},
		{"transition", fmt.Errorf("%w: archived -> completed", domain.ErrInvalidTransition), http.StatusConflict},
		{"unusable", fmt.Errorf("%w: quota exceeded", domain.ErrScheduleUnusable), http.StatusBadGateway},
		{"no ai", domain.ErrGeneratorMissing, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubUsecase{err: tt.err})
			w := do(r, http.MethodPost, "/api/plans/p1/complete", "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestUnusableScheduleMessageIsStable(t *testing.T) {
	r := newTestRouter(&stubUsecase{err: fmt.Errorf("%w: upstream 429", domain.ErrScheduleUnusable)})
	w := do(r, http.MethodPost, "/api/plans", `{"subjects":"Math","dailyStudyHours":2,"studyDurationDays":3}`)

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != domain.ErrScheduleUnusable.Error() {
		t.Errorf("error = %q", body["error"])
	}
}

func TestCreatePlanValidation(t *testing.T) {
	r := newTestRouter(&stubUsecase{})

	w := do(r, http.MethodPost, "/api/plans", `{"dailyStudyHours":2}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing subjects: status = %d", w.Code)
	}

	w = do(r, http.MethodPost, "/api/plans", `{"subjects":"Math","dailyStudyHours":2,"studyDurationDays":3}`)
	if w.Code != http.StatusCreated {
		t.Errorf("valid: status = %d (%s)", w.Code, w.Body.String())
	}
}

func TestGetPlanUsesAuthenticatedUser(t *testing.T) {
	stub := &stubUsecase{}
	r := newTestRouter(stub)
	w := do(r, http.MethodGet, "/api/plans/p1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if stub.lastUserID != "user-1" {
		t.Errorf("userID = %q", stub.lastUserID)
	}
}

func TestSetTaskCompleted(t *testing.T) {
	stub := &stubUsecase{}
	r := newTestRouter(stub)

	if w := do(r, http.MethodPatch, "/api/tasks/t1/complete", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing field: status = %d", w.Code)
	}

	w := do(r, http.MethodPatch, "/api/tasks/t1/complete", `{"completed":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if stub.completed == nil || *stub.completed {
		t.Errorf("completed = %v", stub.completed)
	}
}

func TestReflectionPendingIsAccepted(t *testing.T) {
	r := newTestRouter(&stubUsecase{})
	if w := do(r, http.MethodGet, "/api/plans/p1/reflection", ""); w.Code != http.StatusAccepted {
		t.Errorf("status = %d", w.Code)
	}
}

func TestExtractSyllabus(t *testing.T) {
	r := newTestRouter(&stubUsecase{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "syllabus.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("Week 1: Limits\nWeek 2: Derivatives\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/plans/syllabus", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	var body struct {
		SubjectDetails string `json:"subjectDetails"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.SubjectDetails != "Week 1: Limits\nWeek 2: Derivatives" {
		t.Errorf("subjectDetails = %q", body.SubjectDetails)
	}
}

func TestExtractSyllabusRequiresFile(t *testing.T) {
	r := newTestRouter(&stubUsecase{})
	if w := do(r, http.MethodPost, "/api/plans/syllabus", ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}
