package delivery

import (
	"errors"
	"io"
	"log"
	"net/http"

	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/internal/plan/usecase"
	"broadrange-backend/pkg/syllabus"

	"github.com/gin-gonic/gin"
)

// PlanHandler handles plan and task HTTP requests
type PlanHandler struct {
	planUsecase usecase.PlanUsecase
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(planUsecase usecase.PlanUsecase) *PlanHandler {
	return &PlanHandler{
		planUsecase: planUsecase,
	}
}

// writeError maps domain errors to HTTP status codes
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrSubTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, domain.ErrInvalidParameters),
		errors.Is(err, domain.ErrInvalidQuizScore),
		errors.Is(err, domain.ErrEmptySubTask):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPlanNotActive),
		errors.Is(err, domain.ErrCompletionThreshold),
		errors.Is(err, domain.ErrNoReflection):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrScheduleUnusable):
		c.JSON(http.StatusBadGateway, gin.H{"error": domain.ErrScheduleUnusable.Error()})
	case errors.Is(err, domain.ErrGeneratorMissing):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Printf("[PlanHandler] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ListPlans returns the user's plans
// GET /api/plans?status=active
func (h *PlanHandler) ListPlans(c *gin.Context) {
	userID := c.GetString("userID")

	var status *domain.PlanStatus
	if s := c.Query("status"); s != "" {
		ps := domain.PlanStatus(s)
		status = &ps
	}

	plans, err := h.planUsecase.ListPlans(userID, status)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plans": plans,
		"total": len(plans),
	})
}

// CreatePlan generates a new plan
// POST /api/plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	userID := c.GetString("userID")

	var req usecase.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.planUsecase.CreatePlan(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// ExtractSyllabus turns an uploaded syllabus into subject details text
// POST /api/plans/syllabus (multipart field "file")
func (h *PlanHandler) ExtractSyllabus(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > syllabus.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, syllabus.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text, err := syllabus.Extract(fileHeader.Filename, data)
	if err != nil {
		if errors.Is(err, syllabus.ErrUnsupportedType) {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subjectDetails": text,
		"chars":          len(text),
	})
}

// GetPlan returns one plan
// GET /api/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.planUsecase.GetPlan(c.GetString("userID"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ModifyPlan regenerates the schedule from changed parameters
// PUT /api/plans/:id
func (h *PlanHandler) ModifyPlan(c *gin.Context) {
	var req usecase.ModifyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.planUsecase.ModifyPlan(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeletePlan deletes a plan
// DELETE /api/plans/:id
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	if err := h.planUsecase.DeletePlan(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted successfully"})
}

// Replan adapts the schedule after missed days
// POST /api/plans/:id/replan
func (h *PlanHandler) Replan(c *gin.Context) {
	var req usecase.ReplanRequest
	// The body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	plan, err := h.planUsecase.Replan(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetScheduleStatus reports progress and missed days
// GET /api/plans/:id/status
func (h *PlanHandler) GetScheduleStatus(c *gin.Context) {
	status, err := h.planUsecase.GetScheduleStatus(c.GetString("userID"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CompletePlan marks a plan completed
// POST /api/plans/:id/complete
func (h *PlanHandler) CompletePlan(c *gin.Context) {
	plan, err := h.planUsecase.CompletePlan(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ArchivePlan archives a plan
// POST /api/plans/:id/archive
func (h *PlanHandler) ArchivePlan(c *gin.Context) {
	plan, err := h.planUsecase.ArchivePlan(c.GetString("userID"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetReflection returns the plan reflection, 202 while it is being generated
// GET /api/plans/:id/reflection
func (h *PlanHandler) GetReflection(c *gin.Context) {
	status, err := h.planUsecase.GetReflection(c.GetString("userID"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if status.Pending {
		c.JSON(http.StatusAccepted, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// SetTaskCompleted toggles a task
// PATCH /api/tasks/:id/complete
func (h *PlanHandler) SetTaskCompleted(c *gin.Context) {
	var req struct {
		Completed *bool `json:"completed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.planUsecase.SetTaskCompleted(c.GetString("userID"), c.Param("id"), *req.Completed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTaskNotes replaces a task's notes
// PATCH /api/tasks/:id/notes
func (h *PlanHandler) UpdateTaskNotes(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.planUsecase.UpdateTaskNotes(c.GetString("userID"), c.Param("id"), req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// AddSubTask adds a checklist item
// POST /api/tasks/:id/subtasks
func (h *PlanHandler) AddSubTask(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.planUsecase.AddSubTask(c.GetString("userID"), c.Param("id"), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// UpdateSubTask edits a checklist item
// PATCH /api/tasks/:id/subtasks/:subId
func (h *PlanHandler) UpdateSubTask(c *gin.Context) {
	var req usecase.SubTaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.planUsecase.UpdateSubTask(c.GetString("userID"), c.Param("id"), c.Param("subId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteSubTask removes a checklist item
// DELETE /api/tasks/:id/subtasks/:subId
func (h *PlanHandler) DeleteSubTask(c *gin.Context) {
	if err := h.planUsecase.DeleteSubTask(c.GetString("userID"), c.Param("id"), c.Param("subId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subtask deleted successfully"})
}

// GenerateQuiz returns practice questions for a task
// POST /api/tasks/:id/quiz
func (h *PlanHandler) GenerateQuiz(c *gin.Context) {
	var req struct {
		Questions int `json:"questions"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	questions, err := h.planUsecase.GenerateQuiz(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.Questions)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"questions": questions,
		"count":     len(questions),
	})
}

// SubmitQuizScore records a quiz result
// POST /api/tasks/:id/quiz/score
func (h *PlanHandler) SubmitQuizScore(c *gin.Context) {
	var req struct {
		Score *int `json:"score" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.planUsecase.SubmitQuizScore(c.GetString("userID"), c.Param("id"), *req.Score)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// RegisterRoutes mounts the plan and task routes on an authenticated group
func (h *PlanHandler) RegisterRoutes(api *gin.RouterGroup) {
	plans := api.Group("/plans")
	{
		plans.GET("", h.ListPlans)
		plans.POST("", h.CreatePlan)
		plans.POST("/syllabus", h.ExtractSyllabus)
		plans.GET("/:id", h.GetPlan)
		plans.PUT("/:id", h.ModifyPlan)
		plans.DELETE("/:id", h.DeletePlan)
		plans.POST("/:id/replan", h.Replan)
		plans.GET("/:id/status", h.GetScheduleStatus)
		plans.POST("/:id/complete", h.CompletePlan)
		plans.POST("/:id/archive", h.ArchivePlan)
		plans.GET("/:id/reflection", h.GetReflection)
	}

	tasks := api.Group("/tasks")
	{
		tasks.PATCH("/:id/complete", h.SetTaskCompleted)
		tasks.PATCH("/:id/notes", h.UpdateTaskNotes)
		tasks.POST("/:id/subtasks", h.AddSubTask)
		tasks.PATCH("/:id/subtasks/:subId", h.UpdateSubTask)
		tasks.DELETE("/:id/subtasks/:subId", h.DeleteSubTask)
		tasks.POST("/:id/quiz", h.GenerateQuiz)
		tasks.POST("/:id/quiz/score", h.SubmitQuizScore)
	}
}
