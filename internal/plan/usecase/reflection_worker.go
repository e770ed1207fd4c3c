package usecase

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/internal/plan/repository"
	"broadrange-backend/pkg/ai"
	"broadrange-backend/pkg/sse"

	"gorm.io/datatypes"
)

const maxReflectionNotes = 10

// ReflectionJob represents a job to generate the reflection of a completed plan
type ReflectionJob struct {
	PlanID string
}

// ReflectionWorker handles background reflection generation
type ReflectionWorker struct {
	planRepo    repository.PlanRepository
	generator   ai.PlanGenerator
	sseManager  *sse.Manager
	jobQueue    chan ReflectionJob
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	mu          sync.Mutex
	pending     map[string]struct{}
	now         func() time.Time
}

// NewReflectionWorker creates a new reflection worker
func NewReflectionWorker(
	planRepo repository.PlanRepository,
	generator ai.PlanGenerator,
	sseManager *sse.Manager,
	workerCount int,
) *ReflectionWorker {
	if workerCount <= 0 {
		workerCount = 2
	}

	return &ReflectionWorker{
		planRepo:    planRepo,
		generator:   generator,
		sseManager:  sseManager,
		jobQueue:    make(chan ReflectionJob, 100),
		workerCount: workerCount,
		pending:     make(map[string]struct{}),
		now:         time.Now,
	}
}

// Start starts the reflection workers
func (w *ReflectionWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}

	for i := 0; i < w.workerCount; i++ {
		w.workerWg.Add(1)
		go w.worker(i)
	}
	w.started = true
	log.Printf("[ReflectionWorker] Started %d workers", w.workerCount)
}

// Stop stops all workers gracefully
func (w *ReflectionWorker) Stop() {
	close(w.jobQueue)
	w.workerWg.Wait()
	log.Println("[ReflectionWorker] All workers stopped")
}

func (w *ReflectionWorker) worker(id int) {
	defer w.workerWg.Done()

	for job := range w.jobQueue {
		w.processJob(job)
		w.done(job.PlanID)
	}

	log.Printf("[ReflectionWorker] Worker %d stopped", id)
}

// QueueJob adds a job to the queue (non-blocking). A plan already queued
// is not queued twice.
func (w *ReflectionWorker) QueueJob(job ReflectionJob) bool {
	w.mu.Lock()
	if _, ok := w.pending[job.PlanID]; ok {
		w.mu.Unlock()
		return true
	}
	w.pending[job.PlanID] = struct{}{}
	w.mu.Unlock()

	select {
	case w.jobQueue <- job:
		return true
	default:
		w.done(job.PlanID)
		log.Printf("[ReflectionWorker] Queue full, dropped plan %s", job.PlanID)
		return false
	}
}

// IsPending reports whether a plan's reflection is queued or being generated
func (w *ReflectionWorker) IsPending(planID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pending[planID]
	return ok
}

func (w *ReflectionWorker) done(planID string) {
	w.mu.Lock()
	delete(w.pending, planID)
	w.mu.Unlock()
}

func (w *ReflectionWorker) processJob(job ReflectionJob) {
	if w.generator == nil {
		return
	}

	plan, err := w.planRepo.FindByID(job.PlanID)
	if err != nil {
		log.Printf("[ReflectionWorker] Error loading plan %s: %v", job.PlanID, err)
		return
	}
	if plan == nil || plan.CompletedAt == nil {
		return
	}
	if len(plan.Reflection) > 0 {
		var cached domain.Reflection
		if err := json.Unmarshal(plan.Reflection, &cached); err == nil {
			w.sendReflectionUpdate(plan.UserID, plan.ID, &cached)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := w.generator.GenerateReflection(ctx, reflectionRequest(plan))
	if err != nil {
		log.Printf("[ReflectionWorker] AI error for plan %s: %v", plan.ID, err)
		return
	}

	reflection := domain.Reflection{
		Summary:      result.Summary,
		Strengths:    nonNil(result.Strengths),
		Improvements: nonNil(result.Improvements),
		GeneratedAt:  w.now(),
	}
	data, err := json.Marshal(reflection)
	if err != nil {
		log.Printf("[ReflectionWorker] Encode error: %v", err)
		return
	}
	if err := w.planRepo.SaveReflection(plan.ID, datatypes.JSON(data)); err != nil {
		log.Printf("[ReflectionWorker] Save error: %v", err)
		return
	}

	w.sendReflectionUpdate(plan.UserID, plan.ID, &reflection)
	log.Printf("[ReflectionWorker] Generated reflection for plan %s", plan.ID)
}

func (w *ReflectionWorker) sendReflectionUpdate(userID, planID string, reflection *domain.Reflection) {
	if w.sseManager == nil {
		return
	}

	w.sseManager.SendToUser(userID, "reflection_update", map[string]interface{}{
		"plan_id":    planID,
		"reflection": reflection,
	})
}

func reflectionRequest(plan *domain.Plan) ai.ReflectionRequest {
	req := ai.ReflectionRequest{
		PlanName:    plan.Name,
		Subjects:    plan.Parameters.SubjectList.Names(),
		TotalTasks:  len(plan.Tasks),
		ReplanCount: plan.ReplanCount,
	}
	scoreSum := 0
	for _, t := range plan.Tasks {
		if t.Completed {
			req.CompletedTasks++
		}
		if t.QuizAttempted && t.QuizScore != nil {
			req.QuizzesAttempted++
			scoreSum += *t.QuizScore
		}
		if t.Notes != "" && len(req.Notes) < maxReflectionNotes {
			req.Notes = append(req.Notes, t.Notes)
		}
	}
	if req.QuizzesAttempted > 0 {
		req.AverageQuizScore = float64(scoreSum) / float64(req.QuizzesAttempted)
	}
	return req
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
