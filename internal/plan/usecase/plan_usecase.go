package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"broadrange-backend/internal/notification"
	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/internal/plan/repository"
	"broadrange-backend/internal/plan/schedule"
	"broadrange-backend/pkg/ai"

	"github.com/google/uuid"
)

// planUsecase implements PlanUsecase interface
type planUsecase struct {
	planRepo  repository.PlanRepository
	taskRepo  repository.TaskRepository
	generator ai.PlanGenerator
	notifier  notification.Notifier
	indexer   TaskIndexer
	worker    *ReflectionWorker
	locator   schedule.Locator
	now       func() time.Time
}

// NewPlanUsecase creates a new instance of planUsecase
func NewPlanUsecase(
	planRepo repository.PlanRepository,
	taskRepo repository.TaskRepository,
	generator ai.PlanGenerator,
	notifier notification.Notifier,
) PlanUsecase {
	return &planUsecase{
		planRepo:  planRepo,
		taskRepo:  taskRepo,
		generator: generator,
		notifier:  notifier,
		now:       time.Now,
	}
}

func (u *planUsecase) SetIndexer(indexer TaskIndexer) {
	u.indexer = indexer
}

func (u *planUsecase) SetReflectionWorker(worker *ReflectionWorker) {
	u.worker = worker
}

func (u *planUsecase) SetLocator(locator schedule.Locator) {
	u.locator = locator
}

// today is the current calendar day in the user's time zone.
func (u *planUsecase) today(userID string) time.Time {
	var loc *time.Location
	if u.locator != nil {
		loc = u.locator.Location(userID)
	}
	return schedule.LocalDay(u.now(), loc)
}

func (u *planUsecase) CreatePlan(ctx context.Context, userID string, req CreatePlanRequest) (*domain.Plan, error) {
	params := domain.PlanParameters{
		Subjects:          strings.TrimSpace(req.Subjects),
		DailyStudyHours:   req.DailyStudyHours,
		StudyDurationDays: req.StudyDurationDays,
		SubjectDetails:    strings.TrimSpace(req.SubjectDetails),
		StartDate:         strings.TrimSpace(req.StartDate),
	}
	if params.StartDate == "" {
		params.StartDate = u.today(userID).Format(domain.DateLayout)
	}
	params.SubjectList = domain.ParseSubjects(params.Subjects)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	planID := uuid.New().String()
	result, err := u.generateSchedule(ctx, scheduleRequest(params))
	if err != nil {
		return nil, err
	}
	tasks := schedule.ParseSchedule(result.ScheduleText, planID)
	if len(tasks) == 0 {
		log.Printf("[PlanUsecase] Unusable schedule for new plan of user %s", userID)
		return nil, domain.ErrScheduleUnusable
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultPlanName(params.SubjectList)
	}

	now := u.now()
	plan := &domain.Plan{
		ID:         planID,
		UserID:     userID,
		Name:       name,
		Parameters: params,
		Status:     domain.PlanStatusActive,
		Summary:    result.Summary,
		Tasks:      tasks,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.planRepo.Create(plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	log.Printf("[PlanUsecase] Created plan %s with %d tasks for user %s", plan.ID, len(plan.Tasks), userID)
	u.notify(ctx, notification.EventPlanCreated, plan, schedule.SkipStatus{})
	u.index(plan, nil)
	return plan, nil
}

func (u *planUsecase) GetPlan(userID, planID string) (*domain.Plan, error) {
	plan, err := u.planRepo.FindByID(planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	if plan.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return plan, nil
}

func (u *planUsecase) ListPlans(userID string, status *domain.PlanStatus) ([]*domain.Plan, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidParameters, *status)
	}
	plans, err := u.planRepo.FindByUserID(userID, status)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []*domain.Plan{}
	}
	return plans, nil
}

func (u *planUsecase) ModifyPlan(ctx context.Context, userID, planID string, req ModifyPlanRequest) (*domain.Plan, error) {
	plan, err := u.GetPlan(userID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != domain.PlanStatusActive {
		return nil, domain.ErrPlanNotActive
	}

	params := plan.Parameters
	if req.Subjects != nil {
		params.Subjects = strings.TrimSpace(*req.Subjects)
	}
	if req.DailyStudyHours != nil {
		params.DailyStudyHours = *req.DailyStudyHours
	}
	if req.StudyDurationDays != nil {
		params.StudyDurationDays = *req.StudyDurationDays
	}
	if req.SubjectDetails != nil {
		params.SubjectDetails = strings.TrimSpace(*req.SubjectDetails)
	}
	if req.StartDate != nil {
		params.StartDate = strings.TrimSpace(*req.StartDate)
	}
	params.SubjectList = domain.ParseSubjects(params.Subjects)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	result, err := u.generateSchedule(ctx, scheduleRequest(params))
	if err != nil {
		return nil, err
	}
	fresh := schedule.ParseSchedule(result.ScheduleText, planID)
	if len(fresh) == 0 {
		log.Printf("[PlanUsecase] Unusable schedule while modifying plan %s", planID)
		return nil, domain.ErrScheduleUnusable
	}

	var removed []string
	updated, err := u.planRepo.ReplaceTasks(planID, func(p *domain.Plan) error {
		if p.Status != domain.PlanStatusActive {
			return domain.ErrPlanNotActive
		}
		merged := schedule.Reconcile(fresh, p.Tasks)
		removed = staleTaskIDs(p.Tasks, merged)

		p.Parameters = params
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if result.Summary != "" {
			p.Summary = result.Summary
		}
		p.Tasks = merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[PlanUsecase] Modified plan %s (%d tasks, %d replaced)", planID, len(updated.Tasks), len(removed))
	u.index(updated, removed)
	return updated, nil
}

func (u *planUsecase) Replan(ctx context.Context, userID, planID string, req ReplanRequest) (*domain.Plan, error) {
	plan, err := u.GetPlan(userID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != domain.PlanStatusActive {
		return nil, domain.ErrPlanNotActive
	}
	if req.RemainingDays < 0 {
		return nil, fmt.Errorf("%w: remaining days must not be negative", domain.ErrInvalidParameters)
	}

	today := u.today(plan.UserID)
	skipped := schedule.ResolveSkippedDays(plan.Tasks, today)

	remaining := req.RemainingDays
	if remaining == 0 {
		remaining = u.remainingDays(plan, today)
	}

	params := plan.Parameters
	params.StudyDurationDays = remaining
	params.StartDate = today.Format(domain.DateLayout)

	scheduleReq := scheduleRequest(params)
	scheduleReq.SkippedDays = skipped.DaysBehind
	scheduleReq.RemainingDays = remaining
	scheduleReq.PriorTasks = make([]ai.PriorTask, len(plan.Tasks))
	for i, t := range plan.Tasks {
		scheduleReq.PriorTasks[i] = ai.PriorTask{Date: t.Date, Task: t.Description, Completed: t.Completed}
	}

	result, err := u.generateSchedule(ctx, scheduleReq)
	if err != nil {
		return nil, err
	}
	fresh := schedule.ParseSchedule(result.ScheduleText, planID)
	if len(fresh) == 0 {
		log.Printf("[PlanUsecase] Unusable schedule while re-planning %s, keeping prior schedule", planID)
		return nil, domain.ErrScheduleUnusable
	}

	var removed []string
	updated, err := u.planRepo.ReplaceTasks(planID, func(p *domain.Plan) error {
		if p.Status != domain.PlanStatusActive {
			return domain.ErrPlanNotActive
		}
		merged := make([]domain.Task, 0, len(p.Tasks)+len(fresh))
		for _, t := range p.Tasks {
			if t.Completed {
				merged = append(merged, t.Clone())
			}
		}
		for _, t := range fresh {
			merged = append(merged, t.Clone())
		}
		removed = staleTaskIDs(p.Tasks, merged)

		p.Parameters = params
		if result.Summary != "" {
			p.Summary = result.Summary
		}
		p.ReplanCount++
		p.Tasks = merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[PlanUsecase] Re-planned %s: %d days behind, %d days remaining", planID, skipped.DaysBehind, remaining)
	u.index(updated, removed)
	return updated, nil
}

// remainingDays is what is left of the plan's duration counted from its
// start date, never less than one day.
func (u *planUsecase) remainingDays(plan *domain.Plan, today time.Time) int {
	start, err := time.Parse(domain.DateLayout, plan.Parameters.StartDate)
	if err != nil {
		start = schedule.CalendarDay(plan.CreatedAt)
	}
	elapsed := schedule.DaysBetween(start, today)
	if elapsed < 0 {
		elapsed = 0
	}
	return max(1, plan.Parameters.StudyDurationDays-elapsed)
}

func (u *planUsecase) GetScheduleStatus(userID, planID string) (*ScheduleStatus, error) {
	plan, err := u.GetPlan(userID, planID)
	if err != nil {
		return nil, err
	}
	today := u.today(plan.UserID)
	progress := schedule.CountProgress(plan.Tasks)
	return &ScheduleStatus{
		PlanID:      plan.ID,
		Status:      plan.Status,
		Today:       today.Format(domain.DateLayout),
		Progress:    progress,
		Skipped:     schedule.ResolveSkippedDays(plan.Tasks, today),
		CanComplete: plan.Status == domain.PlanStatusActive && schedule.MeetsCompletionThreshold(progress),
	}, nil
}

func (u *planUsecase) CompletePlan(ctx context.Context, userID, planID string) (*domain.Plan, error) {
	plan, err := u.GetPlan(userID, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Status.CanTransitionTo(domain.PlanStatusCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, plan.Status, domain.PlanStatusCompleted)
	}
	if !schedule.MeetsCompletionThreshold(schedule.CountProgress(plan.Tasks)) {
		return nil, domain.ErrCompletionThreshold
	}
	from := plan.Status
	if err := plan.TransitionTo(domain.PlanStatusCompleted, u.now()); err != nil {
		return nil, err
	}
	if err := u.planRepo.UpdateStatus(plan, from); err != nil {
		return nil, err
	}

	log.Printf("[PlanUsecase] Plan %s completed", planID)
	u.notify(ctx, notification.EventPlanCompleted, plan, schedule.SkipStatus{})
	if u.worker != nil {
		u.worker.QueueJob(ReflectionJob{PlanID: plan.ID})
	}
	return plan, nil
}

func (u *planUsecase) ArchivePlan(userID, planID string) (*domain.Plan, error) {
	plan, err := u.GetPlan(userID, planID)
	if err != nil {
		return nil, err
	}
	from := plan.Status
	if err := plan.TransitionTo(domain.PlanStatusArchived, u.now()); err != nil {
		return nil, err
	}
	if err := u.planRepo.UpdateStatus(plan, from); err != nil {
		return nil, err
	}
	return plan, nil
}

func (u *planUsecase) DeletePlan(ctx context.Context, userID, planID string) error {
	plan, err := u.GetPlan(userID, planID)
	if err != nil {
		return err
	}
	if err := u.planRepo.Delete(planID); err != nil {
		return err
	}
	if u.indexer != nil && len(plan.Tasks) > 0 {
		ids := make([]string, len(plan.Tasks))
		for i, t := range plan.Tasks {
			ids[i] = t.ID
		}
		go u.indexer.RemoveTasks(context.Background(), ids)
	}
	return nil
}

func (u *planUsecase) GetReflection(userID, planID string) (*ReflectionStatus, error) {
	plan, err := u.GetPlan(userID, planID)
	if err != nil {
		return nil, err
	}
	if len(plan.Reflection) > 0 {
		var reflection domain.Reflection
		if err := json.Unmarshal(plan.Reflection, &reflection); err == nil {
			return &ReflectionStatus{Reflection: &reflection}, nil
		}
		log.Printf("[PlanUsecase] Discarding unreadable reflection on plan %s", planID)
	}
	if plan.CompletedAt == nil {
		return nil, domain.ErrNoReflection
	}
	if u.worker == nil {
		return nil, domain.ErrGeneratorMissing
	}
	u.worker.QueueJob(ReflectionJob{PlanID: plan.ID})
	return &ReflectionStatus{Pending: true}, nil
}

func (u *planUsecase) generateSchedule(ctx context.Context, req ai.ScheduleRequest) (*ai.ScheduleResult, error) {
	if u.generator == nil {
		return nil, domain.ErrGeneratorMissing
	}
	result, err := u.generator.GenerateSchedule(ctx, req)
	if err != nil {
		log.Printf("[PlanUsecase] Schedule generation failed: %v", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrScheduleUnusable, err)
	}
	if result == nil {
		return nil, domain.ErrScheduleUnusable
	}
	return result, nil
}

func (u *planUsecase) notify(ctx context.Context, eventType notification.EventType, plan *domain.Plan, skipped schedule.SkipStatus) {
	if u.notifier == nil {
		return
	}
	u.notifier.Notify(ctx, notification.Event{
		Type:       eventType,
		UserID:     plan.UserID,
		PlanID:     plan.ID,
		PlanName:   plan.Name,
		DaysBehind: skipped.DaysBehind,
		Since:      skipped.Since,
		OccurredAt: u.now(),
	})
}

// index pushes the plan's tasks to the search index in the background.
func (u *planUsecase) index(plan *domain.Plan, removed []string) {
	if u.indexer == nil {
		return
	}
	snapshot := *plan
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if len(removed) > 0 {
			u.indexer.RemoveTasks(ctx, removed)
		}
		u.indexer.IndexPlan(ctx, &snapshot)
	}()
}

func scheduleRequest(params domain.PlanParameters) ai.ScheduleRequest {
	subjects := make([]ai.Subject, 0, len(params.SubjectList))
	for _, s := range params.SubjectList.ByPriority() {
		subjects = append(subjects, ai.Subject{Name: s.Name, Priority: s.Priority})
	}
	return ai.ScheduleRequest{
		Subjects:          subjects,
		DailyStudyHours:   params.DailyStudyHours,
		StudyDurationDays: params.StudyDurationDays,
		SubjectDetails:    params.SubjectDetails,
		StartDate:         params.StartDate,
	}
}

func defaultPlanName(subjects domain.SubjectList) string {
	names := subjects.Names()
	if len(names) > 3 {
		names = append(names[:3], "...")
	}
	return "Study plan: " + strings.Join(names, ", ")
}

// staleTaskIDs lists prior task ids that no longer appear in next.
func staleTaskIDs(prior, next []domain.Task) []string {
	keep := make(map[string]struct{}, len(next))
	for _, t := range next {
		keep[t.ID] = struct{}{}
	}
	var stale []string
	for _, t := range prior {
		if _, ok := keep[t.ID]; !ok {
			stale = append(stale, t.ID)
		}
	}
	return stale
}
