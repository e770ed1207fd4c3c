package usecase

import (
	"context"
	"sync"

	"broadrange-backend/internal/notification"
	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/internal/plan/repository"
	"broadrange-backend/pkg/ai"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// memStore backs both fake repositories so task edits are visible on plans.
type memStore struct {
	mu    sync.Mutex
	plans map[string]*domain.Plan
	// afterRead runs once FindByID has returned its copy, standing in for
	// a writer that commits between a read and the following write.
	afterRead func(store *memStore)
}

func newMemStore() *memStore {
	return &memStore{plans: make(map[string]*domain.Plan)}
}

func clonePlan(p *domain.Plan) *domain.Plan {
	out := *p
	out.Tasks = make([]domain.Task, len(p.Tasks))
	for i, t := range p.Tasks {
		out.Tasks[i] = t.Clone()
	}
	out.Reflection = append(datatypes.JSON(nil), p.Reflection...)
	return &out
}

func stamp(p *domain.Plan) {
	for i := range p.Tasks {
		p.Tasks[i].PlanID = p.ID
		p.Tasks[i].Position = i
		for j := range p.Tasks[i].SubTasks {
			p.Tasks[i].SubTasks[j].TaskID = p.Tasks[i].ID
		}
	}
}

type fakePlanRepo struct{ s *memStore }

func (r *fakePlanRepo) Create(plan *domain.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(plan)
	r.s.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (r *fakePlanRepo) FindByID(id string) (*domain.Plan, error) {
	r.s.mu.Lock()
	p, ok := r.s.plans[id]
	if !ok {
		r.s.mu.Unlock()
		return nil, nil
	}
	out := clonePlan(p)
	hook := r.s.afterRead
	r.s.afterRead = nil
	r.s.mu.Unlock()
	if hook != nil {
		hook(r.s)
	}
	return out, nil
}

func (r *fakePlanRepo) FindHeader(id string) (*domain.Plan, error) {
	p, err := r.FindByID(id)
	if p != nil {
		p.Tasks = nil
	}
	return p, err
}

func (r *fakePlanRepo) FindByUserID(userID string, status *domain.PlanStatus) ([]*domain.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Plan
	for _, p := range r.s.plans {
		if p.UserID == userID && (status == nil || p.Status == *status) {
			out = append(out, clonePlan(p))
		}
	}
	return out, nil
}

func (r *fakePlanRepo) UpdateStatus(plan *domain.Plan, from domain.PlanStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.plans[plan.ID]
	if !ok || stored.Status != from {
		return domain.ErrInvalidTransition
	}
	stored.Status = plan.Status
	stored.CompletedAt = plan.CompletedAt
	stored.UpdatedAt = plan.UpdatedAt
	return nil
}

func (r *fakePlanRepo) ReplaceTasks(planID string, mutate func(plan *domain.Plan) error) (*domain.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.plans[planID]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	working := clonePlan(stored)
	if err := mutate(working); err != nil {
		return nil, err
	}
	stamp(working)
	r.s.plans[planID] = clonePlan(working)
	return working, nil
}

func (r *fakePlanRepo) SaveReflection(planID string, reflection datatypes.JSON) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.plans[planID]; ok {
		p.Reflection = reflection
	}
	return nil
}

func (r *fakePlanRepo) Delete(id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.plans, id)
	return nil
}

func (r *fakePlanRepo) FindActive() ([]*domain.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Plan
	for _, p := range r.s.plans {
		if p.Status == domain.PlanStatusActive {
			out = append(out, clonePlan(p))
		}
	}
	return out, nil
}

func (r *fakePlanRepo) MarkMissedNotice(planID, day string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.plans[planID]; ok {
		p.LastMissedNoticeOn = day
	}
	return nil
}

func (r *fakePlanRepo) QuizStats(userID string) (*repository.QuizStats, error) {
	return &repository.QuizStats{}, nil
}

type fakeTaskRepo struct{ s *memStore }

func (r *fakeTaskRepo) locate(taskID string) *domain.Task {
	for _, p := range r.s.plans {
		for i := range p.Tasks {
			if p.Tasks[i].ID == taskID {
				return &p.Tasks[i]
			}
		}
	}
	return nil
}

func (r *fakeTaskRepo) FindByID(taskID string) (*domain.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.locate(taskID)
	if t == nil {
		return nil, nil
	}
	out := t.Clone()
	return &out, nil
}

func (r *fakeTaskRepo) Update(task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.locate(task.ID)
	if t == nil {
		return domain.ErrTaskNotFound
	}
	c := task.Clone()
	t.Completed = c.Completed
	t.CompletedAt = c.CompletedAt
	t.Notes = c.Notes
	t.QuizScore = c.QuizScore
	t.QuizAttempted = c.QuizAttempted
	return nil
}

func (r *fakeTaskRepo) CreateSubTask(sub *domain.SubTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.locate(sub.TaskID)
	if t == nil {
		return domain.ErrTaskNotFound
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	sub.Position = len(t.SubTasks)
	t.SubTasks = append(t.SubTasks, *sub)
	return nil
}

func (r *fakeTaskRepo) FindSubTask(taskID, subID string) (*domain.SubTask, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.locate(taskID)
	if t == nil {
		return nil, nil
	}
	for _, s := range t.SubTasks {
		if s.ID == subID {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeTaskRepo) UpdateSubTask(sub *domain.SubTask) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.locate(sub.TaskID)
	if t == nil {
		return nil
	}
	for i := range t.SubTasks {
		if t.SubTasks[i].ID == sub.ID {
			t.SubTasks[i].Text = sub.Text
			t.SubTasks[i].Completed = sub.Completed
		}
	}
	return nil
}

func (r *fakeTaskRepo) DeleteSubTask(taskID, subID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := r.locate(taskID)
	if t == nil {
		return nil
	}
	kept := t.SubTasks[:0]
	for _, s := range t.SubTasks {
		if s.ID != subID {
			kept = append(kept, s)
		}
	}
	t.SubTasks = kept
	return nil
}

// recordingGenerator wraps MockPlanner, remembers requests and can be told
// to return raw schedule text instead.
type recordingGenerator struct {
	ai.MockPlanner
	mu       sync.Mutex
	requests []ai.ScheduleRequest
	quizzes  []ai.QuizRequest
	override *string
}

func (g *recordingGenerator) GenerateSchedule(ctx context.Context, req ai.ScheduleRequest) (*ai.ScheduleResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	override := g.override
	g.mu.Unlock()
	if override != nil {
		return &ai.ScheduleResult{ScheduleText: *override}, nil
	}
	return g.MockPlanner.GenerateSchedule(ctx, req)
}

func (g *recordingGenerator) GenerateQuiz(ctx context.Context, req ai.QuizRequest) ([]ai.QuizQuestion, error) {
	g.mu.Lock()
	g.quizzes = append(g.quizzes, req)
	g.mu.Unlock()
	return g.MockPlanner.GenerateQuiz(ctx, req)
}

func (g *recordingGenerator) returnRaw(text string) {
	g.mu.Lock()
	g.override = &text
	g.mu.Unlock()
}

func (g *recordingGenerator) last() ai.ScheduleRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *fakeNotifier) Notify(ctx context.Context, event notification.Event) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *fakeNotifier) types() []notification.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}
