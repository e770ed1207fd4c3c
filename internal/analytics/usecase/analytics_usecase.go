package usecase

import (
	"context"
	"fmt"
	"time"

	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/internal/plan/repository"
	"broadrange-backend/internal/plan/schedule"

	"golang.org/x/sync/errgroup"
)

type analyticsUsecase struct {
	plans PlanReader
	now   func() time.Time
}

func NewAnalyticsUsecase(plans PlanReader) AnalyticsUsecase {
	return &analyticsUsecase{plans: plans, now: time.Now}
}

func (u *analyticsUsecase) GetOverview(ctx context.Context, userID string) (*Overview, error) {
	var (
		plans []*domain.Plan
		quiz  *repository.QuizStats
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		plans, err = u.plans.FindByUserID(userID, nil)
		if err != nil {
			return fmt.Errorf("load plans: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		quiz, err = u.plans.QuizStats(userID)
		if err != nil {
			return fmt.Errorf("load quiz stats: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	today := schedule.CalendarDay(u.now())
	todayKey := today.Format(domain.DateLayout)

	out := &Overview{Active: []ActivePlanProgress{}}
	if quiz != nil {
		out.Quiz = *quiz
	}

	var all []domain.Task
	for _, p := range plans {
		switch p.Status {
		case domain.PlanStatusActive:
			out.Plans.Active++
			out.Active = append(out.Active, ActivePlanProgress{
				PlanID:   p.ID,
				Name:     p.Name,
				Progress: schedule.CountProgress(p.Tasks),
				Skipped:  schedule.ResolveSkippedDays(p.Tasks, today),
			})
			for i := range p.Tasks {
				if p.Tasks[i].Date == todayKey && !p.Tasks[i].Completed {
					out.DueToday++
				}
			}
		case domain.PlanStatusCompleted:
			out.Plans.Completed++
		case domain.PlanStatusArchived:
			out.Plans.Archived++
		}
		all = append(all, p.Tasks...)
	}

	progress := schedule.CountProgress(all)
	out.TasksTotal = progress.Total
	out.TasksCompleted = progress.Completed
	out.CompletionRate = progress.Percent
	out.CurrentStreak = currentStreak(all, today)

	return out, nil
}

// currentStreak counts consecutive scheduled days, ending today, on which every
// task was completed. An unfinished today does not break the streak; the count
// then starts from yesterday. A day with no tasks ends the streak.
func currentStreak(tasks []domain.Task, today time.Time) int {
	type dayState struct{ total, done int }
	days := make(map[string]*dayState)
	for i := range tasks {
		d, ok := tasks[i].ParsedDate()
		if !ok {
			continue
		}
		key := d.Format(domain.DateLayout)
		st := days[key]
		if st == nil {
			st = &dayState{}
			days[key] = st
		}
		st.total++
		if tasks[i].Completed {
			st.done++
		}
	}

	complete := func(day time.Time) bool {
		st := days[day.Format(domain.DateLayout)]
		return st != nil && st.done == st.total
	}

	day := today
	if !complete(day) {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for complete(day) {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
