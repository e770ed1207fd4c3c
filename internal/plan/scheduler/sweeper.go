package scheduler

import (
	"context"
	"log"
	"time"

	"broadrange-backend/internal/notification"
	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/internal/plan/repository"
	"broadrange-backend/internal/plan/schedule"
)

// MissedDaySweeper periodically finds active plans that have fallen behind
// and sends one missed_day notice per plan per day.
type MissedDaySweeper struct {
	planRepo repository.PlanRepository
	notifier notification.Notifier
	interval time.Duration
	locator  schedule.Locator
	stopChan chan struct{}
	now      func() time.Time
}

// NewMissedDaySweeper creates a new sweeper
func NewMissedDaySweeper(
	planRepo repository.PlanRepository,
	notifier notification.Notifier,
	interval time.Duration,
) *MissedDaySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &MissedDaySweeper{
		planRepo: planRepo,
		notifier: notifier,
		interval: interval,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// SetLocator makes each plan's day boundary follow its owner's time zone.
func (s *MissedDaySweeper) SetLocator(locator schedule.Locator) {
	s.locator = locator
}

// Start begins the sweep loop
func (s *MissedDaySweeper) Start() {
	if s.notifier == nil {
		log.Println("[MissedDaySweeper] No notifier available, sweeper disabled")
		return
	}

	log.Printf("[MissedDaySweeper] Starting missed-day sweeper (interval: %s)", s.interval)

	go func() {
		// Run immediately on start
		s.RunOnce(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(context.Background())
			case <-s.stopChan:
				log.Println("[MissedDaySweeper] Sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper
func (s *MissedDaySweeper) Stop() {
	close(s.stopChan)
}

// RunOnce performs a single sweep and returns how many notices were sent.
func (s *MissedDaySweeper) RunOnce(ctx context.Context) int {
	plans, err := s.planRepo.FindActive()
	if err != nil {
		log.Printf("[MissedDaySweeper] Error loading active plans: %v", err)
		return 0
	}

	now := s.now()
	sent := 0

	for _, plan := range plans {
		var loc *time.Location
		if s.locator != nil {
			loc = s.locator.Location(plan.UserID)
		}
		today := schedule.LocalDay(now, loc)
		todayKey := today.Format(domain.DateLayout)
		if plan.LastMissedNoticeOn == todayKey {
			continue
		}
		skipped := schedule.ResolveSkippedDays(plan.Tasks, today)
		if !skipped.Behind {
			continue
		}

		// At most one notice per plan per day, even if delivery fails
		if err := s.planRepo.MarkMissedNotice(plan.ID, todayKey); err != nil {
			log.Printf("[MissedDaySweeper] Error marking plan %s: %v", plan.ID, err)
			continue
		}

		if s.notifier != nil {
			s.notifier.Notify(ctx, notification.Event{
				Type:       notification.EventMissedDay,
				UserID:     plan.UserID,
				PlanID:     plan.ID,
				PlanName:   plan.Name,
				DaysBehind: skipped.DaysBehind,
				Since:      skipped.Since,
				OccurredAt: now,
			})
		}
		sent++
	}

	if sent > 0 {
		log.Printf("[MissedDaySweeper] Sent %d missed-day notices", sent)
	}
	return sent
}
