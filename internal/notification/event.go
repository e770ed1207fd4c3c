package notification

import (
	"context"
	"time"
)

// EventType names a plan lifecycle event
type EventType string

const (
	EventPlanCreated   EventType = "plan_created"
	EventPlanCompleted EventType = "plan_completed"
	EventMissedDay     EventType = "missed_day"
)

// Event is the payload published for every lifecycle change.
type Event struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"userId"`
	PlanID     string    `json:"planId"`
	PlanName   string    `json:"planName"`
	DaysBehind int       `json:"daysBehind,omitempty"`
	Since      string    `json:"since,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier delivers events. Notify never blocks on delivery and never fails
// the caller's operation.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}
