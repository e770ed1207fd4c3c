package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	authrepo "broadrange-backend/internal/auth/repository"
	"broadrange-backend/pkg/fcm"
	"broadrange-backend/pkg/mailer"
)

// PushSender delivers push notifications and reports the tokens that failed.
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// EventSink pushes realtime events to connected clients.
type EventSink interface {
	SendToUser(userID, event string, payload interface{})
}

// Dispatcher fans an event out to the user's channels: SSE always, email and
// push according to the user's preferences.
type Dispatcher struct {
	userRepo   authrepo.UserRepository
	deviceRepo authrepo.DeviceTokenRepository
	mailer     mailer.Mailer
	push       PushSender
	sink       EventSink
}

func NewDispatcher(userRepo authrepo.UserRepository, deviceRepo authrepo.DeviceTokenRepository, m mailer.Mailer, push PushSender, sink EventSink) *Dispatcher {
	return &Dispatcher{
		userRepo:   userRepo,
		deviceRepo: deviceRepo,
		mailer:     m,
		push:       push,
		sink:       sink,
	}
}

// message is the rendered, channel independent text of an event.
type message struct {
	Title string
	Body  string
	Path  string
}

func render(e Event) message {
	name := e.PlanName
	if name == "" {
		name = "your study plan"
	}
	path := "/plans/" + e.PlanID

	switch e.Type {
	case EventPlanCreated:
		return message{
			Title: "New study plan ready",
			Body:  fmt.Sprintf("%q has been scheduled. Your first session is waiting.", name),
			Path:  path,
		}
	case EventPlanCompleted:
		return message{
			Title: "Plan completed",
			Body:  fmt.Sprintf("You finished %q. Your reflection will be ready shortly.", name),
			Path:  path + "/reflection",
		}
	case EventMissedDay:
		days := "a day"
		if e.DaysBehind > 1 {
			days = fmt.Sprintf("%d days", e.DaysBehind)
		}
		body := fmt.Sprintf("You are %s behind on %q.", days, name)
		if e.Since != "" {
			body += fmt.Sprintf(" The first unfinished day was %s.", e.Since)
		}
		return message{
			Title: "Time to catch up",
			Body:  body + " Re-plan to spread the remaining work.",
			Path:  path,
		}
	default:
		return message{Title: "Study plan update", Body: name, Path: path}
	}
}

// Dispatch delivers e on every enabled channel. Channel failures are logged
// and do not stop the other channels.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	msg := render(e)

	if d.sink != nil {
		d.sink.SendToUser(e.UserID, string(e.Type), e)
	}

	if d.userRepo == nil {
		return
	}
	user, err := d.userRepo.FindByID(e.UserID)
	if err != nil {
		log.Printf("[Notify] Error loading user %s: %v", e.UserID, err)
		return
	}
	if user == nil {
		log.Printf("[Notify] User %s not found, dropping %s", e.UserID, e.Type)
		return
	}

	if user.EmailNotifications && d.mailer != nil {
		err := d.mailer.Send(ctx, mailer.Message{
			To:      user.Email,
			ToName:  user.Name,
			Subject: msg.Title,
			Text:    emailText(user.Name, msg),
		})
		if err != nil {
			log.Printf("[Notify] Email to %s failed: %v", user.ID, err)
		}
	}

	if user.PushNotifications && d.push != nil && d.deviceRepo != nil {
		d.sendPush(ctx, user.ID, e, msg)
	}
}

func (d *Dispatcher) sendPush(ctx context.Context, userID string, e Event, msg message) {
	devices, err := d.deviceRepo.GetTokensByUserID(userID)
	if err != nil {
		log.Printf("[FCM] Error getting tokens for user %s: %v", userID, err)
		return
	}
	if len(devices) == 0 {
		return
	}

	tokens := make([]string, 0, len(devices))
	for _, dt := range devices {
		tokens = append(tokens, dt.Token)
	}

	failed, err := d.push.SendToDevices(ctx, tokens, fcm.NotificationData{
		Title: msg.Title,
		Body:  msg.Body,
		Data: map[string]string{
			"type":   string(e.Type),
			"planId": e.PlanID,
		},
		ClickAction: msg.Path,
	})
	if err != nil {
		log.Printf("[FCM] Error sending to user %s: %v", userID, err)
	}

	if len(failed) > 0 {
		log.Printf("[FCM] Cleaning up %d failed tokens", len(failed))
		if err := d.deviceRepo.DeleteTokens(failed); err != nil {
			log.Printf("[FCM] Error deleting failed tokens: %v", err)
		}
	}
}

func emailText(name string, msg message) string {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", name)
	}
	b.WriteString(msg.Body)
	b.WriteString("\n\nOpen the planner: ")
	b.WriteString(msg.Path)
	b.WriteString("\n")
	return b.String()
}
