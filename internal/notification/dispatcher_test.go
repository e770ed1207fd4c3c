package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	authdomain "broadrange-backend/internal/auth/domain"
	authrepo "broadrange-backend/internal/auth/repository"
	"broadrange-backend/pkg/fcm"
	"broadrange-backend/pkg/mailer"
)

type stubUsers struct {
	authrepo.UserRepository
	users map[string]*authdomain.User
}

func (s stubUsers) FindByID(id string) (*authdomain.User, error) {
	return s.users[id], nil
}

type stubDevices struct {
	authrepo.DeviceTokenRepository
	tokens  []string
	deleted []string
}

func (s *stubDevices) GetTokensByUserID(userID string) ([]authdomain.DeviceToken, error) {
	var out []authdomain.DeviceToken
	for _, t := range s.tokens {
		out = append(out, authdomain.DeviceToken{UserID: userID, Token: t})
	}
	return out, nil
}

func (s *stubDevices) DeleteTokens(tokens []string) error {
	s.deleted = append(s.deleted, tokens...)
	return nil
}

type captureMailer struct {
	sent []mailer.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

type capturePush struct {
	sent   []fcm.NotificationData
	failed []string
}

func (p *capturePush) SendToDevices(_ context.Context, tokens []string, n fcm.NotificationData) ([]string, error) {
	p.sent = append(p.sent, n)
	return p.failed, nil
}

type captureSink struct {
	events []string
}

func (s *captureSink) SendToUser(userID, event string, payload interface{}) {
	s.events = append(s.events, userID+":"+event)
}

func TestDispatchRespectsPreferences(t *testing.T) {
	tests := []struct {
		name      string
		email     bool
		push      bool
		wantMails int
		wantPush  int
	}{
		{"both", true, true, 1, 1},
		{"email only", true, false, 1, 0},
		{"push only", false, true, 0, 1},
		{"none", false, false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := stubUsers{users: map[string]*authdomain.User{
				"u1": {ID: "u1", Email: "ana@example.com", Name: "Ana", EmailNotifications: tt.email, PushNotifications: tt.push},
			}}
			devices := &stubDevices{tokens: []string{"t1"}}
			m := &captureMailer{}
			p := &capturePush{}
			sink := &captureSink{}

			d := NewDispatcher(users, devices, m, p, sink)
			d.Dispatch(context.Background(), Event{Type: EventPlanCreated, UserID: "u1", PlanID: "p1", PlanName: "Finals"})

			if len(m.sent) != tt.wantMails {
				t.Errorf("mails = %d, want %d", len(m.sent), tt.wantMails)
			}
			if len(p.sent) != tt.wantPush {
				t.Errorf("pushes = %d, want %d", len(p.sent), tt.wantPush)
			}
			if len(sink.events) != 1 || sink.events[0] != "u1:plan_created" {
				t.Errorf("sse = %v", sink.events)
			}
		})
	}
}

func TestDispatchPrunesFailedTokens(t *testing.T) {
	users := stubUsers{users: map[string]*authdomain.User{
		"u1": {ID: "u1", PushNotifications: true},
	}}
	devices := &stubDevices{tokens: []string{"good", "stale"}}
	p := &capturePush{failed: []string{"stale"}}

	NewDispatcher(users, devices, nil, p, nil).Dispatch(context.Background(), Event{Type: EventPlanCompleted, UserID: "u1", PlanID: "p9"})

	if len(devices.deleted) != 1 || devices.deleted[0] != "stale" {
		t.Errorf("deleted = %v", devices.deleted)
	}
	if len(p.sent) != 1 || p.sent[0].ClickAction != "/plans/p9/reflection" {
		t.Errorf("push = %+v", p.sent)
	}
}

func TestDispatchMailFailureDoesNotStopPush(t *testing.T) {
	users := stubUsers{users: map[string]*authdomain.User{
		"u1": {ID: "u1", Email: "a@b.c", EmailNotifications: true, PushNotifications: true},
	}}
	p := &capturePush{}
	m := &captureMailer{err: errors.New("smtp down")}

	NewDispatcher(users, &stubDevices{tokens: []string{"t"}}, m, p, nil).Dispatch(context.Background(), Event{Type: EventMissedDay, UserID: "u1"})

	if len(p.sent) != 1 {
		t.Errorf("pushes = %d, want 1", len(p.sent))
	}
}

func TestDispatchUnknownUser(t *testing.T) {
	m := &captureMailer{}
	sink := &captureSink{}
	NewDispatcher(stubUsers{users: map[string]*authdomain.User{}}, &stubDevices{}, m, nil, sink).
		Dispatch(context.Background(), Event{Type: EventPlanCreated, UserID: "ghost"})
	if len(m.sent) != 0 {
		t.Errorf("mailed unknown user")
	}
	if len(sink.events) != 1 {
		t.Errorf("sse = %v", sink.events)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  []string
	}{
		{"created", Event{Type: EventPlanCreated, PlanID: "p", PlanName: "Finals"}, []string{`"Finals"`, "scheduled"}},
		{"completed", Event{Type: EventPlanCompleted, PlanID: "p"}, []string{"your study plan", "reflection"}},
		{"missed one", Event{Type: EventMissedDay, PlanID: "p", PlanName: "X", DaysBehind: 1}, []string{"a day behind"}},
		{"missed many", Event{Type: EventMissedDay, PlanID: "p", PlanName: "X", DaysBehind: 3, Since: "2026-03-02"}, []string{"3 days behind", "2026-03-02"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := render(tt.event)
			for _, w := range tt.want {
				if !strings.Contains(msg.Body, w) {
					t.Errorf("body %q missing %q", msg.Body, w)
				}
			}
			if !strings.HasPrefix(msg.Path, "/plans/p") {
				t.Errorf("path = %q", msg.Path)
			}
		})
	}
}

type recordingHandler struct {
	mu     sync.Mutex
	events []Event
	done   chan struct{}
}

func (h *recordingHandler) Dispatch(_ context.Context, e Event) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
	if h.done != nil {
		h.done <- struct{}{}
	}
}

func TestHandleMessageDeduplicates(t *testing.T) {
	h := &recordingHandler{}
	s := &Service{handler: h, seen: make(map[string]time.Time)}

	data := []byte(`{"type":"missed_day","userId":"u1","planId":"p1","daysBehind":2,"since":"2026-03-02","occurredAt":"2026-03-04T08:00:00Z"}`)
	s.handleMessage(context.Background(), data)
	s.handleMessage(context.Background(), data)
	s.handleMessage(context.Background(), []byte(`not json`))
	s.handleMessage(context.Background(), []byte(`{"type":"plan_created"}`))

	if len(h.events) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(h.events))
	}
	if h.events[0].DaysBehind != 2 || h.events[0].Since != "2026-03-02" {
		t.Errorf("event = %+v", h.events[0])
	}
}

func TestLocalNotifier(t *testing.T) {
	h := &recordingHandler{done: make(chan struct{}, 1)}
	NewLocalNotifier(h).Notify(context.Background(), Event{Type: EventPlanCreated, UserID: "u1"})

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not dispatched")
	}
	if h.events[0].OccurredAt.IsZero() {
		t.Error("OccurredAt not stamped")
	}
}
