package mailer

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
)

func TestComposeRoundTrip(t *testing.T) {
	from := mail.Address{Name: "Study Planner", Address: "planner@example.com"}
	raw, err := Compose(from, Message{
		To:      "student@example.com",
		ToName:  "Student",
		Subject: "Your plan is ready",
		Text:    "Day 1: Algebra",
		HTML:    "<p>Day 1: Algebra</p>",
	}, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	r, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("CreateReader: %v", err)
	}

	subject, err := r.Header.Subject()
	if err != nil || subject != "Your plan is ready" {
		t.Errorf("Subject = %q, %v", subject, err)
	}
	to, err := r.Header.AddressList("To")
	if err != nil || len(to) != 1 || to[0].Address != "student@example.com" {
		t.Errorf("To = %v, %v", to, err)
	}

	var bodies []string
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		b, _ := io.ReadAll(p.Body)
		bodies = append(bodies, string(b))
	}
	joined := strings.Join(bodies, "\n")
	if !strings.Contains(joined, "Day 1: Algebra") || !strings.Contains(joined, "<p>Day 1: Algebra</p>") {
		t.Errorf("bodies = %q", bodies)
	}
}

func TestComposeRequiresRecipient(t *testing.T) {
	if _, err := Compose(mail.Address{Address: "a@example.com"}, Message{Subject: "x"}, time.Now()); err == nil {
		t.Fatal("expected error for missing recipient")
	}
}
