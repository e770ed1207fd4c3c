package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Message is an outgoing notification email.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends notification emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Compose renders msg as an RFC 5322 message with text and optional HTML
// alternatives.
func Compose(from mail.Address, msg Message, now time.Time) ([]byte, error) {
	if msg.To == "" {
		return nil, errors.New("recipient is required")
	}

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{&from})
	h.SetAddressList("To", []*mail.Address{{Name: msg.ToName, Address: msg.To}})
	h.SetSubject(msg.Subject)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline part: %w", err)
	}
	if err := writePart(tw, "text/plain", msg.Text); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writePart(tw, "text/html", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	return w.Close()
}

// GmailMailer sends through the Gmail API as the account that owns the
// refresh token.
type GmailMailer struct {
	service *gmail.Service
	from    mail.Address
}

func NewGmailMailer(ctx context.Context, clientID, clientSecret, refreshToken, fromAddress, fromName string) (*GmailMailer, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, errors.New("gmail client id, secret and refresh token are required")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	tokenSource := config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	srv, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return &GmailMailer{
		service: srv,
		from:    mail.Address{Name: fromName, Address: fromAddress},
	}, nil
}

func (m *GmailMailer) Send(ctx context.Context, msg Message) error {
	raw, err := Compose(m.from, msg, time.Now())
	if err != nil {
		return err
	}

	gmsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}
	if _, err := m.service.Users.Messages.Send("me", gmsg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to send message: %w", err)
	}
	return nil
}

// LogMailer only logs. Used when Gmail is not configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	log.Printf("[Mailer] (not configured) would send %q to %s", msg.Subject, msg.To)
	return nil
}
