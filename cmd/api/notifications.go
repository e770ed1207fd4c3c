package api

import (
	"context"
	"log"
	"strings"

	authRepo "broadrange-backend/internal/auth/repository"
	"broadrange-backend/internal/notification"
	"broadrange-backend/pkg/config"
	"broadrange-backend/pkg/fcm"
	"broadrange-backend/pkg/mailer"
)

// NotifierOptions selects how NewNotifier delivers events.
type NotifierOptions struct {
	// Consume starts the Pub/Sub subscriber in this process
	Consume bool
	// Inline dispatches synchronously when Pub/Sub is not configured
	Inline bool
	// Sink receives realtime events, may be nil
	Sink notification.EventSink
}

// NewNotifier builds the lifecycle notifier. With a Google project configured
// events go through Pub/Sub, otherwise they are dispatched in-process. The
// returned func flushes pending publishes and releases clients.
func NewNotifier(ctx context.Context, cfg *config.Config, userRepo authRepo.UserRepository, deviceRepo authRepo.DeviceTokenRepository, opts NotifierOptions) (notification.Notifier, func()) {
	var m mailer.Mailer = mailer.LogMailer{}
	if cfg.GmailRefreshToken != "" {
		gm, err := mailer.NewGmailMailer(ctx, cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailRefreshToken, cfg.MailFrom, cfg.MailFromName)
		if err != nil {
			log.Printf("[WARN] Failed to initialize Gmail mailer (emails will be logged): %v", err)
		} else {
			m = gm
			log.Printf("[Notify] Gmail mailer initialized, sending as %s", cfg.MailFrom)
		}
	}

	var push notification.PushSender
	if cfg.FirebaseCredentials != "" {
		client, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			push = client
		}
	} else {
		log.Printf("[Notify] No Firebase credentials configured, FCM disabled")
	}

	dispatcher := notification.NewDispatcher(userRepo, deviceRepo, m, push, opts.Sink)

	if cfg.GoogleProjectID != "" {
		// Accept the full resource name as well as the short topic name
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		svc, err := notification.NewService(ctx, cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, dispatcher)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize Pub/Sub notifications, dispatching in-process: %v", err)
		} else {
			if opts.Consume {
				go svc.Start(ctx)
			}
			return svc, func() {
				if err := svc.Close(); err != nil {
					log.Printf("[PubSub] Close: %v", err)
				}
			}
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, dispatching notifications in-process")
	}

	if opts.Inline {
		return notification.NewInlineNotifier(dispatcher), func() {}
	}
	return notification.NewLocalNotifier(dispatcher), func() {}
}
