package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Handler consumes decoded events.
type Handler interface {
	Dispatch(ctx context.Context, e Event)
}

// Service publishes lifecycle events to a Pub/Sub topic and consumes them
// from the topic's subscription, so the API process never waits on email or
// push delivery.
type Service struct {
	pubsubClient *pubsub.Client
	topic        *pubsub.Topic
	handler      Handler
	topicName    string
	subName      string

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewService(ctx context.Context, projectID, topicName, credentialsFile string, handler Handler) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient: client,
		topic:        client.Topic(topicName),
		handler:      handler,
		topicName:    topicName,
		subName:      topicName + "-sub", // Convention: topic-sub
		seen:         make(map[string]time.Time),
	}, nil
}

// Notify publishes e. The publish result is awaited in the background.
func (s *Service) Notify(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[PubSub] Failed to marshal %s event: %v", e.Type, err)
		return
	}

	result := s.topic.Publish(context.Background(), &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": string(e.Type)},
	})
	go func() {
		getCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := result.Get(getCtx); err != nil {
			log.Printf("[PubSub] Publish %s for plan %s failed: %v", e.Type, e.PlanID, err)
		}
	}()
}

// Start blocks receiving events until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topicExists, err := s.topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			if _, err := s.pubsubClient.CreateTopic(ctx, s.topicName); err != nil {
				log.Printf("[PubSub] Failed to create topic: %v", err)
				return
			}
			log.Printf("[PubSub] Created topic: %s", s.topicName)
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       s.topic,
			AckDeadline: 30 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg.Data)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

// Close stops the publisher and releases the client.
func (s *Service) Close() error {
	s.topic.Stop()
	return s.pubsubClient.Close()
}

func (s *Service) handleMessage(ctx context.Context, data []byte) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		log.Printf("[PubSub] Failed to unmarshal event: %v", err)
		return
	}
	if e.UserID == "" || e.Type == "" {
		log.Printf("[PubSub] Dropping incomplete event: %s", string(data))
		return
	}

	// Pub/Sub delivers at least once
	if s.duplicate(e) {
		log.Printf("[PubSub] Skipping duplicate %s for plan %s", e.Type, e.PlanID)
		return
	}
	s.handler.Dispatch(ctx, e)
}

func (s *Service) duplicate(e Event) bool {
	key := fmt.Sprintf("%s|%s|%s|%d", e.Type, e.PlanID, e.Since, e.OccurredAt.UnixNano())
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, at := range s.seen {
		if now.Sub(at) > time.Hour {
			delete(s.seen, k)
		}
	}
	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = now
	return false
}
