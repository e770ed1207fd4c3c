package sse

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Event is one server-sent event addressed to a user.
type Event struct {
	UserID string
	Name   string
	Data   []byte
}

type client chan Event

// Manager fans events out to every open stream of a user.
type Manager struct {
	mu        sync.RWMutex
	clients   map[string]map[client]struct{}
	broadcast chan Event
	done      chan struct{}
	heartbeat time.Duration
}

func NewManager() *Manager {
	return &Manager{
		clients:   make(map[string]map[client]struct{}),
		broadcast: make(chan Event, 256),
		done:      make(chan struct{}),
		heartbeat: 25 * time.Second,
	}
}

// Run delivers queued events until Stop is called.
func (m *Manager) Run() {
	for {
		select {
		case ev := <-m.broadcast:
			m.deliver(ev)
		case <-m.done:
			return
		}
	}
}

func (m *Manager) Stop() {
	close(m.done)
}

// SendToUser queues payload as a JSON event. It never blocks; events are
// dropped when the queue is full.
func (m *Manager) SendToUser(userID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[SSE] Failed to marshal %s event: %v", event, err)
		return
	}
	select {
	case m.broadcast <- Event{UserID: userID, Name: event, Data: data}:
	default:
		log.Printf("[SSE] Queue full, dropping %s event for user %s", event, userID)
	}
}

func (m *Manager) deliver(ev Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for c := range m.clients[ev.UserID] {
		select {
		case c <- ev:
		default:
		}
	}
}

// Subscribe registers a stream for userID and returns its channel and an
// unsubscribe func.
func (m *Manager) Subscribe(userID string) (<-chan Event, func()) {
	c := make(client, 16)
	m.mu.Lock()
	set := m.clients[userID]
	if set == nil {
		set = make(map[client]struct{})
		m.clients[userID] = set
	}
	set[c] = struct{}{}
	m.mu.Unlock()

	return c, func() {
		m.mu.Lock()
		if set, ok := m.clients[userID]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(m.clients, userID)
			}
		}
		m.mu.Unlock()
	}
}

// ConnectedClients returns the number of open streams for userID.
func (m *Manager) ConnectedClients(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// ServeHTTP streams events to the caller until the request ends.
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	events, unsubscribe := m.Subscribe(userID)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	c.SSEvent("connected", gin.H{"user_id": userID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-events:
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
