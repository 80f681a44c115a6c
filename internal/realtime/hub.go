// Package realtime fans out project events to subscribers keyed by project
// id. Delivery is best-effort: a subscriber that falls behind misses events
// rather than blocking the publisher.
package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freelance-tracker/internal/logger"
	"freelance-tracker/internal/metrics"
)

const defaultBuffer = 16

type Event struct {
	Type      string                 `json:"type"`
	ProjectID string                 `json:"project_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	At        time.Time              `json:"at"`
}

// Publisher is what mutating operations need from the hub.
type Publisher interface {
	PublishProjectEvent(projectID uuid.UUID, event string, payload map[string]interface{})
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	buffer int
	log    *zap.Logger
}

var _ Publisher = (*Hub)(nil)

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer: defaultBuffer,
		log:    logger.OrNop(log),
	}
}

type Subscription struct {
	hub       *Hub
	projectID uuid.UUID
	ch        chan Event
	once      sync.Once
}

// Subscribe registers interest in projectID. Callers must Close the
// subscription when the consumer disconnects.
func (h *Hub) Subscribe(projectID uuid.UUID) *Subscription {
	sub := &Subscription{
		hub:       h,
		projectID: projectID,
		ch:        make(chan Event, h.buffer),
	}

	h.mu.Lock()
	if h.subs[projectID] == nil {
		h.subs[projectID] = make(map[*Subscription]struct{})
	}
	h.subs[projectID][sub] = struct{}{}
	h.mu.Unlock()

	metrics.SubscriberOpened()
	return sub
}

func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) ProjectID() uuid.UUID { return s.projectID }

// Close unsubscribes and closes the event channel. Safe to call repeatedly.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if subs, ok := h.subs[s.projectID]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.subs, s.projectID)
			}
		}
		close(s.ch)
		h.mu.Unlock()
		metrics.SubscriberClosed()
	})
}

func (h *Hub) PublishProjectEvent(projectID uuid.UUID, event string, payload map[string]interface{}) {
	ev := Event{
		Type:      event,
		ProjectID: projectID.String(),
		Payload:   payload,
		At:        time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[projectID] {
		select {
		case sub.ch <- ev:
		default:
			h.log.Debug("dropping realtime event for slow subscriber",
				zap.String("project_id", ev.ProjectID),
				zap.String("event", event),
			)
		}
	}
}

// Subscribers reports the number of open subscriptions for projectID.
func (h *Hub) Subscribers(projectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[projectID])
}

// CloseAll ends every open subscription. Used on server shutdown so that
// long-lived streams return.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Subscription
	for _, subs := range h.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range all {
		sub.Close()
	}
}
