// Package events implements the live-progress fan-out registry. Delivery is
// best effort: events go to subscribers connected at broadcast time and are
// never buffered for replay. The job store remains the authoritative state.
package events

import (
	"log/slog"
	"sync"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

// subscriberBuffer bounds the per-subscriber channel. A subscriber that
// cannot drain this many frames loses events instead of stalling the worker
// push path.
const subscriberBuffer = 16

// Hub maps job ids to the set of currently connected subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.JobEvent]struct{}
	logger      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan domain.JobEvent]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber for a job and returns its event
// channel plus a cancel function. Cancel is idempotent, closes the channel
// and removes the subscriber from the registry.
func (h *Hub) Subscribe(jobID string) (<-chan domain.JobEvent, func()) {
	ch := make(chan domain.JobEvent, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subscribers[jobID]
	if !ok {
		set = make(map[chan domain.JobEvent]struct{})
		h.subscribers[jobID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Subscriber added",
		slog.String("job_id", jobID),
	)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Close under the write lock so a concurrent Broadcast,
			// which sends under the read lock, can never hit a closed
			// channel.
			h.mu.Lock()
			if set, ok := h.subscribers[jobID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subscribers, jobID)
				}
			}
			close(ch)
			h.mu.Unlock()

			h.logger.Debug("Subscriber removed",
				slog.String("job_id", jobID),
			)
		})
	}

	return ch, cancel
}

// Broadcast delivers an event to every subscriber currently registered for
// the job. With no subscribers the event is dropped. Sends never block; a
// subscriber with a full buffer loses the frame.
func (h *Hub) Broadcast(jobID string, event domain.JobEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.subscribers[jobID]
	if len(set) == 0 {
		h.logger.Debug("No subscribers, event dropped",
			slog.String("job_id", jobID),
			slog.String("type", event.EventType()),
		)
		return
	}

	for ch := range set {
		select {
		case ch <- event:
		default:
			h.logger.Warn("Subscriber too slow, event dropped",
				slog.String("job_id", jobID),
				slog.String("type", event.EventType()),
			)
		}
	}
}

// SubscriberCount reports the number of open subscriptions for a job.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[jobID])
}
