// Package realtime fans out store mutations to live subscribers. A
// subscriber never receives a diff: each delivery is a signal to re-read the
// full snapshot, which keeps deliveries idempotent and makes out-of-order
// notification harmless.
package realtime

import (
	"sync"

	"github.com/rawkintrevo/agent-lab-ui/pkg/logger"
	"github.com/rawkintrevo/agent-lab-ui/pkg/telemetry"
)

type topic struct {
	ChatID    string
	MessageID string // empty for chat-level message subscriptions
}

type subscription struct {
	fn   func()
	tick chan struct{}
	stop chan struct{}
	once sync.Once
}

// run pumps coalesced ticks into the callback until cancelled. The stop
// check both in the select and after wake-up guarantees no delivery runs
// after cancel returns observable effects.
func (s *subscription) run() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.tick:
			select {
			case <-s.stop:
				return
			default:
			}
			s.fn()
		}
	}
}

func (s *subscription) notify() {
	select {
	case s.tick <- struct{}{}:
	default:
		// a tick is already pending; the next delivery reads fresh state
	}
}

func (s *subscription) cancel() {
	s.once.Do(func() {
		close(s.stop)
		telemetry.SubscriptionsOpen.Dec()
	})
}

// Hub is the in-process subscription registry. One Hub serves the whole
// store; topics are keyed by chat id (message-collection subscriptions) and
// by (chat id, message id) (event sub-stream subscriptions).
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[topic]map[uint64]*subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[topic]map[uint64]*subscription)}
}

// SubscribeMessages registers fn for every mutation of the chat's message
// collection. fn runs on a dedicated goroutine, is invoked once immediately
// so a new subscriber observes current state, and never runs again after the
// returned cancel func is called. Cancel is idempotent.
func (h *Hub) SubscribeMessages(chatID string, fn func()) (cancel func()) {
	return h.subscribe(topic{ChatID: chatID}, fn)
}

// SubscribeEvents registers fn for every appended event of one message.
func (h *Hub) SubscribeEvents(chatID, messageID string, fn func()) (cancel func()) {
	return h.subscribe(topic{ChatID: chatID, MessageID: messageID}, fn)
}

func (h *Hub) subscribe(t topic, fn func()) func() {
	s := &subscription{fn: fn, tick: make(chan struct{}, 1), stop: make(chan struct{})}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[t] == nil {
		h.subs[t] = make(map[uint64]*subscription)
	}
	h.subs[t][id] = s
	h.mu.Unlock()

	telemetry.SubscriptionsOpen.Inc()
	go s.run()
	s.notify() // initial snapshot delivery

	return func() {
		h.mu.Lock()
		if m, ok := h.subs[t]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(h.subs, t)
			}
		}
		h.mu.Unlock()
		s.cancel()
	}
}

// NotifyMessages wakes every subscriber of the chat's message collection.
func (h *Hub) NotifyMessages(chatID string) {
	h.fanout(topic{ChatID: chatID})
}

// NotifyEvents wakes every subscriber of one message's event stream.
func (h *Hub) NotifyEvents(chatID, messageID string) {
	h.fanout(topic{ChatID: chatID, MessageID: messageID})
}

func (h *Hub) fanout(t topic) {
	h.mu.Lock()
	targets := make([]*subscription, 0, len(h.subs[t]))
	for _, s := range h.subs[t] {
		targets = append(targets, s)
	}
	h.mu.Unlock()
	if len(targets) > 0 {
		logger.Debug("fanout_notify", "chat", t.ChatID, "msg", t.MessageID, "subs", len(targets))
	}
	for _, s := range targets {
		s.notify()
	}
	telemetry.SnapshotsDelivered.Add(float64(len(targets)))
}

// OpenTopics reports how many topics currently have live subscribers.
func (h *Hub) OpenTopics() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
