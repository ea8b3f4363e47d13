package api

import "sync"

// EventType identifies a broadcast event's category.
type EventType string

const (
	// EventTypeProgress reports one comparison trace finishing replay.
	EventTypeProgress EventType = "progress"
	// EventTypeResult reports a run's final ranked report.
	EventTypeResult EventType = "result"
	// EventTypeError reports a run failing before completion.
	EventTypeError EventType = "error"
)

// BroadcastEvent is sent to every subscribed WebSocket client whose filters match.
type BroadcastEvent struct {
	Type  EventType              `json:"type"`
	RunID string                 `json:"runId"`
	Data  map[string]interface{} `json:"data"`
}

// Subscription is one client's filtered view of the broadcast stream.
type Subscription struct {
	RunID      string
	EventTypes map[EventType]bool
	Channel    chan BroadcastEvent
}

// Broadcaster fans out simulation-progress events to every subscribed
// WebSocket client via a single internal goroutine, so that registration,
// unregistration, and delivery never race each other.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[*Subscription]bool
	broadcast     chan BroadcastEvent
	register      chan *Subscription
	unregister    chan *Subscription
	done          chan struct{}
}

// NewBroadcaster creates and starts a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subscriptions: make(map[*Subscription]bool),
		broadcast:     make(chan BroadcastEvent, 256),
		register:      make(chan *Subscription),
		unregister:    make(chan *Subscription),
		done:          make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.subscriptions[sub] = true
			b.mu.Unlock()

		case sub := <-b.unregister:
			b.mu.Lock()
			if b.subscriptions[sub] {
				delete(b.subscriptions, sub)
				close(sub.Channel)
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for sub := range b.subscriptions {
				if sub.RunID != "" && sub.RunID != event.RunID {
					continue
				}
				if len(sub.EventTypes) > 0 && !sub.EventTypes[event.Type] {
					continue
				}
				select {
				case sub.Channel <- event:
				default:
					// client too slow, drop this event rather than block the broadcaster
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for sub := range b.subscriptions {
				close(sub.Channel)
			}
			b.subscriptions = make(map[*Subscription]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe creates a new subscription. runID filters to one run's events
// (empty = all runs); eventTypes filters by type (empty = all types).
func (b *Broadcaster) Subscribe(runID string, eventTypes []EventType) *Subscription {
	eventTypeMap := make(map[EventType]bool)
	for _, et := range eventTypes {
		eventTypeMap[et] = true
	}
	sub := &Subscription{
		RunID:      runID,
		EventTypes: eventTypeMap,
		Channel:    make(chan BroadcastEvent, 64),
	}
	b.register <- sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.unregister <- sub
}

// Broadcast sends an event to all matching subscriptions, dropping it if the
// broadcaster's internal queue is full.
func (b *Broadcaster) Broadcast(event BroadcastEvent) {
	select {
	case b.broadcast <- event:
	default:
	}
}

// BroadcastProgress announces that one comparison trace has finished replay.
func (b *Broadcaster) BroadcastProgress(runID, traceName string, hits, misses uint64) {
	b.Broadcast(BroadcastEvent{
		Type:  EventTypeProgress,
		RunID: runID,
		Data: map[string]interface{}{
			"trace":  traceName,
			"hits":   hits,
			"misses": misses,
		},
	})
}

// BroadcastResult announces a run's completed, ranked report.
func (b *Broadcaster) BroadcastResult(runID string, report interface{}) {
	b.Broadcast(BroadcastEvent{
		Type:  EventTypeResult,
		RunID: runID,
		Data:  map[string]interface{}{"report": report},
	})
}

// BroadcastError announces a run failing before completion.
func (b *Broadcaster) BroadcastError(runID, message string) {
	b.Broadcast(BroadcastEvent{
		Type:  EventTypeError,
		RunID: runID,
		Data:  map[string]interface{}{"message": message},
	})
}

// Close shuts down the broadcaster and closes all subscriptions.
func (b *Broadcaster) Close() {
	close(b.done)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
