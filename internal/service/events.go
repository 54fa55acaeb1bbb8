package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/forgo/goodjobs/internal/model"
)

// EventType represents the type of event
type EventType string

const (
	// Ledger events
	EventGoodJobReceived EventType = "goodjob.received"
	EventGoodJobSent     EventType = "goodjob.sent"

	// System events
	EventHeartbeat EventType = "heartbeat"
)

// Event represents a server-sent event
type Event struct {
	Type   EventType   `json:"type"`
	Data   interface{} `json:"data"`
	UserID int64       `json:"-"` // Used for routing, not sent to client
}

// Format returns the SSE formatted string
func (e *Event) Format() string {
	data, _ := json.Marshal(e.Data)
	return "event: " + string(e.Type) + "\ndata: " + string(data) + "\n\n"
}

// TransferNotice is the payload of goodjob.sent and goodjob.received.
// Balance is the subscriber's own balance after the transfer.
type TransferNotice struct {
	TransferID int64  `json:"transferId"`
	GoodJobID  int64  `json:"goodJobId"`
	FromUserID int64  `json:"fromUserId"`
	ToUserID   int64  `json:"toUserId"`
	Date       string `json:"date"`
	Balance    int    `json:"balance"`
}

// Subscriber represents a connected SSE client
type Subscriber struct {
	ID     string
	UserID int64
	Events chan *Event
	Done   chan struct{}
}

// EventHub fans ledger events out to the SSE streams of the users involved
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[int64]map[string]*Subscriber // userID -> subscriberID -> subscriber
	heartbeat   *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

// NewEventHub creates a new event hub. A zero interval means 30 seconds.
func NewEventHub(heartbeat time.Duration) *EventHub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	hub := &EventHub{
		subscribers: make(map[int64]map[string]*Subscriber),
		done:        make(chan struct{}),
	}
	hub.heartbeat = time.NewTicker(heartbeat)
	go hub.sendHeartbeats()
	return hub
}

// Subscribe adds a new stream for a user
func (h *EventHub) Subscribe(userID int64, subscriberID string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{
		ID:     subscriberID,
		UserID: userID,
		Events: make(chan *Event, 100), // Buffer to prevent blocking
		Done:   make(chan struct{}),
	}

	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[string]*Subscriber)
	}
	h.subscribers[userID][subscriberID] = sub

	return sub
}

// Unsubscribe removes a subscriber
func (h *EventHub) Unsubscribe(userID int64, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userSubs, ok := h.subscribers[userID]; ok {
		if sub, ok := userSubs[subscriberID]; ok {
			close(sub.Done)
			close(sub.Events)
			delete(userSubs, subscriberID)
		}
		if len(userSubs) == 0 {
			delete(h.subscribers, userID)
		}
	}
}

// SendToUser sends an event to every stream of a user. Slow streams with a
// full buffer miss the event.
func (h *EventHub) SendToUser(userID int64, event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers[userID] {
		select {
		case sub.Events <- event:
		default:
		}
	}
}

// PublishTransfer notifies both parties of a completed transfer
func (h *EventHub) PublishTransfer(t *model.Transfer) {
	notice := func(balance int) TransferNotice {
		return TransferNotice{
			TransferID: t.ID,
			GoodJobID:  t.GoodJobID,
			FromUserID: t.FromUserID,
			ToUserID:   t.ToUserID,
			Date:       model.FormatTimestamp(t.Date),
			Balance:    balance,
		}
	}
	h.SendToUser(t.FromUserID, &Event{Type: EventGoodJobSent, UserID: t.FromUserID, Data: notice(t.BalanceAfterFrom)})
	h.SendToUser(t.ToUserID, &Event{Type: EventGoodJobReceived, UserID: t.ToUserID, Data: notice(t.BalanceAfterTo)})
}

// sendHeartbeats keeps idle streams from being closed by proxies
func (h *EventHub) sendHeartbeats() {
	for {
		select {
		case <-h.heartbeat.C:
			event := &Event{
				Type: EventHeartbeat,
				Data: map[string]string{
					"timestamp": model.FormatTimestamp(time.Now()),
				},
			}
			h.mu.RLock()
			for _, userSubs := range h.subscribers {
				for _, sub := range userSubs {
					select {
					case sub.Events <- event:
					default:
					}
				}
			}
			h.mu.RUnlock()
		case <-h.done:
			return
		}
	}
}

// Close stops the hub and ends every stream
func (h *EventHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.heartbeat.Stop()

		h.mu.Lock()
		defer h.mu.Unlock()

		for userID, userSubs := range h.subscribers {
			for _, sub := range userSubs {
				close(sub.Done)
				close(sub.Events)
			}
			delete(h.subscribers, userID)
		}
	})
}

// SubscriberCount returns the number of open streams for a user
func (h *EventHub) SubscriberCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
