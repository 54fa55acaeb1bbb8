package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/goodjobs/internal/middleware"
	"github.com/forgo/goodjobs/internal/service"
)

// EventsHandler streams ledger events to the signed-in user
type EventsHandler struct {
	hub *service.EventHub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *service.EventHub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles GET /api/events as a Server-Sent Events stream of
// goodjob.sent, goodjob.received and heartbeat events.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	rc := http.NewResponseController(w)

	// The server write timeout would otherwise cut the stream
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := h.hub.Subscribe(userID, uuid.NewString())
	defer h.hub.Unsubscribe(userID, sub.ID)

	fmt.Fprintf(w, ": connected as user %d\n\n", userID)
	if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, ev.Format()); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
