package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nithinknkr/TeamSync/logging"
	"github.com/nithinknkr/TeamSync/middleware"
	"github.com/nithinknkr/TeamSync/realtime"
	"github.com/nithinknkr/TeamSync/services"

	"github.com/gorilla/mux"
)

// EventsHandler streams chat events for one project over SSE. Connecting is
// how a client joins the project topic; a dropped connection simply
// resubscribes and re-fetches missed messages over REST.
type EventsHandler struct {
	Chat *services.ChatService
	Hub  *realtime.Hub
}

func NewEventsHandler(chat *services.ChatService, hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{Chat: chat, Hub: hub}
}

// Stream handles GET /projects/{projectId}/chat/events.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	projectID := mux.Vars(r)["projectId"]

	if err := h.Chat.RequireMembership(r.Context(), userID, projectID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := h.Hub.Subscribe(projectID)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event.Data)
			if err != nil {
				logging.Logger.Warnf("Event ID: SSE_MARSHAL_FAILED, Description: failed to marshal %s event for project %s: %v", event.Type, projectID, err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
