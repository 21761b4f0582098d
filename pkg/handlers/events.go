package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"youth-cms-backend/pkg/middleware"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/utils"

	"go.uber.org/zap"
)

// EventsHandler streams change events over server-sent events.
type EventsHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewEventsHandler creates the events handler.
func NewEventsHandler(hub *realtime.Hub, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

// Stream subscribes the caller and forwards events until the connection
// drops. Organization accounts are pinned to their own organization's
// events; admins may narrow with ?table= and ?organization_id=.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteInternalServerErrorResponse(w, "Streaming not supported")
		return
	}

	filter := realtime.Filter{
		Table: utils.GetQueryParam(r, "table", ""),
	}
	if user.IsAdmin() {
		filter.OrganizationID = utils.GetQueryParam(r, "organization_id", "")
	} else {
		filter.OrganizationID = user.OrgID()
	}

	events, cancel := h.hub.Subscribe(filter)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("failed to marshal event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
