package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerloft/treasuryd/internal/events"
	"github.com/ledgerloft/treasuryd/internal/store"
)

// emitRequest is the body for POST /v1/events/emit.
type emitRequest struct {
	Identity string `json:"identity,omitempty"`
	Topic    string `json:"topic"`
	Action   string `json:"action"`
	EntityID string `json:"entity_id,omitempty"`
	Actor    string `json:"actor,omitempty"`
	Message  string `json:"message,omitempty"`
	Amount   string `json:"amount,omitempty"`
}

// handleEmit handles POST /v1/events/emit, the glue endpoint the web app
// calls after a mutation commits.
func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	var req emitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ev := &events.Event{
		Topic:    events.Topic(req.Topic),
		Action:   events.Action(req.Action),
		EntityID: req.EntityID,
		Actor:    req.Actor,
		Message:  req.Message,
	}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
			return
		}
		ev.Amount = &amount
	}

	if err := s.AcceptEvent(r.Context(), req.Identity, ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handlePresence handles GET /v1/presence?ids=alice,bob. Identities with
// no live connection come back as offline rather than being omitted, so
// the caller can render a dot for every id it asked about.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "ids query parameter required")
		return
	}

	var ids []string
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"presence": s.registry.StatusesFor(ids),
	})
}

// handleListActivity handles GET /v1/activity with optional topic,
// actor, limit and offset query parameters.
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	filter := store.ActivityFilter{
		Topic: r.URL.Query().Get("topic"),
		Actor: r.URL.Query().Get("actor"),
		Limit: 50,
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		filter.Offset = n
	}

	activities, total, err := s.store.ListActivity(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list activity: "+err.Error())
		return
	}
	if activities == nil {
		activities = []*store.Activity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"activities": activities,
		"total":      total,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}
