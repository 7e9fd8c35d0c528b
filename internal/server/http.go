package server

import (
	"encoding/json"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, glue/operator requests must include a
// valid Authorization: Bearer <token> header. GET /v1/health is always
// exempt; the client-facing stream endpoints authenticate with their
// own JWT instead.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	handleMethod(mux, http.MethodGet, "/v1/stream", s.handleWebSocket)
	handleMethod(mux, http.MethodGet, "/v1/events/stream", s.handleEventStream)
	handleMethod(mux, http.MethodPost, "/v1/events/emit", s.handleEmit)
	handleMethod(mux, http.MethodGet, "/v1/presence", s.handlePresence)
	handleMethod(mux, http.MethodGet, "/v1/activity", s.handleListActivity)
	handleMethod(mux, http.MethodGet, "/v1/health", s.handleHealth)
	return AuthMiddleware(authToken, mux)
}

// handleMethod registers h for exactly one method on path, matching the
// behavior of Go 1.22+ ServeMux "METHOD /path" patterns on older
// toolchains: GET also accepts HEAD, and other methods get a 405 with
// an Allow header.
func handleMethod(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method && !(method == http.MethodGet && r.Method == http.MethodHead) {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.registry.Len(),
	})
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
