package integration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Handler builds the administrative HTTP surface over the runtime. The
// routes mirror the agent registry operations: count, list,
// create-or-update, status, and a synchronous message exchange.
func (r *Runtime) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", r.handleCount)
	mux.HandleFunc("GET /agents", r.handleList)
	mux.HandleFunc("POST /agents/{name}", r.handleCreate)
	mux.HandleFunc("GET /agents/{name}/status", r.handleStatus)
	mux.HandleFunc("POST /agents/{name}/message", r.handleMessage)
	return mux
}

func (r *Runtime) handleCount(w http.ResponseWriter, req *http.Request) {
	fmt.Fprintf(w, "We have %d agents in stable storage.", r.AgentCount())
}

func (r *Runtime) handleList(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": r.ListAgents()})
}

func (r *Runtime) handleCreate(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	var body struct {
		Config map[string]any `json:"config"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if body.Config == nil {
		body.Config = map[string]any{}
	}
	if err := r.CreateAgent(name, restoreCharacter(name, body.Config), body.Config); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "created_or_updated", "name": name})
}

func (r *Runtime) handleStatus(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	info, ok := r.AgentStatus(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("agent not found"))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (r *Runtime) handleMessage(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	var body struct {
		Message string `json:"message"`
		UserID  string `json:"userId"`
		RoomID  string `json:"roomId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if _, ok := r.AgentStatus(name); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("character not found"))
		return
	}
	reply, err := r.SendMessage(req.Context(), name, body.UserID, body.RoomID, body.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reply": reply})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
