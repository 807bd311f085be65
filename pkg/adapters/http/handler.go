// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package http exposes the chatbot over a JSON HTTP API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abdullahkazmii/financial-chatbot/pkg/core/advisor"
	"github.com/abdullahkazmii/financial-chatbot/pkg/core/state"
	"github.com/abdullahkazmii/financial-chatbot/pkg/marketdata"
	"github.com/abdullahkazmii/financial-chatbot/pkg/observability/logging"
	"github.com/abdullahkazmii/financial-chatbot/pkg/speech"
)

// Handler routes API requests to the chatbot services.
type Handler struct {
	advisor *advisor.Advisor
	store   state.SessionStore
	market  *marketdata.Service
	speech  *speech.Service
	logger  *logging.Logger

	// sessionLocks serializes chat turns per session. Two concurrent turns
	// on the same thread would race on the remote run.
	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// NewHandler creates a new API handler.
func NewHandler(adv *advisor.Advisor, store state.SessionStore, market *marketdata.Service, sp *speech.Service, logger *logging.Logger) *Handler {
	return &Handler{
		advisor:      adv,
		store:        store,
		market:       market,
		speech:       sp,
		logger:       logger,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

// RegisterRoutes registers all API routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /v1/chat", h.handleChat)
	mux.HandleFunc("GET /v1/sessions/{id}/messages", h.handleListMessages)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.handleDeleteSession)
	mux.HandleFunc("GET /v1/market/quote/{symbol}", h.handleQuote)
	mux.HandleFunc("GET /v1/market/overview", h.handleOverview)
	mux.HandleFunc("POST /v1/speech", h.handleSpeech)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// handleChat runs one conversation turn. An omitted session_id starts a new
// session. Failures while driving the run surface as an "Error: ..." reply
// rather than an HTTP error, so the conversation stays usable.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	ctx := r.Context()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		now := time.Now()
		sess := &state.Session{
			ID:          sessionID,
			AssistantID: h.advisor.AssistantID(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := h.store.CreateSession(ctx, sess); err != nil {
			h.logger.Error("failed to create session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
			return
		}
	}

	lock := h.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "session "+sessionID+" not found")
		return
	}

	reply, err := h.advisor.Advance(ctx, sess, req.Message)
	if err != nil {
		h.logger.Error("chat turn failed", "session_id", sessionID, "error", err)
		reply = "Error: " + err.Error()
	}

	if err := h.store.UpdateSession(ctx, sess); err != nil {
		h.logger.Error("failed to update session", "session_id", sessionID, "error", err)
	}
	h.appendTranscript(r, sessionID, "user", req.Message)
	h.appendTranscript(r, sessionID, "assistant", reply)

	writeJSON(w, http.StatusOK, chatResponse{SessionID: sessionID, Reply: reply})
}

func (h *Handler) appendTranscript(r *http.Request, sessionID, role, content string) {
	err := h.store.AppendMessage(r.Context(), sessionID, state.Message{
		Role:    role,
		Content: content,
	})
	if err != nil {
		h.logger.Error("failed to append transcript", "session_id", sessionID, "error", err)
	}
}

type messageView struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	messages, err := h.store.ListMessages(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "session "+sessionID+" not found")
		return
	}

	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, messageView{Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   views,
	})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if err := h.store.DeleteSession(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to delete session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete session")
		return
	}

	h.mu.Lock()
	delete(h.sessionLocks, sessionID)
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	quote, err := h.market.Quote(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.market.Overview(r.Context()))
}

type speechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func (h *Handler) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	audio, err := h.speech.Synthesize(r.Context(), req.Text, req.Voice)
	if err != nil {
		if errors.Is(err, speech.ErrUnknownVoice) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

func (h *Handler) sessionLock(sessionID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	lock, ok := h.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		h.sessionLocks[sessionID] = lock
	}
	return lock
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}
