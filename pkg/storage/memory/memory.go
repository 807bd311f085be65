// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abdullahkazmii/financial-chatbot/pkg/core/state"
)

// Store is an in-memory implementation of SessionStore
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state.Session
	messages map[string][]state.Message
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		sessions: make(map[string]*state.Session),
		messages: make(map[string][]state.Message),
	}
}

// CreateSession creates a new session
func (s *Store) CreateSession(ctx context.Context, session *state.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}

	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(ctx context.Context, sessionID string) (*state.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	cp := *session
	return &cp, nil
}

// UpdateSession updates an existing session
func (s *Store) UpdateSession(ctx context.Context, session *state.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return fmt.Errorf("session %s not found", session.ID)
	}

	cp := *session
	cp.UpdatedAt = time.Now()
	s.sessions[session.ID] = &cp
	return nil
}

// DeleteSession deletes a session and its transcript
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}

// AppendMessage adds a transcript entry to an existing session
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg state.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return fmt.Errorf("session %s not found", sessionID)
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	return nil
}

// ListMessages returns the session transcript in chronological order
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]state.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.sessions[sessionID]; !exists {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	msgs := s.messages[sessionID]
	out := make([]state.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}
