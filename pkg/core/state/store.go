// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"time"
)

// SessionStore defines the interface for session state storage.
//
// Only an in-memory implementation ships: conversation state is deliberately
// process-local and is lost on restart. The remote assistant service keeps
// the authoritative transcript under the thread handle.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	// AppendMessage adds a transcript entry to an existing session.
	AppendMessage(ctx context.Context, sessionID string, msg Message) error
	// ListMessages returns the session transcript in chronological order.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
}

// Session represents one user's ongoing exchange with the assistant.
//
// ThreadID is the opaque remote conversation handle. It is created lazily on
// the first message and never replaced for the lifetime of the session; an
// explicit reset deletes the whole session instead.
type Session struct {
	ID          string
	AssistantID string
	ThreadID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is a locally mirrored transcript entry, kept for rendering.
// The remote message log remains authoritative.
type Message struct {
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}
