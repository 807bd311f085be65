// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package api abstracts the remote assistant service consumed by the core
// run-loop: assistant provisioning, threads, messages, runs and tool output
// submission. Two backends implement it: the OpenAI Assistants API and a
// chat-completions emulation for backends without it.
package api

import "context"

// RunStatus is the remote service's vocabulary for run state.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
)

// Run is one in-flight attempt to advance a thread after a user message.
// ToolCalls is populated only while Status is requires_action.
type Run struct {
	ID        string
	Status    RunStatus
	ToolCalls []ToolCall
}

// ToolCall is a request from the remote assistant to execute one named
// local function. Arguments is the raw JSON payload.
type ToolCall struct {
	CallID    string
	Name      string
	Arguments string
}

// ToolOutput carries one tool result back to the remote service. Output is
// always a valid JSON document (the payload or {"error": msg}) and CallID
// echoes the originating call unchanged.
type ToolOutput struct {
	CallID string
	Output string
}

// ThreadMessage is one entry of a thread's remote message log.
type ThreadMessage struct {
	Role    string // "user" or "assistant"
	Content string
}

// ToolSchema declares one callable function to the remote service.
// Parameters is a JSON-schema-shaped object description.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// AssistantConfig describes the assistant to provision.
type AssistantConfig struct {
	Name         string
	Instructions string
	Model        string
	Tools        []ToolSchema
}

// AssistantClient is the remote assistant service consumed by the run-loop.
// ListMessages returns the thread's log most recent first.
type AssistantClient interface {
	CreateAssistant(ctx context.Context, cfg AssistantConfig) (string, error)
	CreateThread(ctx context.Context) (string, error)
	AddMessage(ctx context.Context, threadID, role, content string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error)
	ListMessages(ctx context.Context, threadID string, limit int) ([]ThreadMessage, error)
}
