// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

// ChatEmulator implements AssistantClient over a plain chat completions
// backend, for OpenAI-compatible servers that lack the Assistants API
// (Ollama, vLLM). Threads and runs live in process memory; the tool-calling
// protocol observed by the run-loop is identical to the real service, with
// runs reaching a terminal or requires_action state synchronously.
type ChatEmulator struct {
	llm ChatCompletionClient

	mu         sync.Mutex
	assistants map[string]AssistantConfig
	threads    map[string][]ChatMessage
	runs       map[string]*emulatedRun
}

type emulatedRun struct {
	threadID    string
	assistantID string
	status      RunStatus
	toolCalls   []ToolCall
}

// NewChatEmulator creates an emulator backed by llm.
func NewChatEmulator(llm ChatCompletionClient) *ChatEmulator {
	return &ChatEmulator{
		llm:        llm,
		assistants: make(map[string]AssistantConfig),
		threads:    make(map[string][]ChatMessage),
		runs:       make(map[string]*emulatedRun),
	}
}

// CreateAssistant implements AssistantClient.CreateAssistant.
func (e *ChatEmulator) CreateAssistant(_ context.Context, cfg AssistantConfig) (string, error) {
	if cfg.Model == "" {
		return "", fmt.Errorf("model is required")
	}
	id := generateID("asst_")

	e.mu.Lock()
	e.assistants[id] = cfg
	e.mu.Unlock()
	return id, nil
}

// CreateThread implements AssistantClient.CreateThread.
func (e *ChatEmulator) CreateThread(_ context.Context) (string, error) {
	id := generateID("thread_")

	e.mu.Lock()
	e.threads[id] = []ChatMessage{}
	e.mu.Unlock()
	return id, nil
}

// AddMessage implements AssistantClient.AddMessage.
func (e *ChatEmulator) AddMessage(_ context.Context, threadID, role, content string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.threads[threadID]; !ok {
		return fmt.Errorf("thread %s not found", threadID)
	}
	e.threads[threadID] = append(e.threads[threadID], ChatMessage{Role: role, Content: content})
	return nil
}

// CreateRun implements AssistantClient.CreateRun. The completion is issued
// synchronously, so the returned run is already requires_action or terminal.
func (e *ChatEmulator) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	e.mu.Lock()
	_, ok := e.assistants[assistantID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("assistant %s not found", assistantID)
	}
	if _, ok := e.threads[threadID]; !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("thread %s not found", threadID)
	}
	run := &emulatedRun{
		threadID:    threadID,
		assistantID: assistantID,
		status:      RunStatusInProgress,
	}
	runID := generateID("run_")
	e.runs[runID] = run
	e.mu.Unlock()

	if err := e.step(ctx, runID); err != nil {
		return nil, err
	}
	return e.snapshot(runID), nil
}

// GetRun implements AssistantClient.GetRun.
func (e *ChatEmulator) GetRun(_ context.Context, _, runID string) (*Run, error) {
	run := e.snapshot(runID)
	if run == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return run, nil
}

// SubmitToolOutputs implements AssistantClient.SubmitToolOutputs. Tool
// results are appended to the thread and the completion re-issued; the
// model may request another round of tools.
func (e *ChatEmulator) SubmitToolOutputs(ctx context.Context, _, runID string, outputs []ToolOutput) (*Run, error) {
	e.mu.Lock()
	run, ok := e.runs[runID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if run.status != RunStatusRequiresAction {
		e.mu.Unlock()
		return nil, fmt.Errorf("run %s is not awaiting tool outputs (status %s)", runID, run.status)
	}
	if len(outputs) != len(run.toolCalls) {
		e.mu.Unlock()
		return nil, fmt.Errorf("expected %d tool outputs, got %d", len(run.toolCalls), len(outputs))
	}
	for _, o := range outputs {
		e.threads[run.threadID] = append(e.threads[run.threadID], ChatMessage{
			Role:       "tool",
			Content:    o.Output,
			ToolCallID: o.CallID,
		})
	}
	run.status = RunStatusInProgress
	run.toolCalls = nil
	e.mu.Unlock()

	if err := e.step(ctx, runID); err != nil {
		return nil, err
	}
	return e.snapshot(runID), nil
}

// ListMessages implements AssistantClient.ListMessages, most recent first.
// Tool traffic is internal to the emulation and not part of the log.
func (e *ChatEmulator) ListMessages(_ context.Context, threadID string, limit int) ([]ThreadMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log, ok := e.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s not found", threadID)
	}

	var messages []ThreadMessage
	for i := len(log) - 1; i >= 0; i-- {
		m := log[i]
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		if m.Content == "" {
			continue // assistant tool-call placeholders
		}
		messages = append(messages, ThreadMessage{Role: m.Role, Content: m.Content})
		if limit > 0 && len(messages) == limit {
			break
		}
	}
	return messages, nil
}

// step issues one completion for the run and applies the outcome.
func (e *ChatEmulator) step(ctx context.Context, runID string) error {
	e.mu.Lock()
	run := e.runs[runID]
	cfg := e.assistants[run.assistantID]

	messages := make([]ChatMessage, 0, len(e.threads[run.threadID])+1)
	if cfg.Instructions != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: cfg.Instructions})
	}
	messages = append(messages, e.threads[run.threadID]...)
	e.mu.Unlock()

	result, err := e.llm.CreateChatCompletion(ctx, &ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: messages,
		Tools:    cfg.Tools,
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		run.status = RunStatusFailed
		return fmt.Errorf("completion failed: %w", err)
	}

	if result.FinishReason == "tool_calls" && len(result.ToolCalls) > 0 {
		e.threads[run.threadID] = append(e.threads[run.threadID], ChatMessage{
			Role:      "assistant",
			ToolCalls: result.ToolCalls,
		})
		run.status = RunStatusRequiresAction
		run.toolCalls = result.ToolCalls
		return nil
	}

	e.threads[run.threadID] = append(e.threads[run.threadID], ChatMessage{
		Role:    "assistant",
		Content: result.Content,
	})
	run.status = RunStatusCompleted
	return nil
}

func (e *ChatEmulator) snapshot(runID string) *Run {
	e.mu.Lock()
	defer e.mu.Unlock()

	run, ok := e.runs[runID]
	if !ok {
		return nil
	}
	out := &Run{ID: runID, Status: run.status}
	out.ToolCalls = append(out.ToolCalls, run.toolCalls...)
	return out
}

func generateID(prefix string) string {
	b := make([]byte, 12)
	rand.Read(b)
	return prefix + hex.EncodeToString(b)
}
