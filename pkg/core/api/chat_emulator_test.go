// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"testing"
)

// scriptedLLM returns canned completion results in order and records the
// requests it saw.
type scriptedLLM struct {
	results  []*ChatCompletionResult
	err      error
	requests []*ChatCompletionRequest
}

func (s *scriptedLLM) CreateChatCompletion(_ context.Context, req *ChatCompletionRequest) (*ChatCompletionResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.requests) > len(s.results) {
		return nil, fmt.Errorf("scripted llm exhausted")
	}
	return s.results[len(s.requests)-1], nil
}

func setupEmulator(t *testing.T, llm *scriptedLLM) (*ChatEmulator, string, string) {
	t.Helper()
	e := NewChatEmulator(llm)
	ctx := context.Background()

	assistantID, err := e.CreateAssistant(ctx, AssistantConfig{
		Name:         "bot",
		Instructions: "be helpful",
		Model:        "llama3",
		Tools:        []ToolSchema{{Name: "get_price"}},
	})
	if err != nil {
		t.Fatalf("CreateAssistant: %v", err)
	}
	threadID, err := e.CreateThread(ctx)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	return e, assistantID, threadID
}

func TestEmulatorCompletesImmediately(t *testing.T) {
	llm := &scriptedLLM{results: []*ChatCompletionResult{
		{Content: "Hello!", FinishReason: "stop"},
	}}
	e, assistantID, threadID := setupEmulator(t, llm)
	ctx := context.Background()

	if err := e.AddMessage(ctx, threadID, "user", "hi"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	run, err := e.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Status != RunStatusCompleted {
		t.Fatalf("status = %s", run.Status)
	}

	// System prompt precedes the thread log.
	req := llm.requests[0]
	if req.Messages[0].Role != "system" || req.Messages[0].Content != "be helpful" {
		t.Errorf("first message = %+v", req.Messages[0])
	}
	if len(req.Tools) != 1 || req.Tools[0].Name != "get_price" {
		t.Errorf("tools = %v", req.Tools)
	}

	messages, err := e.ListMessages(ctx, threadID, 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d", len(messages))
	}
	if messages[0].Role != "assistant" || messages[0].Content != "Hello!" {
		t.Errorf("newest message = %+v", messages[0])
	}
}

func TestEmulatorToolRound(t *testing.T) {
	llm := &scriptedLLM{results: []*ChatCompletionResult{
		{FinishReason: "tool_calls", ToolCalls: []ToolCall{
			{CallID: "call_1", Name: "get_price", Arguments: `{"symbol":"AAPL"}`},
		}},
		{Content: "AAPL is at 150.", FinishReason: "stop"},
	}}
	e, assistantID, threadID := setupEmulator(t, llm)
	ctx := context.Background()

	if err := e.AddMessage(ctx, threadID, "user", "price of AAPL?"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	run, err := e.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Status != RunStatusRequiresAction {
		t.Fatalf("status = %s", run.Status)
	}
	if len(run.ToolCalls) != 1 || run.ToolCalls[0].Name != "get_price" {
		t.Fatalf("tool calls = %v", run.ToolCalls)
	}

	run, err = e.SubmitToolOutputs(ctx, threadID, run.ID, []ToolOutput{
		{CallID: "call_1", Output: `{"price":150}`},
	})
	if err != nil {
		t.Fatalf("SubmitToolOutputs: %v", err)
	}
	if run.Status != RunStatusCompleted {
		t.Fatalf("status after submit = %s", run.Status)
	}

	// Second completion sees the assistant tool-call turn and the tool result.
	second := llm.requests[1]
	var sawToolResult bool
	for _, m := range second.Messages {
		if m.Role == "tool" && m.ToolCallID == "call_1" {
			sawToolResult = true
		}
	}
	if !sawToolResult {
		t.Errorf("tool result missing from follow-up request: %+v", second.Messages)
	}

	// Tool traffic stays out of the visible log.
	messages, err := e.ListMessages(ctx, threadID, 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("len(messages) = %d, want user + final assistant", len(messages))
	}
}

func TestEmulatorSubmitValidation(t *testing.T) {
	llm := &scriptedLLM{results: []*ChatCompletionResult{
		{FinishReason: "tool_calls", ToolCalls: []ToolCall{
			{CallID: "call_1", Name: "get_price", Arguments: `{}`},
			{CallID: "call_2", Name: "get_price", Arguments: `{}`},
		}},
	}}
	e, assistantID, threadID := setupEmulator(t, llm)
	ctx := context.Background()

	run, err := e.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	// Output count must match the pending call count.
	if _, err := e.SubmitToolOutputs(ctx, threadID, run.ID, []ToolOutput{
		{CallID: "call_1", Output: `{}`},
	}); err == nil {
		t.Error("expected error for mismatched output count")
	}

	if _, err := e.SubmitToolOutputs(ctx, threadID, "run_nope", nil); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestEmulatorCompletionFailureFailsRun(t *testing.T) {
	llm := &scriptedLLM{err: fmt.Errorf("backend down")}
	e, assistantID, threadID := setupEmulator(t, llm)

	if _, err := e.CreateRun(context.Background(), threadID, assistantID); err == nil {
		t.Fatal("expected error when completion fails")
	}
}

func TestEmulatorUnknownHandles(t *testing.T) {
	e := NewChatEmulator(&scriptedLLM{})
	ctx := context.Background()

	if err := e.AddMessage(ctx, "thread_nope", "user", "hi"); err == nil {
		t.Error("expected error for unknown thread")
	}
	if _, err := e.CreateRun(ctx, "thread_nope", "asst_nope"); err == nil {
		t.Error("expected error for unknown assistant")
	}
	if _, err := e.GetRun(ctx, "", "run_nope"); err == nil {
		t.Error("expected error for unknown run")
	}
	if _, err := e.ListMessages(ctx, "thread_nope", 0); err == nil {
		t.Error("expected error for unknown thread")
	}
}
