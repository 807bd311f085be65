// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package advisor drives conversations with the remote assistant service.
// It owns the run-loop: create a run for each user message, poll it, execute
// requested tools, submit their outputs, and extract the final reply once
// the run completes.
package advisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abdullahkazmii/financial-chatbot/pkg/core/api"
	"github.com/abdullahkazmii/financial-chatbot/pkg/core/config"
	"github.com/abdullahkazmii/financial-chatbot/pkg/core/state"
	"github.com/abdullahkazmii/financial-chatbot/pkg/observability/logging"
	"github.com/abdullahkazmii/financial-chatbot/pkg/tools"
)

// Advisor is the conversational core. One Advisor serves all sessions; each
// session maps to its own remote thread.
type Advisor struct {
	client api.AssistantClient
	tools  *tools.Registry
	logger *logging.Logger

	name         string
	instructions string
	model        string
	pollInterval time.Duration
	maxPolls     int

	mu          sync.Mutex
	assistantID string
}

// New creates an Advisor. Call EnsureAssistant before Advance.
func New(client api.AssistantClient, reg *tools.Registry, cfg config.AssistantConfig, logger *logging.Logger) *Advisor {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	maxPolls := cfg.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 120
	}
	return &Advisor{
		client:       client,
		tools:        reg,
		logger:       logger,
		name:         cfg.Name,
		instructions: cfg.Instructions,
		model:        cfg.Model,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

// EnsureAssistant provisions the remote assistant with the registered tool
// schemas. Safe to call more than once; only the first call provisions.
func (a *Advisor) EnsureAssistant(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.assistantID != "" {
		return nil
	}

	id, err := a.client.CreateAssistant(ctx, api.AssistantConfig{
		Name:         a.name,
		Instructions: a.instructions,
		Model:        a.model,
		Tools:        a.tools.Schemas(),
	})
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	a.assistantID = id
	a.logger.Info("assistant provisioned", "assistant_id", id, "model", a.model)
	return nil
}

// AssistantID returns the provisioned assistant ID, empty before
// EnsureAssistant succeeds.
func (a *Advisor) AssistantID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.assistantID
}

// Advance appends userMessage to the session's thread, drives a run to a
// terminal state and returns the assistant's reply. The session's thread is
// created lazily on its first message; sess.ThreadID is updated in place and
// the caller is responsible for persisting it.
//
// The caller must not run two Advances concurrently for the same session.
func (a *Advisor) Advance(ctx context.Context, sess *state.Session, userMessage string) (string, error) {
	assistantID := a.AssistantID()
	if assistantID == "" {
		return "", fmt.Errorf("assistant not provisioned")
	}
	if userMessage == "" {
		return "", fmt.Errorf("message is required")
	}

	if sess.ThreadID == "" {
		threadID, err := a.client.CreateThread(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to create thread: %w", err)
		}
		sess.ThreadID = threadID
		a.logger.Debug("thread created", "session_id", sess.ID, "thread_id", threadID)
	}

	if err := a.client.AddMessage(ctx, sess.ThreadID, "user", userMessage); err != nil {
		return "", fmt.Errorf("failed to add message: %w", err)
	}

	run, err := a.client.CreateRun(ctx, sess.ThreadID, assistantID)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	a.logger.Debug("run created", "session_id", sess.ID, "run_id", run.ID)

	polls := 0
	for {
		switch next(run.Status, len(run.ToolCalls) > 0) {
		case actionWait:
			polls++
			if polls > a.maxPolls {
				return "", fmt.Errorf("run %s still %s after %d polls", run.ID, run.Status, a.maxPolls)
			}
			if err := sleepCtx(ctx, a.pollInterval); err != nil {
				return "", err
			}
			run, err = a.client.GetRun(ctx, sess.ThreadID, run.ID)
			if err != nil {
				return "", fmt.Errorf("failed to poll run: %w", err)
			}

		case actionExecuteTools:
			outputs := a.executeTools(ctx, run.ToolCalls)
			run, err = a.client.SubmitToolOutputs(ctx, sess.ThreadID, run.ID, outputs)
			if err != nil {
				return "", fmt.Errorf("failed to submit tool outputs: %w", err)
			}

		case actionReturnText:
			return a.finalReply(ctx, sess.ThreadID)

		case actionFail:
			return "", fmt.Errorf("run %s ended with status %s", run.ID, run.Status)
		}
	}
}

// executeTools runs every requested call through the tool registry. Dispatch
// contains all failures in its JSON result, so the output count always
// matches the call count.
func (a *Advisor) executeTools(ctx context.Context, calls []api.ToolCall) []api.ToolOutput {
	outputs := make([]api.ToolOutput, 0, len(calls))
	for _, call := range calls {
		a.logger.Debug("executing tool", "tool", call.Name, "call_id", call.CallID)
		outputs = append(outputs, api.ToolOutput{
			CallID: call.CallID,
			Output: a.tools.Dispatch(ctx, call.Name, call.Arguments),
		})
	}
	return outputs
}

// finalReply returns the newest assistant-authored message on the thread.
func (a *Advisor) finalReply(ctx context.Context, threadID string) (string, error) {
	messages, err := a.client.ListMessages(ctx, threadID, 10)
	if err != nil {
		return "", fmt.Errorf("failed to list messages: %w", err)
	}
	for _, m := range messages {
		if m.Role == "assistant" && m.Content != "" {
			return m.Content, nil
		}
	}
	return "", fmt.Errorf("run completed but no assistant message found")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
