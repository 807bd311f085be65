// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
)

// MockAssistantClient is a scripted implementation for testing. Each call
// that returns a Run pops the next entry from Script, and every interaction
// is recorded so tests can assert on the exact protocol traffic.
type MockAssistantClient struct {
	// Script is the sequence of runs returned by CreateRun, GetRun and
	// SubmitToolOutputs, in order.
	Script []*Run
	// Messages is returned by ListMessages (most recent first).
	Messages []ThreadMessage

	// Error injection, per method.
	CreateAssistantErr error
	CreateThreadErr    error
	AddMessageErr      error
	RunErr             error
	ListMessagesErr    error

	// Recorded traffic.
	CreatedThreads   int
	AddedMessages    []ThreadMessage
	SubmittedOutputs [][]ToolOutput
	GetRunCalls      int

	scriptPos int
}

// CreateAssistant implements AssistantClient.CreateAssistant.
func (m *MockAssistantClient) CreateAssistant(_ context.Context, _ AssistantConfig) (string, error) {
	if m.CreateAssistantErr != nil {
		return "", m.CreateAssistantErr
	}
	return "asst_mock", nil
}

// CreateThread implements AssistantClient.CreateThread.
func (m *MockAssistantClient) CreateThread(_ context.Context) (string, error) {
	if m.CreateThreadErr != nil {
		return "", m.CreateThreadErr
	}
	m.CreatedThreads++
	return fmt.Sprintf("thread_mock_%d", m.CreatedThreads), nil
}

// AddMessage implements AssistantClient.AddMessage.
func (m *MockAssistantClient) AddMessage(_ context.Context, _, role, content string) error {
	if m.AddMessageErr != nil {
		return m.AddMessageErr
	}
	m.AddedMessages = append(m.AddedMessages, ThreadMessage{Role: role, Content: content})
	return nil
}

// CreateRun implements AssistantClient.CreateRun.
func (m *MockAssistantClient) CreateRun(_ context.Context, _, _ string) (*Run, error) {
	if m.RunErr != nil {
		return nil, m.RunErr
	}
	return m.next()
}

// GetRun implements AssistantClient.GetRun.
func (m *MockAssistantClient) GetRun(_ context.Context, _, _ string) (*Run, error) {
	if m.RunErr != nil {
		return nil, m.RunErr
	}
	m.GetRunCalls++
	return m.next()
}

// SubmitToolOutputs implements AssistantClient.SubmitToolOutputs.
func (m *MockAssistantClient) SubmitToolOutputs(_ context.Context, _, _ string, outputs []ToolOutput) (*Run, error) {
	if m.RunErr != nil {
		return nil, m.RunErr
	}
	recorded := make([]ToolOutput, len(outputs))
	copy(recorded, outputs)
	m.SubmittedOutputs = append(m.SubmittedOutputs, recorded)
	return m.next()
}

// ListMessages implements AssistantClient.ListMessages.
func (m *MockAssistantClient) ListMessages(_ context.Context, _ string, limit int) ([]ThreadMessage, error) {
	if m.ListMessagesErr != nil {
		return nil, m.ListMessagesErr
	}
	if limit > 0 && limit < len(m.Messages) {
		return m.Messages[:limit], nil
	}
	return m.Messages, nil
}

func (m *MockAssistantClient) next() (*Run, error) {
	if m.scriptPos >= len(m.Script) {
		return nil, fmt.Errorf("mock script exhausted after %d runs", len(m.Script))
	}
	run := m.Script[m.scriptPos]
	m.scriptPos++
	return run, nil
}
