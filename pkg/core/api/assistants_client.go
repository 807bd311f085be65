// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// OpenAIAssistantsClient implements AssistantClient against the OpenAI
// Assistants API (v2) using net/http.
type OpenAIAssistantsClient struct {
	baseURL    string // e.g. "https://api.openai.com/v1"
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIAssistantsClient creates a new Assistants API client.
// baseURL should include the /v1 prefix; empty defaults to the OpenAI API.
func NewOpenAIAssistantsClient(baseURL, apiKey string) *OpenAIAssistantsClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIAssistantsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateAssistant implements AssistantClient.CreateAssistant.
func (c *OpenAIAssistantsClient) CreateAssistant(ctx context.Context, cfg AssistantConfig) (string, error) {
	tools := make([]map[string]any, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}}
		}
		tools = append(tools, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  params,
			},
		})
	}

	var created struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/assistants", map[string]any{
		"name":         cfg.Name,
		"instructions": cfg.Instructions,
		"model":        cfg.Model,
		"tools":        tools,
	}, &created)
	if err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	return created.ID, nil
}

// CreateThread implements AssistantClient.CreateThread.
func (c *OpenAIAssistantsClient) CreateThread(ctx context.Context) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &created); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return created.ID, nil
}

// AddMessage implements AssistantClient.AddMessage.
func (c *OpenAIAssistantsClient) AddMessage(ctx context.Context, threadID, role, content string) error {
	err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", map[string]any{
		"role":    role,
		"content": content,
	}, nil)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}

// CreateRun implements AssistantClient.CreateRun.
func (c *OpenAIAssistantsClient) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	var run wireRun
	err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", map[string]any{
		"assistant_id": assistantID,
	}, &run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run.toRun(), nil
}

// GetRun implements AssistantClient.GetRun.
func (c *OpenAIAssistantsClient) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run wireRun
	err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &run)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run.toRun(), nil
}

// SubmitToolOutputs implements AssistantClient.SubmitToolOutputs.
func (c *OpenAIAssistantsClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	wireOutputs := make([]map[string]string, 0, len(outputs))
	for _, o := range outputs {
		wireOutputs = append(wireOutputs, map[string]string{
			"tool_call_id": o.CallID,
			"output":       o.Output,
		})
	}

	var run wireRun
	err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", map[string]any{
		"tool_outputs": wireOutputs,
	}, &run)
	if err != nil {
		return nil, fmt.Errorf("submit tool outputs: %w", err)
	}
	return run.toRun(), nil
}

// ListMessages implements AssistantClient.ListMessages. The Assistants API
// returns messages most recent first with order=desc.
func (c *OpenAIAssistantsClient) ListMessages(ctx context.Context, threadID string, limit int) ([]ThreadMessage, error) {
	path := "/threads/" + threadID + "/messages?order=desc"
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}

	var list struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]ThreadMessage, 0, len(list.Data))
	for _, m := range list.Data {
		var sb strings.Builder
		for _, part := range m.Content {
			if part.Type == "text" {
				sb.WriteString(part.Text.Value)
			}
		}
		messages = append(messages, ThreadMessage{Role: m.Role, Content: sb.String()})
	}
	return messages, nil
}

// do sends one JSON request and decodes the response into out (if non-nil).
func (c *OpenAIAssistantsClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// wireRun is the Assistants API run object, reduced to the fields the
// run-loop consumes.
type wireRun struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	RequiredAction *struct {
		Type              string `json:"type"`
		SubmitToolOutputs struct {
			ToolCalls []struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"submit_tool_outputs"`
	} `json:"required_action"`
}

func (w *wireRun) toRun() *Run {
	run := &Run{
		ID:     w.ID,
		Status: RunStatus(w.Status),
	}
	if w.RequiredAction != nil {
		for _, tc := range w.RequiredAction.SubmitToolOutputs.ToolCalls {
			run.ToolCalls = append(run.ToolCalls, ToolCall{
				CallID:    tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	return run
}
