// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ChatMessage is a chat-completions message in our own vocabulary.
type ChatMessage struct {
	Role       string // "system", "user", "assistant", "tool"
	Content    string
	ToolCallID string     // for role "tool"
	ToolCalls  []ToolCall // for assistant messages that request tools
}

// ChatCompletionRequest is a request to an OpenAI-compatible chat backend.
type ChatCompletionRequest struct {
	Model    string
	Messages []ChatMessage
	Tools    []ToolSchema
}

// ChatCompletionResult is the single choice the emulator consumes.
type ChatCompletionResult struct {
	Content      string
	FinishReason string
	ToolCalls    []ToolCall
}

// ChatCompletionClient calls an OpenAI-compatible chat completions backend.
type ChatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResult, error)
}

// OpenAIChatClient implements ChatCompletionClient using the official OpenAI
// Go SDK. Supports OpenAI, Ollama, vLLM, and other compatible backends.
type OpenAIChatClient struct {
	client openai.Client
}

// NewOpenAIChatClient creates a new chat completions client. The baseURL
// parameter allows connecting to OpenAI-compatible backends like Ollama.
func NewOpenAIChatClient(baseURL, apiKey string) *OpenAIChatClient {
	opts := []option.RequestOption{}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		// Local backends like Ollama accept any key
		opts = append(opts, option.WithAPIKey("dummy"))
	}

	return &OpenAIChatClient{
		client: openai.NewClient(opts...),
	}
}

// convertChatMessages converts our message types to OpenAI SDK message params
func convertChatMessages(messages []ChatMessage) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			result = append(result, openai.SystemMessage(msg.Content))
		case "user":
			result = append(result, openai.UserMessage(msg.Content))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
				for _, tc := range msg.ToolCalls {
					toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
						ID: tc.CallID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					})
				}
				assistantMsg := &openai.ChatCompletionAssistantMessageParam{
					ToolCalls: toolCalls,
				}
				if msg.Content != "" {
					assistantMsg.Content.OfString = openai.String(msg.Content)
				}
				result = append(result, openai.ChatCompletionMessageParamUnion{
					OfAssistant: assistantMsg,
				})
			} else {
				result = append(result, openai.AssistantMessage(msg.Content))
			}
		case "tool":
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}
	return result, nil
}

// buildChatParams constructs SDK params from a ChatCompletionRequest
func buildChatParams(req *ChatCompletionRequest, messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			funcDef := shared.FunctionDefinitionParam{
				Name: t.Name,
			}
			if t.Description != "" {
				funcDef.Description = openai.String(t.Description)
			}
			if t.Parameters != nil {
				funcDef.Parameters = shared.FunctionParameters(t.Parameters)
			}
			tools = append(tools, openai.ChatCompletionToolParam{
				Function: funcDef,
			})
		}
		params.Tools = tools
	}

	return params
}

// CreateChatCompletion implements ChatCompletionClient.CreateChatCompletion
func (c *OpenAIChatClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResult, error) {
	messages, err := convertChatMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := buildChatParams(req, messages)

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("backend returned no choices")
	}

	choice := completion.Choices[0]
	result := &ChatCompletionResult{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			CallID:    tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result, nil
}
