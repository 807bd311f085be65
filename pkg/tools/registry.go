// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools holds the local functions the remote assistant can invoke
// and the dispatch layer that executes them. Dispatch never fails: every
// outcome, including unknown tools and bad arguments, is rendered as a JSON
// document so the run-loop always has an output to submit.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/abdullahkazmii/financial-chatbot/pkg/core/api"
)

// Handler executes one tool invocation. The returned value is marshalled to
// JSON; a non-nil error is rendered as {"error": message}.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool pairs a handler with the schema advertised to the remote service.
type Tool struct {
	Schema  api.ToolSchema
	Handler Handler
}

// Registry maps tool names to handlers.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice is a programming
// error and panics.
func (r *Registry) Register(t Tool) {
	if t.Schema.Name == "" {
		panic("tools: Register with empty name")
	}
	if t.Handler == nil {
		panic("tools: Register with nil handler for " + t.Schema.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[t.Schema.Name]; dup {
		panic("tools: Register called twice for " + t.Schema.Name)
	}
	r.tools[t.Schema.Name] = t
}

// Schemas returns the schemas of all registered tools, sorted by name so the
// advertised set is deterministic.
func (r *Registry) Schemas() []api.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]api.ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		schemas = append(schemas, t.Schema)
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas
}

// Dispatch executes the named tool with the raw JSON arguments and returns
// the result as a JSON string. Failures are contained: the error surfaces in
// the returned document, never as a Go error, so a misbehaving tool cannot
// strand the run.
func (r *Registry) Dispatch(ctx context.Context, name, rawArgs string) string {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return `{"error": "Function not implemented"}`
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return errorJSON(fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
	}

	result, err := t.Handler(ctx, args)
	if err != nil {
		return errorJSON(err.Error())
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorJSON(fmt.Sprintf("failed to encode %s result: %v", name, err))
	}
	return string(data)
}

func errorJSON(msg string) string {
	data, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return `{"error": "internal error"}`
	}
	return string(data)
}
