// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abdullahkazmii/financial-chatbot/pkg/core/advisor"
	"github.com/abdullahkazmii/financial-chatbot/pkg/core/api"
	"github.com/abdullahkazmii/financial-chatbot/pkg/core/config"
	"github.com/abdullahkazmii/financial-chatbot/pkg/marketdata"
	"github.com/abdullahkazmii/financial-chatbot/pkg/observability/logging"
	"github.com/abdullahkazmii/financial-chatbot/pkg/speech"
	"github.com/abdullahkazmii/financial-chatbot/pkg/storage/memory"
	"github.com/abdullahkazmii/financial-chatbot/pkg/tools"
)

type stubProvider struct{}

func (stubProvider) Quote(_ context.Context, symbol string) (*marketdata.Quote, error) {
	if symbol == "BOGUS" {
		return nil, fmt.Errorf("not found")
	}
	return &marketdata.Quote{CurrentPrice: 150.25, CompanyName: "Test Corp"}, nil
}

func (stubProvider) Daily(_ context.Context, _ string) (float64, float64, error) {
	return 101, 100, nil
}

type stubSpeechClient struct{}

func (stubSpeechClient) Speech(_ context.Context, _, _, _ string) ([]byte, error) {
	return []byte("fake-mp3"), nil
}

func newTestServer(t *testing.T, mock *api.MockAssistantClient) *httptest.Server {
	t.Helper()

	reg := tools.NewRegistry()
	market := marketdata.NewService(stubProvider{}, time.Minute)
	tools.RegisterFinanceTools(reg, market)

	adv := advisor.New(mock, reg, config.AssistantConfig{
		Model:        "gpt-4o",
		PollInterval: time.Millisecond,
		MaxPolls:     5,
	}, logging.Discard())
	if err := adv.EnsureAssistant(context.Background()); err != nil {
		t.Fatalf("EnsureAssistant: %v", err)
	}

	h := NewHandler(adv, memory.New(), market, speech.NewService(stubSpeechClient{}, "tts-1", "alloy"), logging.Discard())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &api.MockAssistantClient{})

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestChatNewSession(t *testing.T) {
	mock := &api.MockAssistantClient{
		Script:   []*api.Run{{ID: "run_1", Status: api.RunStatusCompleted}},
		Messages: []api.ThreadMessage{{Role: "assistant", Content: "Hello there."}},
	}
	srv := newTestServer(t, mock)

	resp := postJSON(t, srv.URL+"/v1/chat", map[string]string{"message": "hi"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		SessionID string `json:"session_id"`
		Reply     string `json:"reply"`
	}
	decodeJSON(t, resp, &body)
	if body.SessionID == "" {
		t.Error("missing session_id")
	}
	if body.Reply != "Hello there." {
		t.Errorf("reply = %q", body.Reply)
	}
}

func TestChatReusesSession(t *testing.T) {
	mock := &api.MockAssistantClient{
		Script: []*api.Run{
			{ID: "run_1", Status: api.RunStatusCompleted},
			{ID: "run_2", Status: api.RunStatusCompleted},
		},
		Messages: []api.ThreadMessage{{Role: "assistant", Content: "reply"}},
	}
	srv := newTestServer(t, mock)

	var first struct {
		SessionID string `json:"session_id"`
	}
	decodeJSON(t, postJSON(t, srv.URL+"/v1/chat", map[string]string{"message": "one"}), &first)

	var second struct {
		SessionID string `json:"session_id"`
	}
	decodeJSON(t, postJSON(t, srv.URL+"/v1/chat", map[string]string{
		"session_id": first.SessionID,
		"message":    "two",
	}), &second)

	if second.SessionID != first.SessionID {
		t.Errorf("session changed: %s vs %s", first.SessionID, second.SessionID)
	}
	if mock.CreatedThreads != 1 {
		t.Errorf("CreatedThreads = %d, want 1", mock.CreatedThreads)
	}
}

func TestChatMissingMessage(t *testing.T) {
	srv := newTestServer(t, &api.MockAssistantClient{})

	resp := postJSON(t, srv.URL+"/v1/chat", map[string]string{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestChatUnknownSession(t *testing.T) {
	srv := newTestServer(t, &api.MockAssistantClient{})

	resp := postJSON(t, srv.URL+"/v1/chat", map[string]string{
		"session_id": "nope",
		"message":    "hi",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestChatRunFailureSurfacesAsReply(t *testing.T) {
	mock := &api.MockAssistantClient{
		Script: []*api.Run{{ID: "run_1", Status: api.RunStatusFailed}},
	}
	srv := newTestServer(t, mock)

	resp := postJSON(t, srv.URL+"/v1/chat", map[string]string{"message": "hi"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Reply string `json:"reply"`
	}
	decodeJSON(t, resp, &body)
	if !strings.HasPrefix(body.Reply, "Error: ") {
		t.Errorf("reply = %q, want Error: prefix", body.Reply)
	}
}

func TestListAndDeleteSession(t *testing.T) {
	mock := &api.MockAssistantClient{
		Script:   []*api.Run{{ID: "run_1", Status: api.RunStatusCompleted}},
		Messages: []api.ThreadMessage{{Role: "assistant", Content: "reply"}},
	}
	srv := newTestServer(t, mock)

	var chat struct {
		SessionID string `json:"session_id"`
	}
	decodeJSON(t, postJSON(t, srv.URL+"/v1/chat", map[string]string{"message": "hi"}), &chat)

	resp, err := http.Get(srv.URL + "/v1/sessions/" + chat.SessionID + "/messages")
	if err != nil {
		t.Fatalf("GET messages: %v", err)
	}
	var list struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	decodeJSON(t, resp, &list)
	if len(list.Messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(list.Messages))
	}
	if list.Messages[0].Role != "user" || list.Messages[1].Role != "assistant" {
		t.Errorf("transcript order wrong: %v", list.Messages)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/sessions/"+chat.SessionID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", delResp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/sessions/" + chat.SessionID + "/messages")
	if err != nil {
		t.Fatalf("GET messages: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status after delete = %d", resp.StatusCode)
	}
}

func TestQuoteEndpoint(t *testing.T) {
	srv := newTestServer(t, &api.MockAssistantClient{})

	resp, err := http.Get(srv.URL + "/v1/market/quote/aapl")
	if err != nil {
		t.Fatalf("GET quote: %v", err)
	}
	var quote map[string]any
	decodeJSON(t, resp, &quote)
	if quote["symbol"] != "AAPL" {
		t.Errorf("symbol = %v", quote["symbol"])
	}
	if quote["current_price"] != 150.25 {
		t.Errorf("current_price = %v", quote["current_price"])
	}

	resp, err = http.Get(srv.URL + "/v1/market/quote/BOGUS")
	if err != nil {
		t.Fatalf("GET quote: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestOverviewEndpoint(t *testing.T) {
	srv := newTestServer(t, &api.MockAssistantClient{})

	resp, err := http.Get(srv.URL + "/v1/market/overview")
	if err != nil {
		t.Fatalf("GET overview: %v", err)
	}
	var overview map[string]any
	decodeJSON(t, resp, &overview)
	if _, ok := overview["NASDAQ"]; !ok {
		t.Errorf("overview missing NASDAQ: %d entries", len(overview))
	}
}

func TestSpeechEndpoint(t *testing.T) {
	srv := newTestServer(t, &api.MockAssistantClient{})

	resp := postJSON(t, srv.URL+"/v1/speech", map[string]string{"text": "hello"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestSpeechValidation(t *testing.T) {
	srv := newTestServer(t, &api.MockAssistantClient{})

	resp := postJSON(t, srv.URL+"/v1/speech", map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing text status = %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/v1/speech", map[string]string{"text": "hi", "voice": "robotic"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown voice status = %d", resp.StatusCode)
	}
}
