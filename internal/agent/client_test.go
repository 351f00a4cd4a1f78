package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInvokeSuccess(t *testing.T) {
	var gotPath string
	var gotBody invokePayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{
				{"content": "intermediate"},
				{"content": "final answer"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	result, err := c.Invoke(context.Background(), InvokeRequest{
		AgentID: "agent-1",
		TaskID:  "task_0a1b2c3d",
		Request: "find the population of France",
		Task:    "search official statistics",
		Context: "Context from previous tasks:\n- lookup: 68M",
	})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}

	if result != "final answer" {
		t.Errorf("result = %q, want last message content", result)
	}
	if gotPath != "/a2a/agent-1" {
		t.Errorf("path = %q, want /a2a/agent-1", gotPath)
	}
	if gotBody.Config.Configurable.ThreadID != "router_task_0a1b2c3d" {
		t.Errorf("thread_id = %q", gotBody.Config.Configurable.ThreadID)
	}
	if len(gotBody.Input.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(gotBody.Input.Messages))
	}
	msg := gotBody.Input.Messages[0].Content
	for _, part := range []string{"find the population of France", "search official statistics", "Context from previous tasks"} {
		if !strings.Contains(msg, part) {
			t.Errorf("agent message missing %q:\n%s", part, msg)
		}
	}
}

func TestInvokeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Invoke(context.Background(), InvokeRequest{AgentID: "agent-1", TaskID: "t1"})
	if !errors.Is(err, ErrAgentStatus) {
		t.Fatalf("Invoke() error = %v, want ErrAgentStatus", err)
	}
	if !strings.Contains(err.Error(), "HTTP 500") || !strings.Contains(err.Error(), "agent exploded") {
		t.Errorf("error lacks status/body context: %v", err)
	}
}

func TestInvokeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})

	_, err := c.Invoke(context.Background(), InvokeRequest{AgentID: "agent-1", TaskID: "t1"})
	if !errors.Is(err, ErrInvokeTimeout) {
		t.Errorf("Invoke() error = %v, want ErrInvokeTimeout", err)
	}
}

func TestInvokeEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"messages": []any{}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Invoke(context.Background(), InvokeRequest{AgentID: "agent-1", TaskID: "t1"})
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("Invoke() error = %v, want ErrEmptyResult", err)
	}
}
