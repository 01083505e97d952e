package browser

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/executor"
)

var _ executor.TaskService = (*Client)(nil)

func TestClient_CreateTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/run-task" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer bu_key" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}

		var body createRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if !strings.Contains(body.Task, "https://preview.example.com") {
			t.Errorf("unexpected task: %q", body.Task)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"task-1"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "bu_key"})

	id, err := c.CreateTask(context.Background(), "Open https://preview.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "task-1" {
		t.Errorf("expected task-1, got %q", id)
	}
}

func TestClient_CreateTask_EmptyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})

	if _, err := c.CreateTask(context.Background(), "x"); !errors.Is(err, ErrEmptyTaskID) {
		t.Errorf("expected ErrEmptyTaskID, got %v", err)
	}
}

func TestClient_GetTask(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  domain.RemoteTaskStatus
		success bool
	}{
		{
			name:    "snake case flag",
			body:    `{"id":"t1","status":"finished","output":"done","is_success":true}`,
			status:  domain.RemoteTaskFinished,
			success: true,
		},
		{
			name:    "camel case flag",
			body:    `{"id":"t1","status":"finished","isSuccess":true}`,
			status:  domain.RemoteTaskFinished,
			success: true,
		},
		{
			name:   "running",
			body:   `{"id":"t1","status":"started"}`,
			status: domain.RemoteTaskStarted,
		},
		{
			name:   "failed",
			body:   `{"id":"t1","status":"failed","is_success":false}`,
			status: domain.RemoteTaskFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/task/t1" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := New(Config{BaseURL: server.URL})

			task, err := c.GetTask(context.Background(), "t1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.ID != "t1" || task.Status != tt.status || task.IsSuccess != tt.success {
				t.Errorf("unexpected task: %+v", task)
			}
		})
	}
}

func TestClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "wrong"})

	_, err := c.GetTask(context.Background(), "t1")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("expected APIError with 401, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error should include body: %v", err)
	}
}
