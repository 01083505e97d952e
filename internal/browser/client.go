package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/Preflight/internal/domain"
)

const (
	// DefaultBaseURL — публичный API сервиса.
	DefaultBaseURL = "https://api.browser-use.com/api/v1"

	defaultTimeout  = 30 * time.Second
	maxResponseBody = 1024 * 1024 // 1 MB
	maxErrorBody    = 512
)

var (
	// ErrUpstream — сервис вернул ответ вне диапазона 2xx.
	ErrUpstream = errors.New("browser task service request failed")

	// ErrEmptyTaskID — сервис создал задачу, но не вернул её ID.
	ErrEmptyTaskID = errors.New("browser task service returned empty task id")
)

// APIError — ответ сервиса вне диапазона 2xx.
type APIError struct {
	Operation string
	Status    int
	Body      string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Operation, e.Status)
	if e.Body != "" {
		body := e.Body
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody] + "..."
		}
		msg += ": " + body
	}
	return msg
}

// Is позволяет сравнивать с ErrUpstream.
func (e *APIError) Is(target error) bool {
	return target == ErrUpstream
}

// Client — HTTP клиент сервиса.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL (default: DefaultBaseURL).
	BaseURL string

	// APIKey — ключ доступа (обязателен).
	APIKey string

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration

	// HTTPClient (опционально).
	HTTPClient *http.Client

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// New создаёт Client.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  httpClient,
		logger:  logger,
	}
}

type createRequest struct {
	Task string `json:"task"`
}

type createResponse struct {
	ID string `json:"id"`
}

// taskResponse — снимок задачи. Разные версии API называют флаг успеха
// по-разному.
type taskResponse struct {
	ID          string                  `json:"id"`
	Status      domain.RemoteTaskStatus `json:"status"`
	Output      string                  `json:"output"`
	IsSuccess   *bool                   `json:"is_success"`
	IsSuccessV2 *bool                   `json:"isSuccess"`
}

// CreateTask создаёт задачу с инструкцией на естественном языке.
func (c *Client) CreateTask(ctx context.Context, instructions string) (string, error) {
	const op = "create task"

	var out createResponse
	if err := c.do(ctx, op, http.MethodPost, "/run-task", createRequest{Task: instructions}, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", ErrEmptyTaskID
	}

	c.logger.Debug("browser task created", "task_id", out.ID)
	return out.ID, nil
}

// GetTask возвращает снимок задачи.
func (c *Client) GetTask(ctx context.Context, id string) (domain.RemoteTask, error) {
	const op = "get task"

	var out taskResponse
	if err := c.do(ctx, op, http.MethodGet, "/task/"+url.PathEscape(id), nil, &out); err != nil {
		return domain.RemoteTask{}, err
	}

	task := domain.RemoteTask{
		ID:     out.ID,
		Status: out.Status,
		Output: out.Output,
	}
	if task.ID == "" {
		task.ID = id
	}
	switch {
	case out.IsSuccess != nil:
		task.IsSuccess = *out.IsSuccess
	case out.IsSuccessV2 != nil:
		task.IsSuccess = *out.IsSuccessV2
	}
	return task, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: serialize body: %w", op, err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s: read response body: %w", op, err)
	}

	c.logger.Debug("browser task request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Operation: op, Status: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
