// Package tracker — клиент issue tracker (Jira REST API v2).
//
// Используется генератором тест-плана, чтобы добавить в контекст
// задачи, на которые ссылается review request (ключи вида SHOP-123).
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 1024 * 1024 // 1 MB
)

// ErrTracker — ответ tracker вне диапазона 2xx.
var ErrTracker = errors.New("issue tracker request failed")

// APIError — tracker вернул ответ вне диапазона 2xx.
type APIError struct {
	IssueID string
	Status  int
	Body    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	return fmt.Sprintf("get issue %s: HTTP %d: %s", e.IssueID, e.Status, strings.TrimSpace(e.Body))
}

// Is позволяет сравнивать с ErrTracker.
func (e *APIError) Is(target error) bool {
	return target == ErrTracker
}

// Issue — задача в tracker.
type Issue struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Client — клиент tracker.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес tracker, например https://acme.atlassian.net.
	BaseURL string

	// Token — токен доступа (опционально).
	Token string

	// Timeout — таймаут запроса (default: 15s).
	Timeout time.Duration

	// HTTPClient (опционально).
	HTTPClient *http.Client

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// New создаёт Client.
func New(cfg Config) *Client {
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
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  httpClient,
		logger:  logger,
	}
}

// jiraIssue — wire-формат задачи.
type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		Created jiraTime `json:"created"`
		Updated jiraTime `json:"updated"`
	} `json:"fields"`
}

// jiraTime — время в формате Jira (2024-01-02T10:00:00.000+0000).
type jiraTime struct {
	time.Time
}

var jiraTimeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
}

// UnmarshalJSON разбирает время Jira; пустое значение — нулевое время.
func (t *jiraTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range jiraTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported time format %q", s)
}

// GetIssue возвращает задачу по ключу.
func (c *Client) GetIssue(ctx context.Context, id string) (*Issue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s?fields=summary,description,status,created,updated",
		c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{IssueID: id, Status: resp.StatusCode, Body: string(body)}
	}

	var raw jiraIssue
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("get issue %s: decode response: %w", id, err)
	}

	c.logger.Debug("issue fetched", "issue_id", raw.Key, "status", raw.Fields.Status.Name)

	return &Issue{
		ID:          raw.Key,
		Title:       raw.Fields.Summary,
		Description: raw.Fields.Description,
		Status:      raw.Fields.Status.Name,
		CreatedAt:   raw.Fields.Created.Time,
		UpdatedAt:   raw.Fields.Updated.Time,
	}, nil
}

var issueKeyPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9]+-[0-9]+\b`)

// ExtractIssueKeys находит ключи задач (SHOP-123) в текстах.
// Ключи возвращаются без повторов в порядке первого появления.
func ExtractIssueKeys(texts ...string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, text := range texts {
		for _, key := range issueKeyPattern.FindAllString(text, -1) {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}
