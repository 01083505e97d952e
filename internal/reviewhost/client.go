package reviewhost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Значения по умолчанию.
const (
	DefaultBaseURL = "https://api.github.com"

	defaultTimeout  = 30 * time.Second
	maxResponseBody = 10 * 1024 * 1024 // 10 MB
	userAgent       = "preflight"
)

// Client — клиент REST API review host.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — базовый URL API (default: https://api.github.com).
	BaseURL string

	// Token — токен доступа (опционально).
	Token string

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration

	// HTTPClient (опционально).
	HTTPClient *http.Client

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// Response — ответ API.
type Response struct {
	// Status — HTTP статус.
	Status int

	// OK — статус в диапазоне 2xx.
	OK bool

	// Data — распарсенный JSON или строка.
	Data any

	// Raw — сырое тело ответа.
	Raw []byte

	// link — заголовок Link (пагинация).
	link string
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
		token:   cfg.Token,
		client:  httpClient,
		logger:  logger,
	}
}

// Get выполняет GET запрос. url — абсолютный или путь относительно BaseURL.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, nil)
}

// Post выполняет POST запрос с JSON телом.
func (c *Client) Post(ctx context.Context, url string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, url, body, nil)
}

// do выполняет запрос. Ответ вне 2xx ошибкой не считается: решает вызывающий.
func (c *Client) do(ctx context.Context, method, url string, body any, headers map[string]string) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(url), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("review host request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	return &Response{
		Status: resp.StatusCode,
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Data:   parseData(resp.Header.Get("Content-Type"), raw),
		Raw:    raw,
		link:   resp.Header.Get("Link"),
	}, nil
}

func (c *Client) resolve(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return c.baseURL + "/" + strings.TrimLeft(url, "/")
}

// parseData парсит JSON; если не удалось — возвращает строку.
func parseData(contentType string, raw []byte) any {
	if strings.Contains(contentType, "json") {
		var data any
		if err := json.Unmarshal(raw, &data); err == nil {
			return data
		}
	}
	return string(raw)
}

// expect превращает ответ вне 2xx в UpstreamAPIError.
func expect(op string, resp *Response) error {
	if resp.OK {
		return nil
	}
	return &UpstreamAPIError{Operation: op, Status: resp.Status, Body: string(resp.Raw)}
}

// decode разбирает JSON тело успешного ответа.
func decode[T any](op string, resp *Response) (T, error) {
	var out T
	if err := expect(op, resp); err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp.Raw, &out); err != nil {
		return out, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return out, nil
}
