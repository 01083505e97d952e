package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TestCaseResult — результат тест-кейса из API.
type TestCaseResult struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ValidationResponse — validation run из API.
type ValidationResponse struct {
	ID            string           `json:"id"`
	ReviewRequest string           `json:"review_request"`
	Status        string           `json:"status"`
	NeedsTesting  *bool            `json:"needs_testing,omitempty"`
	Success       *bool            `json:"success,omitempty"`
	Results       []TestCaseResult `json:"results,omitempty"`
	Error         string           `json:"error,omitempty"`
	StartedAt     string           `json:"started_at,omitempty"`
	FinishedAt    string           `json:"finished_at,omitempty"`
	CreatedAt     string           `json:"created_at"`
}

// ListValidationsOpts — параметры фильтрации.
type ListValidationsOpts struct {
	ReviewRequest string
	Status        string
	Limit         int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ответ API с ошибкой.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error %s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для Preflight API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListValidations возвращает список validation runs.
func (c *Client) ListValidations(ctx context.Context, opts ListValidationsOpts) ([]ValidationResponse, error) {
	params := url.Values{}
	if opts.ReviewRequest != "" {
		params.Set("review_request", opts.ReviewRequest)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/api/v1/validations"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var list []ValidationResponse
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

// GetValidation возвращает validation run по ID.
func (c *Client) GetValidation(ctx context.Context, id string) (*ValidationResponse, error) {
	var v ValidationResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/validations/"+url.PathEscape(id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// RequestValidation ставит проверку review request в очередь.
func (c *Client) RequestValidation(ctx context.Context, reviewRequest string) (*ValidationResponse, error) {
	body := map[string]string{"review_request": reviewRequest}
	var v ValidationResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/validations", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// --- HTTP helpers ---

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error.Message != "" {
		return &APIError{Status: resp.StatusCode, Code: er.Error.Code, Message: er.Error.Message}
	}
	return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}
