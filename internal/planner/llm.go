package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/invopop/jsonschema"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/engine"
	"github.com/shaiso/Preflight/internal/reviewhost"
	"github.com/shaiso/Preflight/internal/tracker"
)

// Значения по умолчанию.
const (
	defaultMaxDiffBytes = 60 * 1024
	defaultMaxIssues    = 5
)

// PullRequestSource — источник данных review request.
type PullRequestSource interface {
	GetPullRequest(ctx context.Context, ref domain.ReviewRequest) (*reviewhost.PullRequest, error)
	GetDiff(ctx context.Context, ref domain.ReviewRequest) (string, error)
}

// IssueSource — источник связанных задач.
type IssueSource interface {
	GetIssue(ctx context.Context, id string) (*tracker.Issue, error)
}

// LLMGenerator генерирует план с помощью chat-модели.
type LLMGenerator struct {
	model        model.BaseChatModel
	pullRequests PullRequestSource
	issues       IssueSource
	maxDiffBytes int
	maxIssues    int
	system       string
	logger       *slog.Logger
}

// LLMConfig — конфигурация LLMGenerator.
type LLMConfig struct {
	// Model — chat-модель (обязательно).
	Model model.BaseChatModel

	// PullRequests — источник метаданных и diff (обязательно).
	PullRequests PullRequestSource

	// Issues — источник задач (опционально).
	Issues IssueSource

	// MaxDiffBytes — ограничение размера diff в prompt (default: 60 KB).
	MaxDiffBytes int

	// MaxIssues — сколько связанных задач подтягивать (default: 5).
	MaxIssues int

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// NewLLMGenerator создаёт LLMGenerator.
func NewLLMGenerator(cfg LLMConfig) (*LLMGenerator, error) {
	if cfg.Model == nil {
		return nil, ErrNoModel
	}
	if cfg.PullRequests == nil {
		return nil, ErrNoPullRequests
	}

	system, err := systemPrompt()
	if err != nil {
		return nil, err
	}

	maxDiff := cfg.MaxDiffBytes
	if maxDiff <= 0 {
		maxDiff = defaultMaxDiffBytes
	}
	maxIssues := cfg.MaxIssues
	if maxIssues <= 0 {
		maxIssues = defaultMaxIssues
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LLMGenerator{
		model:        cfg.Model,
		pullRequests: cfg.PullRequests,
		issues:       cfg.Issues,
		maxDiffBytes: maxDiff,
		maxIssues:    maxIssues,
		system:       system,
		logger:       logger,
	}, nil
}

// promptData — данные пользовательского prompt.
type promptData struct {
	Ref           domain.ReviewRequest
	PullRequest   *reviewhost.PullRequest
	Diff          string
	DiffTruncated bool
	Issues        []*tracker.Issue
}

var userPrompt = engine.MustParse("user-prompt", `Review request: {{ .Ref }}
Title: {{ .PullRequest.Title }}
Branch: {{ .PullRequest.HeadRef }} -> {{ .PullRequest.BaseRef }}

Description:
{{ .PullRequest.Body | default "(empty)" | trim }}
{{ range .Issues }}
Linked issue {{ .ID }} [{{ .Status }}]: {{ .Title }}
{{ .Description | trim | trunc 2000 }}
{{ end }}
Diff{{ if .DiffTruncated }} (truncated){{ end }}:
{{ .Diff }}`)

const systemTemplate = `You are a QA engineer. Decide whether the change described by the user
needs manual verification in a deployed preview environment, and if it does,
write browser test scenarios for it.

Answer with a single JSON object that matches this JSON schema and nothing else:

%s

Rules:
- Set needsTesting to false for changes that cannot affect runtime behaviour
  (documentation, comments, CI configuration, tests only). testCases must then be [].
- Every test case is executed by an autonomous browser agent starting from the
  preview home page. Describe concrete steps and the expected visible result.
- Prefer a few focused scenarios over many overlapping ones.`

// systemPrompt встраивает JSON-схему TestPlan в системный prompt.
func systemPrompt() (string, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	planSchema, err := json.MarshalIndent(reflector.Reflect(&domain.TestPlan{}), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal test plan schema: %w", err)
	}
	return fmt.Sprintf(systemTemplate, planSchema), nil
}

// Generate собирает контекст, вызывает модель и разбирает план.
func (g *LLMGenerator) Generate(ctx context.Context, ref domain.ReviewRequest) (domain.TestPlan, error) {
	logger := g.logger.With("review_request", ref.String())

	pr, err := g.pullRequests.GetPullRequest(ctx, ref)
	if err != nil {
		return domain.TestPlan{}, err
	}
	diff, err := g.pullRequests.GetDiff(ctx, ref)
	if err != nil {
		return domain.TestPlan{}, err
	}

	data := promptData{
		Ref:         ref,
		PullRequest: pr,
		Diff:        diff,
		Issues:      g.linkedIssues(ctx, logger, pr),
	}
	if len(diff) > g.maxDiffBytes {
		data.Diff = truncateUTF8(diff, g.maxDiffBytes)
		data.DiffTruncated = true
	}

	user, err := engine.Execute(userPrompt, data)
	if err != nil {
		return domain.TestPlan{}, err
	}

	start := time.Now()
	resp, err := g.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(g.system),
		schema.UserMessage(user),
	})
	if err != nil {
		return domain.TestPlan{}, fmt.Errorf("generate test plan: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return domain.TestPlan{}, ErrEmptyResponse
	}

	plan, err := ParsePlan(resp.Content)
	if err != nil {
		return domain.TestPlan{}, err
	}

	logger.Info("test plan generated",
		"needs_testing", plan.NeedsTesting,
		"test_cases", len(plan.TestCases),
		"linked_issues", len(data.Issues),
		"duration", time.Since(start),
	)
	return plan, nil
}

// linkedIssues подтягивает задачи, упомянутые в review request.
// Ошибки tracker не прерывают генерацию: задача просто не попадает в prompt.
func (g *LLMGenerator) linkedIssues(ctx context.Context, logger *slog.Logger, pr *reviewhost.PullRequest) []*tracker.Issue {
	if g.issues == nil {
		return nil
	}

	keys := tracker.ExtractIssueKeys(pr.Title, pr.HeadRef, pr.Body)
	if len(keys) > g.maxIssues {
		keys = keys[:g.maxIssues]
	}

	issues := make([]*tracker.Issue, 0, len(keys))
	for _, key := range keys {
		issue, err := g.issues.GetIssue(ctx, key)
		if err != nil {
			logger.Warn("linked issue unavailable", "issue_id", key, "error", err)
			continue
		}
		issues = append(issues, issue)
	}
	return issues
}

// ParsePlan извлекает TestPlan из ответа модели.
//
// Допускает markdown-обёртку и текст вокруг JSON объекта. План без
// тестов нормализуется к пустому списку кейсов.
func ParsePlan(content string) (domain.TestPlan, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return domain.TestPlan{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedPlan)
	}

	var raw struct {
		NeedsTesting *bool             `json:"needsTesting"`
		TestCases    []domain.TestCase `json:"testCases"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return domain.TestPlan{}, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	if raw.NeedsTesting == nil {
		return domain.TestPlan{}, fmt.Errorf("%w: needsTesting is missing", ErrMalformedPlan)
	}

	if !*raw.NeedsTesting || len(raw.TestCases) == 0 {
		return domain.NoTestingPlan(), nil
	}

	plan := domain.TestPlan{NeedsTesting: true, TestCases: raw.TestCases}
	for i := range plan.TestCases {
		plan.TestCases[i].Title = strings.TrimSpace(plan.TestCases[i].Title)
		plan.TestCases[i].Description = strings.TrimSpace(plan.TestCases[i].Description)
	}
	if err := plan.Validate(); err != nil {
		return domain.TestPlan{}, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	return plan, nil
}

var _ Generator = (*LLMGenerator)(nil)

// truncateUTF8 обрезает s до n байт, не разрывая символ.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
