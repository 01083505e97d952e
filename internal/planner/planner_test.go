package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/reviewhost"
	"github.com/shaiso/Preflight/internal/tracker"
)

var ref = domain.ReviewRequest{Owner: "acme", Repo: "shop", Number: 7}

// fakeModel — chat-модель с заготовленным ответом.
type fakeModel struct {
	content  string
	err      error
	messages []*schema.Message
}

func (m *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.messages = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type fakePullRequests struct {
	pr      *reviewhost.PullRequest
	diff    string
	prErr   error
	diffErr error
}

func (f *fakePullRequests) GetPullRequest(context.Context, domain.ReviewRequest) (*reviewhost.PullRequest, error) {
	return f.pr, f.prErr
}

func (f *fakePullRequests) GetDiff(context.Context, domain.ReviewRequest) (string, error) {
	return f.diff, f.diffErr
}

type fakeIssues map[string]*tracker.Issue

func (f fakeIssues) GetIssue(_ context.Context, id string) (*tracker.Issue, error) {
	if issue, ok := f[id]; ok {
		return issue, nil
	}
	return nil, &tracker.APIError{IssueID: id, Status: 404, Body: "not found"}
}

func newPullRequests() *fakePullRequests {
	return &fakePullRequests{
		pr: &reviewhost.PullRequest{
			Number:  7,
			Title:   "SHOP-12: cart badge",
			Body:    "Adds a counter. Also see OPS-1.",
			HeadRef: "feature/cart",
			BaseRef: "main",
		},
		diff: "diff --git a/cart.tsx b/cart.tsx\n+<Badge />\n",
	}
}

func TestLLMGenerator_Generate(t *testing.T) {
	m := &fakeModel{content: "Here is the plan:\n```json\n" + `{
		"needsTesting": true,
		"testCases": [
			{"title": " Add item ", "description": "Add a product, badge shows 1."},
			{"title": "Remove item", "description": "Remove it, badge disappears."}
		]
	}` + "\n```"}

	g, err := NewLLMGenerator(LLMConfig{
		Model:        m,
		PullRequests: newPullRequests(),
		Issues: fakeIssues{
			"SHOP-12": {ID: "SHOP-12", Title: "Cart badge", Description: "Show count", Status: "In Review"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plan, err := g.Generate(context.Background(), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !plan.NeedsTesting || len(plan.TestCases) != 2 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.TestCases[0].Title != "Add item" {
		t.Errorf("title should be trimmed, got %q", plan.TestCases[0].Title)
	}

	if len(m.messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(m.messages))
	}
	system, user := m.messages[0].Content, m.messages[1].Content
	if !strings.Contains(system, `"needsTesting"`) || !strings.Contains(system, `"testCases"`) {
		t.Error("system prompt should embed the plan schema")
	}
	for _, want := range []string{"acme/shop#7", "SHOP-12: cart badge", "feature/cart -> main", "<Badge />", "Linked issue SHOP-12 [In Review]: Cart badge"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt should contain %q:\n%s", want, user)
		}
	}
	// OPS-1 не найден в tracker: пропускается без ошибки
	if strings.Contains(user, "OPS-1") && strings.Contains(user, "Linked issue OPS-1") {
		t.Error("missing issue should be skipped")
	}
}

func TestLLMGenerator_NoTesting(t *testing.T) {
	m := &fakeModel{content: `{"needsTesting": false, "testCases": [{"title": "ignored", "description": ""}]}`}
	g, _ := NewLLMGenerator(LLMConfig{Model: m, PullRequests: newPullRequests()})

	plan, err := g.Generate(context.Background(), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.NeedsTesting || len(plan.TestCases) != 0 || plan.TestCases == nil {
		t.Errorf("expected normalized no-testing plan, got %+v", plan)
	}
}

func TestLLMGenerator_DiffTruncated(t *testing.T) {
	m := &fakeModel{content: `{"needsTesting": false, "testCases": []}`}
	prs := newPullRequests()
	prs.diff = strings.Repeat("x", 100)

	g, _ := NewLLMGenerator(LLMConfig{Model: m, PullRequests: prs, MaxDiffBytes: 10})
	if _, err := g.Generate(context.Background(), ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := m.messages[1].Content
	if !strings.Contains(user, "Diff (truncated):\nxxxxxxxxxx") || strings.Contains(user, strings.Repeat("x", 11)) {
		t.Errorf("diff should be truncated to 10 bytes:\n%s", user)
	}
}

func TestLLMGenerator_DiffTruncatedOnRuneBoundary(t *testing.T) {
	m := &fakeModel{content: `{"needsTesting": false, "testCases": []}`}
	prs := newPullRequests()
	// "ж" занимает два байта: граница 10 байт приходится на середину символа
	prs.diff = "+" + strings.Repeat("ж", 20)

	g, _ := NewLLMGenerator(LLMConfig{Model: m, PullRequests: prs, MaxDiffBytes: 10})
	if _, err := g.Generate(context.Background(), ref); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := m.messages[1].Content
	if !utf8.ValidString(user) {
		t.Fatal("prompt should be valid UTF-8")
	}
	if !strings.Contains(user, "+"+strings.Repeat("ж", 4)) || strings.Contains(user, strings.Repeat("ж", 5)) {
		t.Errorf("diff should be cut before the split character:\n%s", user)
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 10, "abc"},
		{"abcdef", 3, "abc"},
		{"aж", 2, "a"},
		{"жж", 3, "ж"},
		{"ж", 1, ""},
	}
	for _, tt := range tests {
		if got := truncateUTF8(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestLLMGenerator_Errors(t *testing.T) {
	upstream := &reviewhost.UpstreamAPIError{Operation: reviewhost.OpGetPullRequest, Status: 404}

	prs := newPullRequests()
	prs.prErr = upstream
	g, _ := NewLLMGenerator(LLMConfig{Model: &fakeModel{}, PullRequests: prs})
	if _, err := g.Generate(context.Background(), ref); !errors.Is(err, reviewhost.ErrUpstream) {
		t.Errorf("expected upstream error to propagate, got %v", err)
	}

	g, _ = NewLLMGenerator(LLMConfig{Model: &fakeModel{err: errors.New("quota exceeded")}, PullRequests: newPullRequests()})
	if _, err := g.Generate(context.Background(), ref); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected model error, got %v", err)
	}

	g, _ = NewLLMGenerator(LLMConfig{Model: &fakeModel{content: "  "}, PullRequests: newPullRequests()})
	if _, err := g.Generate(context.Background(), ref); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}

	if _, err := NewLLMGenerator(LLMConfig{PullRequests: newPullRequests()}); !errors.Is(err, ErrNoModel) {
		t.Errorf("expected ErrNoModel, got %v", err)
	}
	if _, err := NewLLMGenerator(LLMConfig{Model: &fakeModel{}}); !errors.Is(err, ErrNoPullRequests) {
		t.Errorf("expected ErrNoPullRequests, got %v", err)
	}
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		cases   int
	}{
		{name: "plain json", content: `{"needsTesting": true, "testCases": [{"title": "A", "description": "B"}]}`, cases: 1},
		{name: "needs testing without cases", content: `{"needsTesting": true, "testCases": []}`, cases: 0},
		{name: "no json", content: "I cannot help with that", wantErr: true},
		{name: "broken json", content: `{"needsTesting": tru}`, wantErr: true},
		{name: "missing flag", content: `{"testCases": []}`, wantErr: true},
		{name: "empty title", content: `{"needsTesting": true, "testCases": [{"title": " ", "description": "B"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ParsePlan(tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPlan) {
					t.Errorf("expected ErrMalformedPlan, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(plan.TestCases) != tt.cases {
				t.Errorf("expected %d cases, got %d", tt.cases, len(plan.TestCases))
			}
			if err := plan.Validate(); err != nil {
				t.Errorf("parsed plan should be valid: %v", err)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	plan := domain.NoTestingPlan()
	got, err := Static(plan).Generate(context.Background(), ref)
	if err != nil || got.NeedsTesting {
		t.Errorf("unexpected result: %+v, %v", got, err)
	}
}
