package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Preflight/internal/domain"
)

// CreateValidationRequest — запрос на проверку review request.
//
// Изменение задаётся либо строкой "owner/repo#42", либо тремя полями.
type CreateValidationRequest struct {
	ReviewRequest string `json:"review_request,omitempty"`
	Owner         string `json:"owner,omitempty"`
	Repo          string `json:"repo,omitempty"`
	Number        int    `json:"number,omitempty"`
}

// Resolve возвращает проверяемое изменение.
func (r CreateValidationRequest) Resolve() (domain.ReviewRequest, error) {
	if r.ReviewRequest != "" {
		return domain.ParseReviewRequest(r.ReviewRequest)
	}
	ref := domain.ReviewRequest{Owner: r.Owner, Repo: r.Repo, Number: r.Number}
	return ref, ref.Validate()
}

// TestCaseResultResponse — результат одного тест-кейса.
type TestCaseResultResponse struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ValidationResponse — ответ с validation run.
type ValidationResponse struct {
	ID            uuid.UUID                `json:"id"`
	ReviewRequest string                   `json:"review_request"`
	Status        domain.RunStatus         `json:"status"`
	NeedsTesting  *bool                    `json:"needs_testing,omitempty"`
	Success       *bool                    `json:"success,omitempty"`
	Results       []TestCaseResultResponse `json:"results,omitempty"`
	Error         string                   `json:"error,omitempty"`
	StartedAt     *time.Time               `json:"started_at,omitempty"`
	FinishedAt    *time.Time               `json:"finished_at,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
}

// ValidationFromDomain конвертирует domain.Run в ValidationResponse.
func ValidationFromDomain(r domain.Run) ValidationResponse {
	resp := ValidationResponse{
		ID:            r.ID,
		ReviewRequest: r.ReviewRequest.String(),
		Status:        r.Status,
		NeedsTesting:  r.NeedsTesting,
		Error:         r.Error,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		CreatedAt:     r.CreatedAt,
	}

	if r.Status == domain.RunStatusSucceeded {
		success := domain.NewSummary(r.Results).Success
		if r.NeedsTesting != nil && !*r.NeedsTesting {
			success = true
		}
		resp.Success = &success
	}

	if len(r.Results) > 0 {
		resp.Results = make([]TestCaseResultResponse, len(r.Results))
		for i, res := range r.Results {
			resp.Results[i] = TestCaseResultResponse{Title: res.Title, Status: string(res.Status)}
		}
	}
	return resp
}
