package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/telemetry"
)

const (
	headerGitHubEvent     = "X-GitHub-Event"
	headerGitHubSignature = "X-Hub-Signature-256"

	maxWebhookBody = 5 * 1024 * 1024 // 5 MB
)

// triggerActions — действия pull_request, после которых изменение проверяется.
var triggerActions = map[string]bool{
	"opened":           true,
	"reopened":         true,
	"synchronize":      true,
	"ready_for_review": true,
}

// pullRequestEvent — нужная часть события pull_request.
type pullRequestEvent struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Draft bool `json:"draft"`
	} `json:"pull_request"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// WebhookResponse — ответ на webhook.
type WebhookResponse struct {
	Queued     bool                `json:"queued"`
	Reason     string              `json:"reason,omitempty"`
	Validation *ValidationResponse `json:"validation,omitempty"`
}

// GitHubWebhook принимает события review host.
// POST /api/v1/webhooks/github
func (h *Handler) GitHubWebhook(w http.ResponseWriter, r *http.Request) {
	logger := telemetry.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		BadRequest(w, "read body")
		return
	}

	if h.webhookSecret != nil && !validSignature(h.webhookSecret, body, r.Header.Get(headerGitHubSignature)) {
		Unauthorized(w, "invalid webhook signature")
		return
	}

	event := r.Header.Get(headerGitHubEvent)
	if event != "pull_request" {
		Success(w, WebhookResponse{Reason: "ignored event " + event})
		return
	}

	var payload pullRequestEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		BadRequest(w, "invalid pull_request payload")
		return
	}

	switch {
	case !triggerActions[payload.Action]:
		Success(w, WebhookResponse{Reason: "ignored action " + payload.Action})
		return
	case payload.PullRequest.Draft:
		Success(w, WebhookResponse{Reason: "draft pull request"})
		return
	}

	ref := domain.ReviewRequest{
		Owner:  payload.Repository.Owner.Login,
		Repo:   payload.Repository.Name,
		Number: payload.Number,
	}
	if err := ref.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	run, err := h.enqueue(r.Context(), ref)
	if err != nil {
		InternalError(w, logger, err)
		return
	}

	resp := ValidationFromDomain(*run)
	Accepted(w, WebhookResponse{Queued: true, Validation: &resp})
}

// validSignature проверяет подпись "sha256=<hex hmac>".
func validSignature(secret, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
