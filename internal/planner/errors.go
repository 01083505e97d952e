package planner

import "errors"

var (
	// ErrEmptyResponse — модель вернула пустой ответ.
	ErrEmptyResponse = errors.New("model returned empty response")

	// ErrMalformedPlan — ответ модели не удалось разобрать как TestPlan.
	ErrMalformedPlan = errors.New("malformed test plan")

	// ErrNoModel — не задана chat-модель.
	ErrNoModel = errors.New("chat model is required")

	// ErrNoPullRequests — не задан источник review request.
	ErrNoPullRequests = errors.New("pull request source is required")
)
