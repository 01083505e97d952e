package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск validation pipeline для review request.
//
// Run создаётся когда:
// - Приходит запрос через API (webhook от review host)
// - Пользователь запускает проверку через CLI в режиме очереди
//
// PipelineContext в Run не хранится — сохраняется только итог.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// ReviewRequest — проверяемое изменение.
	ReviewRequest ReviewRequest `json:"review_request"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// NeedsTesting — итог генерации плана. Nil, пока план не построен.
	NeedsTesting *bool `json:"needs_testing,omitempty"`

	// Results — результаты тест-кейсов в порядке плана.
	Results []TestCaseResult `json:"results,omitempty"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(ref ReviewRequest) *Run {
	return &Run{
		ID:            uuid.New(),
		ReviewRequest: ref,
		Status:        RunStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED с итогом pipeline.
func (r *Run) MarkSucceeded(summary Summary) {
	now := time.Now()
	needsTesting := summary.NeedsTesting
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
	r.NeedsTesting = &needsTesting
	r.Results = summary.TestCases
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}
