package domain

import "time"

// RemoteTask — снимок задачи в удалённом сервисе браузерной автоматизации.
type RemoteTask struct {
	// ID — идентификатор задачи в удалённом сервисе.
	ID string `json:"id"`

	// Status — статус задачи.
	Status RemoteTaskStatus `json:"status"`

	// IsSuccess — флаг успеха. Имеет смысл только в финальном статусе.
	IsSuccess bool `json:"is_success"`

	// Output — итоговый текст агента (для логов).
	Output string `json:"output,omitempty"`
}

// IsFinished возвращает true, если задача в финальном статусе.
func (t *RemoteTask) IsFinished() bool {
	return t.Status.IsTerminal()
}

// Outcome вычисляет локальный исход для задачи в финальном статусе.
// Исход определяет флаг успеха; failed и stopped всегда неуспешны.
func (t *RemoteTask) Outcome() TaskOutcome {
	switch t.Status {
	case RemoteTaskFailed, RemoteTaskStopped:
		return TaskOutcomeFailed
	}
	if t.IsSuccess {
		return TaskOutcomeSucceeded
	}
	return TaskOutcomeFailed
}

// TaskExecution — локальная запись об исполнении одного тест-кейса.
//
// Пишется только горутиной своего тест-кейса.
type TaskExecution struct {
	Index      int
	TestCase   TestCase
	RemoteID   string
	Outcome    TaskOutcome
	Polls      int
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// Duration возвращает продолжительность исполнения.
func (e *TaskExecution) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Result возвращает результат для отчёта.
func (e *TaskExecution) Result() TestCaseResult {
	return TestCaseResult{
		Title:  e.TestCase.Title,
		Status: e.Outcome.Status(),
	}
}
