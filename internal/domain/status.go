package domain

// RunStatus — статус validation run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//
// Run, остановленный через bail (тестирование не требуется),
// завершается как SUCCEEDED с NeedsTesting == false.
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — pipeline выполняется.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — pipeline завершён (полностью или через bail).
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — pipeline прерван ошибкой.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed:
		return true
	default:
		return false
	}
}

// RemoteTaskStatus — статус задачи в удалённом сервисе браузерной автоматизации.
//
// Жизненный цикл:
//
//	queued → started ⇄ paused → finished | failed | stopped
type RemoteTaskStatus string

const (
	RemoteTaskQueued   RemoteTaskStatus = "queued"
	RemoteTaskStarted  RemoteTaskStatus = "started"
	RemoteTaskPaused   RemoteTaskStatus = "paused"
	RemoteTaskFinished RemoteTaskStatus = "finished"
	RemoteTaskFailed   RemoteTaskStatus = "failed"
	RemoteTaskStopped  RemoteTaskStatus = "stopped"
)

// IsTerminal возвращает true, если задача вышла из множества
// нефинальных статусов {queued, started, paused}.
//
// Неизвестные статусы считаются финальными: исход тогда определяет
// флаг успеха задачи.
func (s RemoteTaskStatus) IsTerminal() bool {
	switch s {
	case RemoteTaskQueued, RemoteTaskStarted, RemoteTaskPaused:
		return false
	default:
		return true
	}
}

// TaskOutcome — локальный исход выполнения одного тест-кейса.
//
// TaskOutcomeTimedOut выставляется только локально — удалённая задача
// при этом может продолжать выполняться.
type TaskOutcome string

const (
	TaskOutcomeSucceeded TaskOutcome = "succeeded"
	TaskOutcomeFailed    TaskOutcome = "failed"
	TaskOutcomeTimedOut  TaskOutcome = "timed_out"
)

// Status преобразует исход в статус, который попадает в отчёт.
func (o TaskOutcome) Status() TestStatus {
	if o == TaskOutcomeSucceeded {
		return TestStatusSuccess
	}
	return TestStatusFail
}

// TestStatus — статус тест-кейса в отчёте.
type TestStatus string

const (
	TestStatusSuccess TestStatus = "success"
	TestStatusFail    TestStatus = "fail"
)
