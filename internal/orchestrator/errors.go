package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrRunNotFound — run не найден в БД.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunAlreadyActive — run уже обрабатывается этим процессом.
	ErrRunAlreadyActive = errors.New("run already being processed")

	// ErrRunNotPending — run не в статусе PENDING.
	ErrRunNotPending = errors.New("run is not in PENDING status")

	// ErrOrchestratorStopped — оркестратор остановлен.
	ErrOrchestratorStopped = errors.New("orchestrator stopped")

	// ErrMissingDependency — не передан обязательный компонент.
	ErrMissingDependency = errors.New("missing orchestrator dependency")
)
