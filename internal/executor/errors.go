package executor

import "errors"

var (
	// ErrNoService — не задан TaskService.
	ErrNoService = errors.New("task service is required")

	// ErrInvalidTask — сервис вернул задачу без ID или статуса.
	ErrInvalidTask = errors.New("invalid remote task")

	// ErrTaskPanic — паника при выполнении тест-кейса.
	ErrTaskPanic = errors.New("task panicked")
)
