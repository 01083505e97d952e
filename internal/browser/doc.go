// Package browser — клиент удалённого сервиса браузерной автоматизации.
//
// Client реализует executor.TaskService:
//
//	POST {base}/run-task   {"task": "..."}  → {"id": "..."}
//	GET  {base}/task/{id}                   → {"id", "status", "output", "is_success"}
//
// Сервис сам решает, как выполнить инструкцию; Client только создаёт
// задачу и читает её снимок.
package browser
