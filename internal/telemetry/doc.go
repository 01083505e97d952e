// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog (json, text, tint)
//   - metrics.go — Prometheus метрики pipeline, поллеров и удалённых задач
//
// Все сервисы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
