// Package repo — хранение истории validation runs в PostgreSQL (pgx).
//
// Таблица validation_runs создаётся через EnsureSchema при старте сервиса.
// PipelineContext не сохраняется: в строке лежит только итог run.
package repo
