package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Форматы логов.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatTint = "tint"
)

// LogLevel определяет уровень логирования из переменной окружения.
// Возможные значения: DEBUG, INFO, WARN, ERROR
// По умолчанию: INFO
func LogLevel() slog.Level {
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel разбирает уровень без учёта регистра.
// Неизвестное значение — INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger инициализирует глобальный логгер.
//
// Формат вывода определяется переменной LOG_FORMAT:
//   - "json" (по умолчанию) — JSON формат для production
//   - "text" — человекочитаемый формат для разработки
//   - "tint" — цветной вывод для терминала (CLI)
func SetupLogger() *slog.Logger {
	return Setup(os.Stdout, os.Getenv("LOG_FORMAT"), LogLevel())
}

// Setup создаёт логгер с заданными форматом и уровнем и делает его глобальным.
func Setup(w io.Writer, format string, level slog.Level) *slog.Logger {
	logger := slog.New(NewHandler(w, format, level))
	slog.SetDefault(logger)
	return logger
}

// NewHandler создаёт slog.Handler для формата.
// Неизвестный формат — JSON.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	addSource := level == slog.LevelDebug

	switch strings.ToLower(format) {
	case FormatText:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, AddSource: addSource})
	case FormatTint:
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  addSource,
			TimeFormat: time.TimeOnly,
		})
	default:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: addSource})
	}
}

// Ключи контекста для передачи данных в логгер.
type ctxKey string

const (
	// CtxLogger — ключ для логгера в контексте.
	CtxLogger ctxKey = "logger"
)

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext извлекает логгер из контекста.
// Если логгер не найден, возвращает глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithRunID возвращает логгер с добавленным run_id.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// WithReviewRequest возвращает логгер с добавленным review_request.
func WithReviewRequest(logger *slog.Logger, ref string) *slog.Logger {
	return logger.With("review_request", ref)
}
