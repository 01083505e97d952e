package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/repo"
)

// RunStore — хранилище validation runs.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
}

// RunPublisher публикует запросы на проверку.
type RunPublisher interface {
	PublishValidationRequested(ctx context.Context, run *domain.Run) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	runs          RunStore
	publisher     RunPublisher
	webhookSecret []byte
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Runs RunStore

	// Publisher (опционально; без него run подхватит polling оркестратора).
	Publisher RunPublisher

	// WebhookSecret — секрет подписи webhook (опционально; пустой отключает проверку).
	WebhookSecret string

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var secret []byte
	if cfg.WebhookSecret != "" {
		secret = []byte(cfg.WebhookSecret)
	}

	return &Handler{
		runs:          cfg.Runs,
		publisher:     cfg.Publisher,
		webhookSecret: secret,
		logger:        logger,
	}
}
