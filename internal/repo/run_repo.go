package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Preflight/internal/domain"
)

// RunRepo — репозиторий validation runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

const runColumns = `id, owner, repo, number, status, needs_testing, results,
	started_at, finished_at, error, created_at`

// Create создаёт новый run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	resultsJSON, err := marshalResults(run.Results)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO validation_runs (id, owner, repo, number, status, needs_testing, results, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID,
		run.ReviewRequest.Owner,
		run.ReviewRequest.Repo,
		run.ReviewRequest.Number,
		run.Status,
		run.NeedsTesting,
		resultsJSON,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM validation_runs WHERE id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	// ReviewRequest — только runs этого изменения (опционально).
	ReviewRequest *domain.ReviewRequest
	Status        domain.RunStatus
	Limit         int
	Offset        int
}

// List возвращает список runs, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	var owner, repoName *string
	var number *int
	if ref := filter.ReviewRequest; ref != nil {
		owner, repoName, number = &ref.Owner, &ref.Repo, &ref.Number
	}

	query := `SELECT ` + runColumns + `
		FROM validation_runs
		WHERE ($1::text IS NULL OR owner = $1)
		  AND ($2::text IS NULL OR repo = $2)
		  AND ($3::int IS NULL OR number = $3)
		  AND ($4::text IS NULL OR status = $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := r.pool.Query(ctx, query,
		owner,
		repoName,
		number,
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return collectRuns(rows)
}

// ListPending возвращает runs в статусе PENDING, старые первыми.
func (r *RunRepo) ListPending(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM validation_runs
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	return collectRuns(rows)
}

// Claim атомарно переводит run из PENDING в RUNNING.
// Возвращает ErrInvalidState, если run уже забрал другой обработчик.
func (r *RunRepo) Claim(ctx context.Context, run *domain.Run) error {
	run.MarkRunning()

	query := `
		UPDATE validation_runs
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.pool.Exec(ctx, query, run.ID, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("claim run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: run %s is not pending", ErrInvalidState, run.ID)
	}
	return nil
}

// Update сохраняет статус и итог run.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	resultsJSON, err := marshalResults(run.Results)
	if err != nil {
		return err
	}

	query := `
		UPDATE validation_runs
		SET status = $2, needs_testing = $3, results = $4,
		    started_at = $5, finished_at = $6, error = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.NeedsTesting,
		resultsJSON,
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func collectRuns(rows pgx.Rows) ([]domain.Run, error) {
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanRun сканирует одну строку в Run. pgx.Rows тоже реализует pgx.Row.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var resultsJSON []byte
	var runError *string

	err := row.Scan(
		&run.ID,
		&run.ReviewRequest.Owner,
		&run.ReviewRequest.Repo,
		&run.ReviewRequest.Number,
		&run.Status,
		&run.NeedsTesting,
		&resultsJSON,
		&run.StartedAt,
		&run.FinishedAt,
		&runError,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if resultsJSON != nil {
		if err := json.Unmarshal(resultsJSON, &run.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	if runError != nil {
		run.Error = *runError
	}

	return &run, nil
}

func marshalResults(results []domain.TestCaseResult) ([]byte, error) {
	if results == nil {
		return nil, nil
	}
	b, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return b, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
